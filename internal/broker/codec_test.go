package broker

// lineCodec is the canonical example from spec.md §6 (line-delimited
// text terminated by LF), used here to exercise the broker variants
// against a real wire format in tests. It is the same codec
// cmd/*/main.go builds via NewLineCodec.
func lineCodec() Codec[string] {
	return NewLineCodec()
}
