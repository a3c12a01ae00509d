package broker

import (
	"github.com/adred-codev/netcore/internal/clock"
	"github.com/adred-codev/netcore/internal/tcpsocket"
)

// NewLineCodec builds the canonical wire format spec.md §6 describes for
// the broker variants: line-delimited text terminated by LF. The broker
// package imposes no format of its own (§4.K-M); this is the reference
// Codec[string] every cmd/*/main.go entrypoint uses by default.
func NewLineCodec() Codec[string] {
	return Codec[string]{
		Receive: func(sock *tcpsocket.Socket, deadline clock.Timestamp) (string, bool, error) {
			var line []byte
			buf := make([]byte, 1)
			for {
				n, err := sock.Read(buf, deadline)
				if err != nil {
					return "", false, err
				}
				if n == 0 {
					if deadline.Expired() {
						return "", false, nil
					}
					continue
				}
				if buf[0] == '\n' {
					return string(line), true, nil
				}
				line = append(line, buf[0])
			}
		},
		Send: func(sock *tcpsocket.Socket, msg string, deadline clock.Timestamp) error {
			data := append([]byte(msg), '\n')
			for len(data) > 0 {
				n, err := sock.Write(data, deadline)
				if err != nil {
					return err
				}
				if n == 0 {
					return nil // deadline expired mid-write; caller retries
				}
				data = data[n:]
			}
			return nil
		},
	}
}
