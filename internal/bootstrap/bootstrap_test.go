package bootstrap

import "testing"

func TestParseEndpoint(t *testing.T) {
	ep, err := ParseEndpoint(":9001")
	if err != nil {
		t.Fatalf("ParseEndpoint(:9001): %v", err)
	}
	if ep.Host != "0.0.0.0" || ep.Port != 9001 {
		t.Fatalf("got %+v, want {0.0.0.0 9001}", ep)
	}

	ep, err = ParseEndpoint("127.0.0.1:9002")
	if err != nil {
		t.Fatalf("ParseEndpoint(127.0.0.1:9002): %v", err)
	}
	if ep.Host != "127.0.0.1" || ep.Port != 9002 {
		t.Fatalf("got %+v, want {127.0.0.1 9002}", ep)
	}
}

func TestParseEndpointRejectsMalformed(t *testing.T) {
	if _, err := ParseEndpoint("not-an-address"); err == nil {
		t.Fatal("expected an error for a malformed endpoint")
	}
}

func TestParseRemote(t *testing.T) {
	addr, err := ParseRemote("localhost:9000")
	if err != nil {
		t.Fatalf("ParseRemote(localhost:9000): %v", err)
	}
	if len(addr.Endpoints) == 0 {
		t.Fatal("expected at least one resolved endpoint")
	}
}
