// Package tcpsocket implements spec.md §4.C: address resolution and a
// deadline-bounded non-blocking TCP socket. Grounded on
// ws/internal/shared/server.go's net.Listener/net.Conn usage — every
// TCP-handling example in the pack (that file, franz-go's broker.go,
// sarama) wraps net.Conn directly rather than reaching for a third-party
// socket library, so this stays on stdlib net.
package tcpsocket

import (
	"fmt"
	"net"
)

// Family is the resolved address family.
type Family int

const (
	FamilyUnspecified Family = iota
	FamilyIPv4
	FamilyIPv6
)

// Endpoint is one resolved {host, port} tuple.
type Endpoint struct {
	Host string
	Port int
}

func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, fmt.Sprintf("%d", e.Port))
}

// AddrInfo is a resolved address: family + host + port, with a
// non-empty ordered list of candidate endpoints (spec.md §3).
type AddrInfo struct {
	Family    Family
	Endpoints []Endpoint
}

// Wildcard returns an AddrInfo that binds to all interfaces on port.
func Wildcard(port int) AddrInfo {
	return AddrInfo{Family: FamilyIPv4, Endpoints: []Endpoint{{Host: "0.0.0.0", Port: port}}}
}

// Loopback returns an AddrInfo bound to the loopback interface.
func Loopback(port int) AddrInfo {
	return AddrInfo{Family: FamilyIPv4, Endpoints: []Endpoint{{Host: "127.0.0.1", Port: port}}}
}

// Resolve looks up hostOrLiteral:port (or hostOrLiteral:service) and
// returns every resolved endpoint, preferred-first.
func Resolve(hostOrLiteral string, portOrService string) (AddrInfo, error) {
	port, err := net.LookupPort("tcp", portOrService)
	if err != nil {
		return AddrInfo{}, fmt.Errorf("tcpsocket: resolve port %q: %w", portOrService, err)
	}
	ips, err := net.LookupIP(hostOrLiteral)
	if err != nil {
		return AddrInfo{}, fmt.Errorf("tcpsocket: resolve host %q: %w", hostOrLiteral, err)
	}
	if len(ips) == 0 {
		return AddrInfo{}, fmt.Errorf("tcpsocket: no addresses for host %q", hostOrLiteral)
	}
	info := AddrInfo{}
	for _, ip := range ips {
		fam := FamilyIPv4
		if ip.To4() == nil {
			fam = FamilyIPv6
		}
		if info.Family == FamilyUnspecified {
			info.Family = fam
		}
		info.Endpoints = append(info.Endpoints, Endpoint{Host: ip.String(), Port: port})
	}
	return info, nil
}

// FirstEndpoint is the preferred endpoint to connect to.
func (a AddrInfo) FirstEndpoint() (Endpoint, error) {
	if len(a.Endpoints) == 0 {
		return Endpoint{}, fmt.Errorf("tcpsocket: address has no resolved endpoints")
	}
	return a.Endpoints[0], nil
}
