// Package network implements spec.md §4.8: peer connection lifecycle,
// whitelist-aware liveness and reconnect, connection slot reservation,
// deduplicated broadcast and per-peer rate limiting. Grounded on
// network/network_test.go's testConn/testListener/testDialer fakes
// (the teacher's own network.go implementation did not survive into
// this pack, only its test file; see DESIGN.md).
package network

import (
	"net"

	"golang.org/x/net/netutil"
)

// Kind distinguishes a masternode explicitly configured or discovered
// from a signed trust source (Whitelisted) from every other peer
// (Regular), per spec.md §4.8.
type Kind int

const (
	Regular Kind = iota
	Whitelisted
)

func (k Kind) String() string {
	if k == Whitelisted {
		return "whitelisted"
	}
	return "regular"
}

// Dialer opens outbound connections, abstracted so tests can substitute
// an in-memory fake (network_test.go's testDialer).
type Dialer interface {
	Dial(addr string) (net.Conn, error)
}

// Listener accepts inbound connections, abstracted the same way
// (network_test.go's testListener).
type Listener interface {
	Accept() (net.Conn, error)
	Close() error
	Addr() net.Addr
}

// NewTCPDialer returns a Dialer that opens real TCP connections.
func NewTCPDialer() Dialer { return tcpDialer{} }

type tcpDialer struct{}

func (tcpDialer) Dial(addr string) (net.Conn, error) {
	return net.Dial("tcp", addr)
}

// NewTCPListener binds addr and returns it as a Listener, with
// golang.org/x/net/netutil's LimitListener enforcing the total
// connection cap at the accept layer (spec.md §4.8's slot rule).
func NewTCPListener(addr string, totalSlots int) (Listener, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return netutil.LimitListener(l, totalSlots), nil
}
