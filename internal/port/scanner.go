package port

import (
	"net"
	"strconv"
)

// loopbackHost is the interface the liveness probe binds to. Rendered env
// files configure development servers that listen on localhost, so the
// loopback address space is the one that has to be free.
const loopbackHost = "127.0.0.1"

// Scanner checks whether specific ports are available on the host machine.
//
// It uses the operating system's network stack (net.Listen / net.ListenPacket)
// to determine if a port is free. A successful bind is immediately released:
// the probe is a best-effort availability hint, not a reservation. Another
// process can still take the port between the probe and the moment the
// rendered configuration is used.
type Scanner struct {
	// host is the address the probe binds to.
	host string
}

// NewScanner creates a Scanner that probes the loopback interface.
func NewScanner() *Scanner {
	return &Scanner{host: loopbackHost}
}

// IsPortAvailable checks whether a single port is free on the loopback
// interface.
//
// For TCP, it attempts net.Listen("tcp", "127.0.0.1:port"). For UDP, it
// attempts net.ListenPacket("udp", "127.0.0.1:port"). If the bind succeeds
// the port is reported available and the socket is closed right away.
//
// Returns false if the port is already bound, the bind is refused, or the
// protocol is unknown.
func (s *Scanner) IsPortAvailable(port uint16, protocol string) bool {
	addr := net.JoinHostPort(s.host, strconv.Itoa(int(port)))

	switch protocol {
	case "tcp":
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return false
		}
		_ = listener.Close()
		return true

	case "udp":
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true

	default:
		// Unknown protocol: treat as unavailable to fail safe.
		return false
	}
}
