package marketdata

import (
	"net"
	"strconv"
)

// Sink delivers one already-encoded market-data datagram. Delivery is
// best-effort — a Sink that drops a datagram must still return nil so
// the emitter doesn't treat a slow subscriber as a fatal error.
type Sink interface {
	Send(b []byte) error
}

// UDPMulticastSink publishes datagrams to a multicast group. It is the
// default Sink wired up by cmd/matchd; tests use an in-memory Sink
// instead (see recordingSink in emitter_test.go).
type UDPMulticastSink struct {
	conn *net.UDPConn
}

// NewUDPMulticastSink resolves addr:port and opens a UDP socket to write
// to it. addr is expected to be a multicast group address (e.g.
// 239.0.0.1), but this does not validate that — any UDP destination
// works for testing against a unicast listener too.
func NewUDPMulticastSink(addr string, port int) (*UDPMulticastSink, error) {
	raddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(addr, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, err
	}
	return &UDPMulticastSink{conn: conn}, nil
}

// Send writes b as one UDP datagram.
func (s *UDPMulticastSink) Send(b []byte) error {
	_, err := s.conn.Write(b)
	return err
}

// Close releases the underlying socket.
func (s *UDPMulticastSink) Close() error {
	return s.conn.Close()
}
