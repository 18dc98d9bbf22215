// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"fmt"
	"net"
)

// UDPTransport implements Transport by sending each event as one JSON
// datagram. Useful for feeding progress into external collectors
// without holding a connection open.
type UDPTransport struct {
	conn net.Conn
}

func NewUDPTransport(addr string) (*UDPTransport, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("dialing udp %s: %w", addr, err)
	}
	return &UDPTransport{conn: conn}, nil
}

// Send marshals the event and fires the datagram. Delivery is best
// effort; datagrams that exceed the path MTU are dropped by the stack.
func (ut *UDPTransport) Send(data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	if _, err := ut.conn.Write(payload); err != nil {
		return fmt.Errorf("sending event: %w", err)
	}
	return nil
}

func (ut *UDPTransport) Close() error {
	return ut.conn.Close()
}

var _ Transport = (*UDPTransport)(nil)
