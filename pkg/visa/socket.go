package visa

import (
	"fmt"
	"net"
)

// openSocket connects to a raw SCPI socket (port 5025 on Keysight instruments).
func openSocket(hostPort string, cfg Config) (Resource, error) {
	conn, err := net.DialTimeout("tcp", hostPort, cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", hostPort, err)
	}
	c := newLineConn(hostPort, conn, cfg.Timeout)
	c.deadline = conn.SetDeadline
	return c, nil
}
