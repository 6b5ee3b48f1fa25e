package visa

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"
)

// lineConn frames commands and responses with '\n' on top of a byte stream.
type lineConn struct {
	name    string
	rw      io.ReadWriteCloser
	timeout time.Duration

	// deadline is set by stream transports that time out through deadlines
	// rather than short reads.
	deadline func(time.Time) error

	mu      sync.Mutex
	pending []byte
	chunk   [256]byte
	closed  bool
	stale   bool // a query timed out and its response may still arrive
}

func newLineConn(name string, rw io.ReadWriteCloser, timeout time.Duration) *lineConn {
	return &lineConn{name: name, rw: rw, timeout: timeout}
}

// Write sends cmd followed by the line terminator.
func (c *lineConn) Write(cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(cmd)
}

// Query sends cmd and reads one response line.
func (c *lineConn) Query(cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.write(cmd); err != nil {
		return "", err
	}
	return c.readLine()
}

// Close closes the underlying stream. Closing twice is a no-op.
func (c *lineConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	return c.rw.Close()
}

func (c *lineConn) write(cmd string) error {
	if c.closed {
		return fmt.Errorf("%s: %w", c.name, io.ErrClosedPipe)
	}
	if c.stale {
		c.discardLate()
	}
	if c.deadline != nil {
		if err := c.deadline(time.Now().Add(c.timeout)); err != nil {
			return fmt.Errorf("%s: failed to set deadline: %w", c.name, err)
		}
	}
	if _, err := c.rw.Write([]byte(cmd + "\n")); err != nil {
		return fmt.Errorf("%s: failed to write %q: %w", c.name, cmd, err)
	}
	return nil
}

func (c *lineConn) readLine() (string, error) {
	for {
		if i := bytes.IndexByte(c.pending, '\n'); i >= 0 {
			line := string(c.pending[:i])
			c.pending = c.pending[i+1:]
			return strings.TrimRight(line, "\r"), nil
		}

		n, err := c.rw.Read(c.chunk[:])
		c.pending = append(c.pending, c.chunk[:n]...)
		if err != nil {
			if isTimeout(err) {
				return "", c.timedOut()
			}
			return "", fmt.Errorf("%s: failed to read response: %w", c.name, err)
		}
		if n == 0 {
			// serial ports report an expired read timeout as an empty read
			return "", c.timedOut()
		}
	}
}

// timedOut drops the partial response and marks the connection stale.
func (c *lineConn) timedOut() error {
	c.pending = c.pending[:0]
	c.stale = true
	return fmt.Errorf("%s: %w", c.name, ErrTimeout)
}

// discardLate reads and drops input until the line stays quiet for one
// timeout, so a late response is not taken as the answer to the next query.
// Responses later than that cannot be told apart from new ones.
func (c *lineConn) discardLate() {
	c.stale = false
	c.pending = c.pending[:0]

	limit := time.Now().Add(4 * c.timeout)
	discarded := 0
	for time.Now().Before(limit) {
		if c.deadline != nil {
			if err := c.deadline(time.Now().Add(c.timeout)); err != nil {
				break
			}
		}
		n, err := c.rw.Read(c.chunk[:])
		discarded += n
		if n == 0 || err != nil {
			break
		}
	}
	if discarded > 0 {
		log.Printf("%s: discarded %d bytes of a late response", c.name, discarded)
	}
}

func isTimeout(err error) bool {
	t, ok := err.(interface{ Timeout() bool })
	return ok && t.Timeout()
}
