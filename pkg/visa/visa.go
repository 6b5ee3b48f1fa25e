// Package visa implements the instrument bus used by the SMU driver: VISA-style
// resource addresses and line-terminated command/query resources over serial
// ports and raw TCP sockets.
package visa

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultBaudRate is the B2900 factory setting for the serial interface.
	DefaultBaudRate = 9600
	// DefaultTimeout bounds a single query round trip.
	DefaultTimeout = 5 * time.Second
)

var (
	// ErrUnsupportedResource is returned for resource classes this package cannot open.
	ErrUnsupportedResource = errors.New("unsupported resource")
	// ErrTimeout is returned when a query response does not arrive in time.
	ErrTimeout = errors.New("read timeout")
)

// Resource is an open connection to an addressable instrument.
type Resource interface {
	// Write sends a command. The line terminator is appended by the resource.
	Write(cmd string) error
	// Query sends a command and returns the response line without its terminator.
	Query(cmd string) (string, error)
	Close() error
}

// Opener opens the resource at address.
type Opener func(address string) (Resource, error)

// Config contains transport parameters applied when opening a resource.
type Config struct {
	BaudRate int
	Timeout  time.Duration
}

// Opener returns an Opener bound to c.
func (c Config) Opener() Opener {
	return func(address string) (Resource, error) {
		return Open(address, c)
	}
}

// Open parses address and opens the resource it names.
func Open(address string, cfg Config) (Resource, error) {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	addr, err := ParseAddress(address)
	if err != nil {
		return nil, err
	}

	switch addr.Kind {
	case KindSerial:
		return openSerial(addr.Port, cfg)
	case KindSocket:
		return openSocket(addr.HostPort(), cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedResource, address)
	}
}
