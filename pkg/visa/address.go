package visa

import (
	"fmt"
	"net"
	"runtime"
	"strconv"
	"strings"
)

// Kind is the resource class of an address.
type Kind int

const (
	KindSerial Kind = iota + 1
	KindSocket
)

func (k Kind) String() string {
	switch k {
	case KindSerial:
		return "ASRL"
	case KindSocket:
		return "SOCKET"
	default:
		return "unknown"
	}
}

// Address is a parsed VISA resource string.
type Address struct {
	Kind Kind
	Port string // serial device name, KindSerial only
	Host string // KindSocket only
	TCP  int    // KindSocket only
}

// HostPort returns the dial address of a socket resource.
func (a Address) HostPort() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.TCP))
}

// ParseAddress parses resource strings of the forms
//
//	ASRL3::INSTR
//	ASRL/dev/ttyUSB0::INSTR
//	TCPIP0::192.168.1.10::5025::SOCKET
func ParseAddress(address string) (Address, error) {
	parts := strings.Split(strings.TrimSpace(address), "::")
	head := parts[0]

	switch {
	case hasPrefixFold(head, "ASRL"):
		if len(parts) != 2 || !strings.EqualFold(parts[1], "INSTR") {
			return Address{}, fmt.Errorf("invalid serial resource %q: expected ASRL<port>::INSTR", address)
		}
		port := head[len("ASRL"):]
		if port == "" {
			return Address{}, fmt.Errorf("invalid serial resource %q: missing port", address)
		}
		if n, err := strconv.Atoi(port); err == nil {
			if n < 1 {
				return Address{}, fmt.Errorf("invalid serial resource %q: port number must be >= 1", address)
			}
			port = serialPortName(n)
		}
		return Address{Kind: KindSerial, Port: port}, nil

	case hasPrefixFold(head, "TCPIP"):
		if len(parts) != 4 || !strings.EqualFold(parts[3], "SOCKET") {
			return Address{}, fmt.Errorf("%w: %q: only TCPIP<n>::<host>::<port>::SOCKET is supported", ErrUnsupportedResource, address)
		}
		if board := head[len("TCPIP"):]; board != "" {
			if _, err := strconv.Atoi(board); err != nil {
				return Address{}, fmt.Errorf("invalid board number in %q", address)
			}
		}
		if parts[1] == "" {
			return Address{}, fmt.Errorf("invalid socket resource %q: missing host", address)
		}
		port, err := strconv.Atoi(parts[2])
		if err != nil || port <= 0 || port > 65535 {
			return Address{}, fmt.Errorf("invalid socket resource %q: bad port %q", address, parts[2])
		}
		return Address{Kind: KindSocket, Host: parts[1], TCP: port}, nil
	}

	return Address{}, fmt.Errorf("%w: %q", ErrUnsupportedResource, address)
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// serialPortName maps a VISA serial port number to the operating system device.
func serialPortName(n int) string {
	if runtime.GOOS == "windows" {
		return "COM" + strconv.Itoa(n)
	}
	return "/dev/ttyS" + strconv.Itoa(n-1)
}
