package smu

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/itohio/gosmu/pkg/config"
	"github.com/itohio/gosmu/pkg/visa"
)

// ErrClosed is returned by a Mock after Close.
var ErrClosed = errors.New("mock instrument closed")

// Mock simulates a B2902B with a resistive load on each channel. It speaks the
// same command subset as Device and is used for testing and development.
type Mock struct {
	cfg *config.MockConfig

	mu       sync.Mutex
	closed   bool
	channels map[string]*mockChannel
	history  []string
	tick     int
}

// mockChannel is the simulated state of one channel.
type mockChannel struct {
	source   Mode
	level    map[Mode]float64
	protect  map[Mode]float64
	nplc     map[Mode]float64
	output   bool
	fourWire bool
}

// Ensure Mock implements visa.Resource.
var _ visa.Resource = (*Mock)(nil)

// NewMock creates a new simulated instrument.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		cfg = &config.MockConfig{
			Identity:   "Keysight Technologies,B2902B,MY00000000,5.0.2037.5005",
			Load:       1000,
			NoiseLevel: 0.001,
		}
	}

	m := &Mock{cfg: cfg}
	m.reset()
	return m
}

func (m *Mock) reset() {
	m.channels = map[string]*mockChannel{
		Channel1ID: newMockChannel(),
		Channel2ID: newMockChannel(),
	}
}

func newMockChannel() *mockChannel {
	return &mockChannel{
		source:  ModeVoltage,
		level:   map[Mode]float64{ModeVoltage: 0, ModeCurrent: 0},
		protect: map[Mode]float64{ModeVoltage: 2, ModeCurrent: 100e-6},
		nplc:    map[Mode]float64{ModeVoltage: 1, ModeCurrent: 1},
	}
}

// Write executes a command.
func (m *Mock) Write(cmd string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.history = append(m.history, cmd)
	return m.execute(cmd)
}

// Query executes a query and returns its response.
func (m *Mock) Query(cmd string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", ErrClosed
	}
	m.history = append(m.history, cmd)

	switch strings.ToUpper(strings.TrimSpace(cmd)) {
	case "*IDN?":
		return m.cfg.Identity, nil
	case "*OPC?":
		return "1", nil
	}

	mode, channel, err := parseMeasure(cmd)
	if err != nil {
		return "", err
	}
	ch, ok := m.channels[channel]
	if !ok {
		return "", fmt.Errorf("mock: no channel %q", channel)
	}

	// The instrument switches the output on to measure.
	ch.output = true
	v, i := m.operatingPoint(ch)
	m.tick++

	value := v
	if mode == ModeCurrent {
		value = i
	}
	value += value * m.noise()
	return fmt.Sprintf("%+.6E", value), nil
}

// Close stops the simulated instrument.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// History returns every command and query received so far.
func (m *Mock) History() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.history))
	copy(out, m.history)
	return out
}

// Output reports whether the output of channel is on.
func (m *Mock) Output(channel string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[channel]
	return ok && ch.output
}

// execute applies a command to the simulated state.
func (m *Mock) execute(cmd string) error {
	header, arg, _ := strings.Cut(strings.TrimSpace(cmd), " ")
	header = strings.ToUpper(strings.TrimPrefix(header, ":"))
	arg = strings.TrimSpace(arg)

	if header == "*RST" {
		m.reset()
		return nil
	}

	parts := strings.Split(header, ":")
	root, channel := splitChannel(parts[0])
	ch, ok := m.channels[channel]
	if !ok {
		return fmt.Errorf("mock: undefined header %q", cmd)
	}

	switch {
	// :OUTP{ch} ON|OFF
	case root == "OUTP" && len(parts) == 1:
		on, err := parseSwitch(arg)
		if err != nil {
			return fmt.Errorf("mock: %q: %w", cmd, err)
		}
		ch.output = on

	// :SOUR{ch}:FUNC:MODE VOLT|CURR
	case root == "SOUR" && len(parts) == 3 && parts[1] == "FUNC" && parts[2] == "MODE":
		mode, err := parseWireMode(arg)
		if err != nil {
			return fmt.Errorf("mock: %q: %w", cmd, err)
		}
		ch.source = mode

	// :SOUR{ch}:VOLT|CURR <value>
	case root == "SOUR" && len(parts) == 2:
		mode, err := parseWireMode(parts[1])
		if err != nil {
			return fmt.Errorf("mock: %q: %w", cmd, err)
		}
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("mock: %q: %w", cmd, err)
		}
		ch.level[mode] = v

	// :SENS{ch}:REM ON|OFF
	case root == "SENS" && len(parts) == 2 && parts[1] == "REM":
		on, err := parseSwitch(arg)
		if err != nil {
			return fmt.Errorf("mock: %q: %w", cmd, err)
		}
		ch.fourWire = on

	// :SENS{ch}:VOLT|CURR:PROT|NPLC <value>
	case root == "SENS" && len(parts) == 3:
		mode, err := parseWireMode(parts[1])
		if err != nil {
			return fmt.Errorf("mock: %q: %w", cmd, err)
		}
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("mock: %q: %w", cmd, err)
		}
		switch parts[2] {
		case "PROT":
			ch.protect[mode] = math.Abs(v)
		case "NPLC":
			if v <= 0 {
				return fmt.Errorf("mock: %q: data out of range", cmd)
			}
			ch.nplc[mode] = v
		default:
			return fmt.Errorf("mock: undefined header %q", cmd)
		}

	default:
		return fmt.Errorf("mock: undefined header %q", cmd)
	}

	return nil
}

// operatingPoint returns the voltage across and current through the load,
// honouring the compliance of the sensed quantity.
func (m *Mock) operatingPoint(ch *mockChannel) (v, i float64) {
	if !ch.output {
		return 0, 0
	}
	r := m.cfg.Load

	switch ch.source {
	case ModeCurrent:
		i = ch.level[ModeCurrent]
		v = clamp(i*r, ch.protect[ModeVoltage])
		if r > 0 {
			i = v / r
		}
	default:
		v = ch.level[ModeVoltage]
		if r > 0 {
			i = clamp(v/r, ch.protect[ModeCurrent])
			v = i * r
		}
	}
	return v, i
}

// noise returns a deterministic relative error.
func (m *Mock) noise() float64 {
	x := float64(m.tick)
	return (math.Sin(x*1.3) + math.Cos(x*0.7)) * m.cfg.NoiseLevel * 0.5
}

func clamp(v, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, v))
}

// splitChannel splits "SOUR2" into "SOUR" and "2". A missing suffix means channel 1.
func splitChannel(s string) (root, channel string) {
	i := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if i < 0 {
		return s, Channel1ID
	}
	return s[:i], s[i:]
}

func parseWireMode(s string) (Mode, error) {
	switch Mode(strings.ToUpper(s)) {
	case ModeVoltage:
		return ModeVoltage, nil
	case ModeCurrent:
		return ModeCurrent, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

func parseSwitch(s string) (bool, error) {
	st, err := ParseState(s)
	if err != nil {
		return false, err
	}
	return st == StateOn, nil
}

// parseMeasure parses "MEAS:VOLT? (@1)".
func parseMeasure(q string) (Mode, string, error) {
	header, arg, _ := strings.Cut(strings.TrimSpace(q), " ")
	header = strings.ToUpper(strings.TrimPrefix(header, ":"))
	if !strings.HasPrefix(header, "MEAS:") || !strings.HasSuffix(header, "?") {
		return "", "", fmt.Errorf("mock: undefined query %q", q)
	}
	mode, err := parseWireMode(strings.TrimSuffix(strings.TrimPrefix(header, "MEAS:"), "?"))
	if err != nil {
		return "", "", fmt.Errorf("mock: %q: %w", q, err)
	}

	channel := Channel1ID
	if arg != "" {
		arg = strings.TrimSpace(arg)
		if !strings.HasPrefix(arg, "(@") || !strings.HasSuffix(arg, ")") {
			return "", "", fmt.Errorf("mock: %q: invalid channel list", q)
		}
		channel = arg[2 : len(arg)-1]
	}
	return mode, channel, nil
}
