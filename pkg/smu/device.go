// Package smu drives a Keysight B2900 series two-channel source-measure unit.
//
// A Device owns the instrument connection and formats SCPI commands. Users work
// through its two Channels, which validate parameters before delegating:
//
//	dev, err := smu.Connect("TCPIP0::192.168.1.10::5025::SOCKET", visa.Config{})
//	if err != nil {
//		return err
//	}
//	defer dev.Close()
//
//	ch := dev.Channel1()
//	ch.SetModeVoltageSource()
//	ch.SetVoltage(5)
//	ch.EnableOutput()
//	reading, err := ch.MeasureCurrent()
//
// A Device is not safe for concurrent use by multiple callers issuing
// interleaved command sequences; individual round trips are serialized.
package smu

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/itohio/gosmu/pkg/visa"
)

const (
	// DefaultModel is the identity substring required of a connected instrument.
	DefaultModel = "B2902B"

	// Channel tokens as numbered on the front panel.
	Channel1ID = "1"
	Channel2ID = "2"
)

// Device represents a connection to the SMU.
type Device struct {
	mu     sync.Mutex
	res    visa.Resource
	id     string
	model  string
	logger *log.Logger

	chan1 *Channel
	chan2 *Channel
}

// Option configures a Device.
type Option func(*Device)

// WithModel overrides the identity substring checked on connect.
func WithModel(model string) Option {
	return func(d *Device) {
		if model != "" {
			d.model = model
		}
	}
}

// WithLogger traces every command, query and response to l.
func WithLogger(l *log.Logger) Option {
	return func(d *Device) {
		d.logger = l
	}
}

// Connect opens the resource at address and returns a verified Device.
func Connect(address string, cfg visa.Config, opts ...Option) (*Device, error) {
	return ConnectWith(cfg.Opener(), address, opts...)
}

// ConnectWith opens address using open and returns a verified Device.
func ConnectWith(open visa.Opener, address string, opts ...Option) (*Device, error) {
	res, err := open(address)
	if err != nil {
		return nil, err
	}
	return New(res, opts...)
}

// New takes ownership of an open resource, queries its identity and builds the
// two channels. If the identity does not contain the expected model the
// resource is closed and an *UnexpectedDeviceError is returned.
func New(res visa.Resource, opts ...Option) (*Device, error) {
	d := &Device{
		res:   res,
		model: DefaultModel,
	}
	for _, opt := range opts {
		opt(d)
	}

	id, err := d.WriteQuery("*IDN?")
	if err != nil {
		if cerr := res.Close(); cerr != nil {
			log.Printf("Error closing instrument after failed identity query: %v", cerr)
		}
		d.res = nil
		return nil, err
	}
	id = strings.TrimSpace(id)

	if !strings.Contains(id, d.model) {
		if err := res.Close(); err != nil {
			log.Printf("Error closing rejected instrument: %v", err)
		}
		d.res = nil
		return nil, &UnexpectedDeviceError{ID: id, Model: d.model}
	}

	d.id = id
	d.chan1 = newChannel(Channel1ID, d)
	d.chan2 = newChannel(Channel2ID, d)
	return d, nil
}

// ID returns the identity string read at connect time.
func (d *Device) ID() string {
	return d.id
}

// Channel1 returns the channel labelled 1 on the front panel.
func (d *Device) Channel1() *Channel {
	return d.chan1
}

// Channel2 returns the channel labelled 2 on the front panel.
func (d *Device) Channel2() *Channel {
	return d.chan2
}

// Channel returns channel n (1 or 2).
func (d *Device) Channel(n int) (*Channel, error) {
	switch n {
	case 1:
		return d.chan1, nil
	case 2:
		return d.chan2, nil
	}
	return nil, fmt.Errorf("no channel %d: the instrument has channels 1 and 2", n)
}

// IsConnected returns whether the device is currently connected.
func (d *Device) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.res != nil
}

// Close closes the connection. Closing a closed device is a no-op.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.res == nil {
		return nil
	}
	err := d.res.Close()
	d.res = nil
	return err
}

// Reset restores the instrument to its power-on state.
func (d *Device) Reset() error {
	return d.WriteCommand("*RST")
}

// WriteCommand sends cmd to the instrument.
func (d *Device) WriteCommand(cmd string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.res == nil {
		return ErrNotConnected
	}
	if d.logger != nil {
		d.logger.Printf("-> %s", cmd)
	}
	return d.res.Write(cmd)
}

// WriteQuery sends query to the instrument and returns the raw response.
func (d *Device) WriteQuery(query string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.res == nil {
		return "", ErrNotConnected
	}
	if d.logger != nil {
		d.logger.Printf("-> %s", query)
	}
	resp, err := d.res.Query(query)
	if err != nil {
		return "", err
	}
	if d.logger != nil {
		d.logger.Printf("<- %s", resp)
	}
	return resp, nil
}

// Channel-scoped command builders. Only Channel calls these.

// setMeasurementSpeed defines how many power line cycles a measurement takes.
func (d *Device) setMeasurementSpeed(channel string, speed Speed, sense Mode) error {
	if !sense.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, sense)
	}
	return d.WriteCommand(fmt.Sprintf(":SENS%s:%s:NPLC %s", channel, sense, speed))
}

func (d *Device) setSourceMode(channel string, source Mode) error {
	if !source.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, source)
	}
	return d.WriteCommand(fmt.Sprintf(":SOUR%s:FUNC:MODE %s", channel, source))
}

// setSenseWireMode selects 4-wire (remote) or 2-wire sensing.
func (d *Device) setSenseWireMode(channel string, fourWire bool) error {
	return d.WriteCommand(fmt.Sprintf(":SENS%s:REM %s", channel, StateOf(fourWire)))
}

// setLimit sets the protection (compliance) level for the sensed quantity.
func (d *Device) setLimit(channel string, sense Mode, value float64) error {
	if !sense.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, sense)
	}
	return d.WriteCommand(fmt.Sprintf(":SENS%s:%s:PROT %s", channel, sense, formatValue(value)))
}

func (d *Device) setLevel(channel string, source Mode, value float64) error {
	if !source.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMode, source)
	}
	return d.WriteCommand(fmt.Sprintf(":SOUR%s:%s %s", channel, source, formatValue(value)))
}

func (d *Device) setOutputState(channel string, state State) error {
	if !state.valid() {
		return fmt.Errorf("%w: state %q", ErrInvalidMode, state)
	}
	return d.WriteCommand(fmt.Sprintf(":OUTP%s %s", channel, state))
}

// measure performs a spot measurement and returns the raw reading.
func (d *Device) measure(channel string, mode Mode) (string, error) {
	if !mode.valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	return d.WriteQuery(fmt.Sprintf("MEAS:%s? (@%s)", mode, channel))
}
