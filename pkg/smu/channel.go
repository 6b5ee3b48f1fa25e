package smu

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultVoltageRange is the voltage range ceiling of a new channel (V).
	DefaultVoltageRange = 20.0
	// DefaultCurrentRange is the current range ceiling of a new channel (A).
	DefaultCurrentRange = 2.0
)

// commander is the part of Device a Channel is allowed to use.
type commander interface {
	setSourceMode(channel string, source Mode) error
	setLimit(channel string, sense Mode, value float64) error
	setLevel(channel string, source Mode, value float64) error
	setOutputState(channel string, state State) error
	setSenseWireMode(channel string, fourWire bool) error
	setMeasurementSpeed(channel string, speed Speed, sense Mode) error
	measure(channel string, mode Mode) (string, error)
	IsConnected() bool
}

var _ commander = (*Device)(nil)

// Channel is one source-measure channel of the instrument.
type Channel struct {
	id  string
	dev commander

	voltageRange float64
	currentRange float64
}

func newChannel(id string, dev commander) *Channel {
	return &Channel{
		id:           id,
		dev:          dev,
		voltageRange: DefaultVoltageRange,
		currentRange: DefaultCurrentRange,
	}
}

// ID returns the channel token used in commands ("1" or "2").
func (c *Channel) ID() string {
	return c.id
}

// SetModeVoltageSource sets the channel into voltage source mode.
// In this mode you set the voltage and can measure current, resistance and power.
func (c *Channel) SetModeVoltageSource() error {
	return c.dev.setSourceMode(c.id, ModeVoltage)
}

// SetModeCurrentSource sets the channel into current source mode.
// In this mode you set the current and can measure voltage, resistance and power.
func (c *Channel) SetModeCurrentSource() error {
	return c.dev.setSourceMode(c.id, ModeCurrent)
}

// SetVoltageLimit limits the voltage output of the current source.
// It has no effect in voltage source mode.
//
// NOTE: the value is checked against the voltage range but written as the
// CURR protection level.
func (c *Channel) SetVoltageLimit(value float64) error {
	if !(value <= c.voltageRange) {
		return &RangeExceededError{Quantity: ModeVoltage, Value: value, Range: c.voltageRange}
	}
	return c.dev.setLimit(c.id, ModeCurrent, value)
}

// SetCurrentLimit limits the current output of the voltage source.
// It has no effect in current source mode.
//
// NOTE: issues the VOLT protection command, see SetVoltageLimit.
func (c *Channel) SetCurrentLimit(value float64) error {
	if !(value <= c.currentRange) {
		return &RangeExceededError{Quantity: ModeCurrent, Value: value, Range: c.currentRange}
	}
	return c.dev.setLimit(c.id, ModeVoltage, value)
}

// SetVoltage sets the output level of the voltage source.
func (c *Channel) SetVoltage(value float64) error {
	return c.dev.setLevel(c.id, ModeVoltage, value)
}

// SetCurrent sets the output level of the current source.
func (c *Channel) SetCurrent(value float64) error {
	return c.dev.setLevel(c.id, ModeCurrent, value)
}

// EnableOutput switches the source output on. The channel then sources
// voltage or current as selected by the source mode.
func (c *Channel) EnableOutput() error {
	return c.dev.setOutputState(c.id, StateOn)
}

// DisableOutput switches the source output off, leaving it in high impedance.
func (c *Channel) DisableOutput() error {
	return c.dev.setOutputState(c.id, StateOff)
}

// MeasureVoltage performs a spot measurement and returns the raw voltage reading.
// The instrument turns the output on if it was off.
func (c *Channel) MeasureVoltage() (string, error) {
	return c.dev.measure(c.id, ModeVoltage)
}

// MeasureCurrent performs a spot measurement and returns the raw current reading.
// The instrument turns the output on if it was off.
func (c *Channel) MeasureCurrent() (string, error) {
	return c.dev.measure(c.id, ModeCurrent)
}

// SetSenseWireMode selects 4-wire (true) or 2-wire (false) sensing.
func (c *Channel) SetSenseWireMode(fourWire bool) error {
	return c.dev.setSenseWireMode(c.id, fourWire)
}

// SetMeasurementSpeed sets the integration time used when sensing mode.
func (c *Channel) SetMeasurementSpeed(speed Speed, mode Mode) error {
	if !(speed > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidSpeed, float64(speed))
	}
	return c.dev.setMeasurementSpeed(c.id, speed, mode)
}

// VoltageRange returns the voltage range ceiling (V).
func (c *Channel) VoltageRange() float64 {
	return c.voltageRange
}

// CurrentRange returns the current range ceiling (A).
func (c *Channel) CurrentRange() float64 {
	return c.currentRange
}

// SetVoltageRange sets the ceiling SetVoltageLimit is checked against.
// Nothing is sent to the instrument.
func (c *Channel) SetVoltageRange(value float64) error {
	if !c.dev.IsConnected() {
		return ErrNotConnected
	}
	if !(value > 0) {
		return fmt.Errorf("%w: voltage range %v", ErrInvalidRange, value)
	}
	c.voltageRange = value
	return nil
}

// SetCurrentRange sets the ceiling SetCurrentLimit is checked against.
// Nothing is sent to the instrument.
func (c *Channel) SetCurrentRange(value float64) error {
	if !c.dev.IsConnected() {
		return ErrNotConnected
	}
	if !(value > 0) {
		return fmt.Errorf("%w: current range %v", ErrInvalidRange, value)
	}
	c.currentRange = value
	return nil
}

// ParseReading converts a raw measurement response into a number. Only the
// first comma separated field is used.
func ParseReading(raw string) (float64, error) {
	field, _, _ := strings.Cut(strings.TrimSpace(raw), ",")
	v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid reading %q: %w", raw, err)
	}
	return v, nil
}
