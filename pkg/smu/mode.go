package smu

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode selects the electrical quantity a command sources, senses or limits.
type Mode string

const (
	ModeCurrent Mode = "CURR"
	ModeVoltage Mode = "VOLT"
)

func (m Mode) String() string {
	return string(m)
}

// Quantity returns the human readable name of the mode.
func (m Mode) Quantity() string {
	switch m {
	case ModeCurrent:
		return "current"
	case ModeVoltage:
		return "voltage"
	default:
		return string(m)
	}
}

// Unit returns the SI unit symbol of the mode.
func (m Mode) Unit() string {
	switch m {
	case ModeCurrent:
		return "A"
	case ModeVoltage:
		return "V"
	default:
		return ""
	}
}

func (m Mode) valid() bool {
	return m == ModeCurrent || m == ModeVoltage
}

// ParseMode accepts "volt", "voltage", "v", "curr", "current" or "i" in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "volt", "voltage", "v":
		return ModeVoltage, nil
	case "curr", "current", "i", "a":
		return ModeCurrent, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// State is an on/off switch state.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

func (s State) String() string {
	return string(s)
}

func (s State) valid() bool {
	return s == StateOn || s == StateOff
}

// StateOf converts a boolean into a State.
func StateOf(on bool) State {
	if on {
		return StateOn
	}
	return StateOff
}

// ParseState accepts "on", "off", "1" or "0" in any case.
func ParseState(s string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "1":
		return StateOn, nil
	case "off", "0":
		return StateOff, nil
	}
	return "", fmt.Errorf("%w: state %q", ErrInvalidMode, s)
}

// Speed is the measurement integration time in power line cycles (PLC).
type Speed float64

const (
	SpeedFast         Speed = 0.01
	SpeedMedium       Speed = 0.1
	SpeedNormal       Speed = 1
	SpeedHighAccuracy Speed = 10
)

func (s Speed) String() string {
	return formatValue(float64(s))
}

// formatValue renders a number the way the instrument expects numeric parameters.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
