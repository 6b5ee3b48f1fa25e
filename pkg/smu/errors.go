package smu

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by every operation after the device is closed.
	ErrNotConnected = errors.New("device not connected")
	// ErrUnexpectedDevice is returned when the identity does not match the expected model.
	ErrUnexpectedDevice = errors.New("unexpected device found")
	// ErrRangeExceeded is returned when a limit exceeds the channel range ceiling.
	ErrRangeExceeded = errors.New("the limit is not within the range, set the range first")
	// ErrInvalidRange is returned for non-positive range ceilings.
	ErrInvalidRange = errors.New("range must be positive")
	// ErrInvalidSpeed is returned for non-positive measurement speeds.
	ErrInvalidSpeed = errors.New("measurement speed must be a positive number of power line cycles")
	// ErrInvalidMode is returned for a Mode or State outside the defined set.
	ErrInvalidMode = errors.New("invalid mode")
)

// UnexpectedDeviceError reports the identity string of a rejected instrument.
type UnexpectedDeviceError struct {
	ID    string
	Model string
}

func (e *UnexpectedDeviceError) Error() string {
	return fmt.Sprintf("unexpected device found: %q is not a %s", e.ID, e.Model)
}

func (e *UnexpectedDeviceError) Is(target error) bool {
	return target == ErrUnexpectedDevice
}

// RangeExceededError reports a limit above the configured range ceiling.
type RangeExceededError struct {
	Quantity Mode
	Value    float64
	Range    float64
}

func (e *RangeExceededError) Error() string {
	return fmt.Sprintf("%s limit %g exceeds range %g: %v", e.Quantity.Quantity(), e.Value, e.Range, ErrRangeExceeded)
}

func (e *RangeExceededError) Is(target error) bool {
	return target == ErrRangeExceeded
}
