package smu

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestChannel_CommandFormat(t *testing.T) {
	tests := []struct {
		name    string
		op      func(ch *Channel) error
		wantCmd string
	}{
		{"voltage source mode", (*Channel).SetModeVoltageSource, ":SOUR%s:FUNC:MODE VOLT"},
		{"current source mode", (*Channel).SetModeCurrentSource, ":SOUR%s:FUNC:MODE CURR"},
		{"voltage level", func(ch *Channel) error { return ch.SetVoltage(5) }, ":SOUR%s:VOLT 5"},
		{"negative voltage level", func(ch *Channel) error { return ch.SetVoltage(-1.25) }, ":SOUR%s:VOLT -1.25"},
		{"current level", func(ch *Channel) error { return ch.SetCurrent(0.001) }, ":SOUR%s:CURR 0.001"},
		{"small current level", func(ch *Channel) error { return ch.SetCurrent(1e-5) }, ":SOUR%s:CURR 1e-05"},
		{"voltage limit uses CURR protection", func(ch *Channel) error { return ch.SetVoltageLimit(10) }, ":SENS%s:CURR:PROT 10"},
		{"current limit uses VOLT protection", func(ch *Channel) error { return ch.SetCurrentLimit(0.5) }, ":SENS%s:VOLT:PROT 0.5"},
		{"output on", (*Channel).EnableOutput, ":OUTP%s ON"},
		{"output off", (*Channel).DisableOutput, ":OUTP%s OFF"},
		{"four wire", func(ch *Channel) error { return ch.SetSenseWireMode(true) }, ":SENS%s:REM ON"},
		{"two wire", func(ch *Channel) error { return ch.SetSenseWireMode(false) }, ":SENS%s:REM OFF"},
		{"fast current sensing", func(ch *Channel) error { return ch.SetMeasurementSpeed(SpeedFast, ModeCurrent) }, ":SENS%s:CURR:NPLC 0.01"},
		{"accurate voltage sensing", func(ch *Channel) error { return ch.SetMeasurementSpeed(SpeedHighAccuracy, ModeVoltage) }, ":SENS%s:VOLT:NPLC 10"},
		{"custom speed", func(ch *Channel) error { return ch.SetMeasurementSpeed(Speed(2.5), ModeVoltage) }, ":SENS%s:VOLT:NPLC 2.5"},
	}

	for _, tt := range tests {
		for _, n := range []int{1, 2} {
			t.Run(fmt.Sprintf("%s/ch%d", tt.name, n), func(t *testing.T) {
				dev, res := newTestDevice(t)
				ch, err := dev.Channel(n)
				require.NoError(t, err)

				want := fmt.Sprintf(tt.wantCmd, ch.ID())
				res.On("Write", want).Return(nil).Once()

				require.NoError(t, tt.op(ch))
				assert.Equal(t, []string{"Write " + want}, res.wire())
			})
		}
	}
}

func TestChannel_SetVoltageLimit(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{"zero", 0, false},
		{"below range", 19.999, false},
		{"at range", 20, false},
		{"negative", -5, false},
		{"just above range", 20.0001, true},
		{"far above range", 210, true},
		{"not a number", math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, res := newTestDevice(t)
			res.On("Write", mock.Anything).Return(nil)

			err := dev.Channel1().SetVoltageLimit(tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrRangeExceeded)
				var rangeErr *RangeExceededError
				require.True(t, errors.As(err, &rangeErr))
				assert.Equal(t, ModeVoltage, rangeErr.Quantity)
				if math.IsNaN(tt.value) {
					assert.True(t, math.IsNaN(rangeErr.Value))
				} else {
					assert.Equal(t, tt.value, rangeErr.Value)
				}
				assert.Equal(t, DefaultVoltageRange, rangeErr.Range)
				assert.Contains(t, err.Error(), "set the range first")
				assert.Empty(t, res.wire())
			} else {
				require.NoError(t, err)
				assert.Len(t, res.wire(), 1)
			}
		})
	}
}

func TestChannel_SetCurrentLimit(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		wantErr bool
	}{
		{"zero", 0, false},
		{"milliamps", 0.001, false},
		{"at range", 2, false},
		{"just above range", 2.0000001, true},
		{"far above range", 3, true},
		{"not a number", math.NaN(), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, res := newTestDevice(t)
			res.On("Write", mock.Anything).Return(nil)

			err := dev.Channel2().SetCurrentLimit(tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrRangeExceeded)
				var rangeErr *RangeExceededError
				require.True(t, errors.As(err, &rangeErr))
				assert.Equal(t, ModeCurrent, rangeErr.Quantity)
				assert.Equal(t, DefaultCurrentRange, rangeErr.Range)
				assert.Empty(t, res.wire())
			} else {
				require.NoError(t, err)
				assert.Len(t, res.wire(), 1)
			}
		})
	}
}

func TestChannel_Ranges(t *testing.T) {
	dev, res := newTestDevice(t)
	res.On("Write", mock.Anything).Return(nil)
	ch := dev.Channel1()

	assert.Equal(t, DefaultVoltageRange, ch.VoltageRange())
	assert.Equal(t, DefaultCurrentRange, ch.CurrentRange())

	assert.ErrorIs(t, ch.SetVoltageLimit(100), ErrRangeExceeded)
	require.NoError(t, ch.SetVoltageRange(200))
	assert.Equal(t, 200.0, ch.VoltageRange())
	require.NoError(t, ch.SetVoltageLimit(100))

	require.NoError(t, ch.SetCurrentRange(0.01))
	assert.ErrorIs(t, ch.SetCurrentLimit(0.1), ErrRangeExceeded)
	require.NoError(t, ch.SetCurrentLimit(0.01))

	assert.ErrorIs(t, ch.SetVoltageRange(0), ErrInvalidRange)
	assert.ErrorIs(t, ch.SetCurrentRange(-1), ErrInvalidRange)
	assert.Equal(t, 200.0, ch.VoltageRange())
	assert.Equal(t, 0.01, ch.CurrentRange())

	// ranges are local to a channel and never reach the instrument
	assert.Equal(t, DefaultVoltageRange, dev.Channel2().VoltageRange())
	assert.Equal(t, []string{
		"Write :SENS1:CURR:PROT 100",
		"Write :SENS1:VOLT:PROT 0.01",
	}, res.wire())
}

func TestChannel_LevelsAreNotRangeChecked(t *testing.T) {
	dev, res := newTestDevice(t)
	res.On("Write", mock.Anything).Return(nil)

	require.NoError(t, dev.Channel1().SetVoltage(100))
	require.NoError(t, dev.Channel1().SetCurrent(5))
	assert.Equal(t, []string{"Write :SOUR1:VOLT 100", "Write :SOUR1:CURR 5"}, res.wire())
}

func TestChannel_SetMeasurementSpeedInvalid(t *testing.T) {
	dev, res := newTestDevice(t)

	assert.ErrorIs(t, dev.Channel1().SetMeasurementSpeed(0, ModeVoltage), ErrInvalidSpeed)
	assert.ErrorIs(t, dev.Channel1().SetMeasurementSpeed(-1, ModeVoltage), ErrInvalidSpeed)
	assert.Empty(t, res.wire())
}

func TestChannel_Measure(t *testing.T) {
	tests := []struct {
		name      string
		channel   int
		measure   func(ch *Channel) (string, error)
		wantQuery string
	}{
		{"voltage ch1", 1, (*Channel).MeasureVoltage, "MEAS:VOLT? (@1)"},
		{"voltage ch2", 2, (*Channel).MeasureVoltage, "MEAS:VOLT? (@2)"},
		{"current ch1", 1, (*Channel).MeasureCurrent, "MEAS:CURR? (@1)"},
		{"current ch2", 2, (*Channel).MeasureCurrent, "MEAS:CURR? (@2)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev, res := newTestDevice(t)
			const raw = "+4.999870E+00\n"
			res.On("Query", tt.wantQuery).Return(raw, nil).Once()

			ch, err := dev.Channel(tt.channel)
			require.NoError(t, err)

			got, err := tt.measure(ch)
			require.NoError(t, err)
			assert.Equal(t, raw, got)
			assert.Equal(t, []string{"Query " + tt.wantQuery}, res.wire())
		})
	}
}

func TestChannel_EndToEndSequence(t *testing.T) {
	dev, res := newTestDevice(t)
	res.On("Write", mock.Anything).Return(nil)
	res.On("Query", "MEAS:CURR? (@1)").Return("+5.000000E-03", nil)

	ch := dev.Channel1()
	require.NoError(t, ch.SetModeVoltageSource())
	require.NoError(t, ch.SetVoltage(5))
	require.NoError(t, ch.EnableOutput())
	reading, err := ch.MeasureCurrent()
	require.NoError(t, err)

	assert.Equal(t, "+5.000000E-03", reading)
	assert.Equal(t, []string{
		"Write :SOUR1:FUNC:MODE VOLT",
		"Write :SOUR1:VOLT 5",
		"Write :OUTP1 ON",
		"Query MEAS:CURR? (@1)",
	}, res.wire())
}

func TestParseReading(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    float64
		wantErr bool
	}{
		{"scientific", "+4.999870E+00", 4.99987, false},
		{"with terminator", "-1.000000E-03\r\n", -0.001, false},
		{"plain", "12.5", 12.5, false},
		{"multiple fields", "+1.0E+00,+2.0E-03", 1.0, false},
		{"empty", "", 0, true},
		{"garbage", "OVERFLOW", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReading(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}
