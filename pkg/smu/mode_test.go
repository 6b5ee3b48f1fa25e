package smu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"volt", ModeVoltage, false},
		{"VOLTAGE", ModeVoltage, false},
		{" v ", ModeVoltage, false},
		{"curr", ModeCurrent, false},
		{"Current", ModeCurrent, false},
		{"i", ModeCurrent, false},
		{"res", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseState(t *testing.T) {
	for in, want := range map[string]State{"on": StateOn, "ON": StateOn, "1": StateOn, "off": StateOff, "0": StateOff} {
		got, err := ParseState(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseState("toggle")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestStateOf(t *testing.T) {
	assert.Equal(t, StateOn, StateOf(true))
	assert.Equal(t, StateOff, StateOf(false))
}

func TestMode_Names(t *testing.T) {
	assert.Equal(t, "VOLT", ModeVoltage.String())
	assert.Equal(t, "voltage", ModeVoltage.Quantity())
	assert.Equal(t, "V", ModeVoltage.Unit())
	assert.Equal(t, "CURR", ModeCurrent.String())
	assert.Equal(t, "current", ModeCurrent.Quantity())
	assert.Equal(t, "A", ModeCurrent.Unit())
}

func TestSpeed_String(t *testing.T) {
	assert.Equal(t, "0.01", SpeedFast.String())
	assert.Equal(t, "0.1", SpeedMedium.String())
	assert.Equal(t, "1", SpeedNormal.String())
	assert.Equal(t, "10", SpeedHighAccuracy.String())
}
