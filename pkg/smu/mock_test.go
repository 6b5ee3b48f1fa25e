package smu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/gosmu/pkg/config"
)

func quietMock() *Mock {
	return NewMock(&config.MockConfig{
		Identity: "Keysight Technologies,B2902B,MY00000000,5.0",
		Load:     1000,
	})
}

func TestNewMock_NilConfig(t *testing.T) {
	m := NewMock(nil)
	require.NotNil(t, m.cfg)
	assert.Contains(t, m.cfg.Identity, DefaultModel)
	assert.Equal(t, float64(1000), m.cfg.Load)
	assert.Equal(t, 0.001, m.cfg.NoiseLevel)
}

func TestMock_Identity(t *testing.T) {
	m := quietMock()
	idn, err := m.Query("*IDN?")
	require.NoError(t, err)
	assert.Equal(t, "Keysight Technologies,B2902B,MY00000000,5.0", idn)

	opc, err := m.Query("*OPC?")
	require.NoError(t, err)
	assert.Equal(t, "1", opc)
}

func TestMock_DrivesDevice(t *testing.T) {
	m := quietMock()
	dev, err := New(m)
	require.NoError(t, err)
	ch := dev.Channel1()

	require.NoError(t, ch.SetModeVoltageSource())
	require.NoError(t, ch.SetVoltage(5))
	// raise the current compliance to 10 mA; see SetVoltageLimit
	require.NoError(t, ch.SetVoltageLimit(0.01))
	require.NoError(t, ch.EnableOutput())

	raw, err := ch.MeasureCurrent()
	require.NoError(t, err)
	assert.Equal(t, "+5.000000E-03", raw)

	raw, err = ch.MeasureVoltage()
	require.NoError(t, err)
	v, err := ParseReading(raw)
	require.NoError(t, err)
	assert.InDelta(t, 5.0, v, 1e-9)

	assert.Equal(t, []string{
		"*IDN?",
		":SOUR1:FUNC:MODE VOLT",
		":SOUR1:VOLT 5",
		":SENS1:CURR:PROT 0.01",
		":OUTP1 ON",
		"MEAS:CURR? (@1)",
		"MEAS:VOLT? (@1)",
	}, m.History())
}

func TestMock_Compliance(t *testing.T) {
	m := quietMock()

	// default current compliance is 100 uA: 5 V into 1 kOhm is clamped
	require.NoError(t, m.Write(":SOUR2:VOLT 5"))
	require.NoError(t, m.Write(":OUTP2 ON"))
	raw, err := m.Query("MEAS:CURR? (@2)")
	require.NoError(t, err)
	i, err := ParseReading(raw)
	require.NoError(t, err)
	assert.InDelta(t, 100e-6, i, 1e-12)

	raw, err = m.Query("MEAS:VOLT? (@2)")
	require.NoError(t, err)
	v, err := ParseReading(raw)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, v, 1e-9)
}

func TestMock_CurrentSource(t *testing.T) {
	m := quietMock()

	require.NoError(t, m.Write(":SOUR1:FUNC:MODE CURR"))
	require.NoError(t, m.Write(":SOUR1:CURR 0.001"))
	require.NoError(t, m.Write(":SENS1:VOLT:PROT 20"))

	raw, err := m.Query("MEAS:VOLT? (@1)")
	require.NoError(t, err)
	v, err := ParseReading(raw)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, v, 1e-9)

	// voltage compliance clamps the current
	require.NoError(t, m.Write(":SENS1:VOLT:PROT 0.5"))
	raw, err = m.Query("MEAS:CURR? (@1)")
	require.NoError(t, err)
	i, err := ParseReading(raw)
	require.NoError(t, err)
	assert.InDelta(t, 0.0005, i, 1e-12)
}

func TestMock_MeasureEnablesOutput(t *testing.T) {
	m := quietMock()
	assert.False(t, m.Output("1"))

	_, err := m.Query("MEAS:VOLT? (@1)")
	require.NoError(t, err)
	assert.True(t, m.Output("1"))
	assert.False(t, m.Output("2"))

	require.NoError(t, m.Write(":OUTP1 OFF"))
	assert.False(t, m.Output("1"))
}

func TestMock_Reset(t *testing.T) {
	m := quietMock()
	require.NoError(t, m.Write(":OUTP1 ON"))
	require.NoError(t, m.Write(":SOUR1:VOLT 3"))
	require.NoError(t, m.Write("*RST"))

	assert.False(t, m.Output("1"))
	assert.Equal(t, 0.0, m.channels["1"].level[ModeVoltage])
}

func TestMock_State(t *testing.T) {
	m := quietMock()
	require.NoError(t, m.Write(":SENS2:REM ON"))
	require.NoError(t, m.Write(":SENS2:CURR:NPLC 0.01"))

	ch := m.channels["2"]
	assert.True(t, ch.fourWire)
	assert.Equal(t, 0.01, ch.nplc[ModeCurrent])
	assert.Equal(t, 1.0, ch.nplc[ModeVoltage])
}

func TestMock_InvalidCommands(t *testing.T) {
	m := quietMock()

	for _, cmd := range []string{
		":SOUR3:VOLT 1",
		":SOUR1:RES 1",
		":SOUR1:VOLT abc",
		":SOUR1:FUNC:MODE RES",
		":OUTP1 MAYBE",
		":SENS1:CURR:NPLC 0",
		":SENS1:CURR:APER 0.1",
		":SYST:BEEP",
	} {
		assert.Error(t, m.Write(cmd), cmd)
	}

	for _, q := range []string{"MEAS:RES? (@1)", "MEAS:VOLT? (@3)", "MEAS:VOLT? 1", "SYST:ERR?"} {
		_, err := m.Query(q)
		assert.Error(t, err, q)
	}
}

func TestMock_Noise(t *testing.T) {
	m := NewMock(&config.MockConfig{Identity: "B2902B", Load: 1000, NoiseLevel: 0.01})
	require.NoError(t, m.Write(":SOUR1:VOLT 1"))

	for range 20 {
		raw, err := m.Query("MEAS:VOLT? (@1)")
		require.NoError(t, err)
		v, err := ParseReading(raw)
		require.NoError(t, err)
		// 1 V across 1 kOhm stays within the 100 uA compliance
		assert.InEpsilon(t, 0.1, v, 0.011)
	}
}

func TestMock_Closed(t *testing.T) {
	m := quietMock()
	require.NoError(t, m.Close())

	assert.ErrorIs(t, m.Write("*RST"), ErrClosed)
	_, err := m.Query("*IDN?")
	assert.ErrorIs(t, err, ErrClosed)
}
