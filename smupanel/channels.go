package main

import (
	"fmt"
	"strconv"
	"strings"

	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gosmu/pkg/smu"
)

const (
	voltageSource = "Voltage source"
	currentSource = "Current source"
)

var speeds = map[string]smu.Speed{
	"Fast (0.01 PLC)":        smu.SpeedFast,
	"Medium (0.1 PLC)":       smu.SpeedMedium,
	"Normal (1 PLC)":         smu.SpeedNormal,
	"High accuracy (10 PLC)": smu.SpeedHighAccuracy,
}

// channelPanel holds the controls of one SMU channel.
type channelPanel struct {
	state *appState
	n     int
	ch    *smu.Channel // nil while disconnected

	card     *widget.Card
	mode     *widget.Select
	level    *widget.Entry
	limit    *widget.Entry
	output   *widget.Check
	fourWire *widget.Check
	speed    *widget.Select
	reading  *widget.Label
	buttons  []*widget.Button

	syncing bool // set while controls are updated from code
}

func newChannelPanel(state *appState, n int) *channelPanel {
	p := &channelPanel{state: state, n: n}

	p.mode = widget.NewSelect([]string{voltageSource, currentSource}, func(string) {
		if !p.syncing {
			p.applyMode()
		}
	})

	p.level = widget.NewEntry()
	p.level.SetPlaceHolder("0")
	p.limit = widget.NewEntry()
	p.limit.SetPlaceHolder("compliance")

	p.output = widget.NewCheck("Output", func(on bool) {
		if !p.syncing {
			p.applyOutput(on)
		}
	})
	p.fourWire = widget.NewCheck("4-wire", func(on bool) {
		if !p.syncing {
			p.run("set sense mode", func() error { return p.ch.SetSenseWireMode(on) })
		}
	})

	speedNames := make([]string, 0, len(speeds))
	for _, s := range []smu.Speed{smu.SpeedFast, smu.SpeedMedium, smu.SpeedNormal, smu.SpeedHighAccuracy} {
		speedNames = append(speedNames, speedName(s))
	}
	p.speed = widget.NewSelect(speedNames, func(name string) {
		if !p.syncing {
			p.applySpeed(speeds[name])
		}
	})

	p.reading = widget.NewLabel("-")

	levelBtn := widget.NewButton("Apply", p.applyLevel)
	limitBtn := widget.NewButton("Apply", p.applyLimit)
	measureBtn := widget.NewButton("Measure", p.measure)
	p.buttons = []*widget.Button{levelBtn, limitBtn, measureBtn}

	form := widget.NewForm(
		widget.NewFormItem("Mode", p.mode),
		widget.NewFormItem("Level", container.NewBorder(nil, nil, nil, levelBtn, p.level)),
		widget.NewFormItem("Limit", container.NewBorder(nil, nil, nil, limitBtn, p.limit)),
		widget.NewFormItem("Speed", p.speed),
		widget.NewFormItem("", container.NewHBox(p.output, p.fourWire)),
		widget.NewFormItem("Reading", container.NewBorder(nil, nil, nil, measureBtn, p.reading)),
	)
	p.card = widget.NewCard(fmt.Sprintf("Channel %d", n), "", form)

	p.resetControls()
	p.detach()
	return p
}

// attach binds the controls to dev and enables them.
func (p *channelPanel) attach(dev *smu.Device) {
	ch, err := dev.Channel(p.n)
	if err != nil {
		p.state.showError("attach channel", err)
		return
	}
	p.ch = ch

	p.withSync(func() {
		if p.n <= len(p.state.cfg.Channels) {
			p.fourWire.SetChecked(p.state.cfg.Channels[p.n-1].FourWire)
		}
	})
	p.setEnabled(true)
}

// detach disables the controls.
func (p *channelPanel) detach() {
	p.ch = nil
	p.setEnabled(false)
}

// resetControls shows the instrument state after *RST.
func (p *channelPanel) resetControls() {
	p.withSync(func() {
		p.mode.SetSelected(voltageSource)
		p.output.SetChecked(false)
		p.speed.SetSelected(speedName(smu.SpeedNormal))
	})
	p.reading.SetText("-")
}

// setOutput shows the output state without sending anything.
func (p *channelPanel) setOutput(on bool) {
	p.withSync(func() { p.output.SetChecked(on) })
}

func (p *channelPanel) setEnabled(enabled bool) {
	type enabler interface {
		Enable()
		Disable()
	}
	items := []enabler{p.mode, p.level, p.limit, p.output, p.fourWire, p.speed}
	for _, b := range p.buttons {
		items = append(items, b)
	}
	for _, item := range items {
		if enabled {
			item.Enable()
		} else {
			item.Disable()
		}
	}
}

func (p *channelPanel) withSync(fn func()) {
	p.syncing = true
	defer func() { p.syncing = false }()
	fn()
}

// run executes op on the attached channel and reports errors.
func (p *channelPanel) run(what string, op func() error) bool {
	if p.ch == nil {
		return false
	}
	if err := op(); err != nil {
		p.state.showError(fmt.Sprintf("%s on channel %d", what, p.n), err)
		return false
	}
	return true
}

func (p *channelPanel) voltageMode() bool {
	return p.mode.Selected != currentSource
}

func (p *channelPanel) applyMode() {
	if p.voltageMode() {
		p.run("set mode", p.ch.SetModeVoltageSource)
	} else {
		p.run("set mode", p.ch.SetModeCurrentSource)
	}
}

func (p *channelPanel) applyLevel() {
	v, err := parseEntry(p.level)
	if err != nil {
		p.state.showError("parse level", err)
		return
	}
	if p.voltageMode() {
		p.run("set voltage", func() error { return p.ch.SetVoltage(v) })
	} else {
		p.run("set current", func() error { return p.ch.SetCurrent(v) })
	}
}

// applyLimit sets the compliance of the quantity that is not sourced.
func (p *channelPanel) applyLimit() {
	v, err := parseEntry(p.limit)
	if err != nil {
		p.state.showError("parse limit", err)
		return
	}
	// SetVoltageLimit programs the current protection and SetCurrentLimit the
	// voltage protection.
	if p.voltageMode() {
		p.run("set current compliance", func() error { return p.ch.SetVoltageLimit(v) })
	} else {
		p.run("set voltage compliance", func() error { return p.ch.SetCurrentLimit(v) })
	}
}

func (p *channelPanel) applyOutput(on bool) {
	op := p.ch.DisableOutput
	if on {
		op = p.ch.EnableOutput
	}
	if !p.run("switch output", op) {
		p.setOutput(!on)
	}
}

func (p *channelPanel) applySpeed(speed smu.Speed) {
	p.run("set speed", func() error {
		if err := p.ch.SetMeasurementSpeed(speed, smu.ModeVoltage); err != nil {
			return err
		}
		return p.ch.SetMeasurementSpeed(speed, smu.ModeCurrent)
	})
}

// measure takes a voltage and a current spot measurement. The instrument
// switches the output on to measure.
func (p *channelPanel) measure() {
	var v, i float64
	ok := p.run("measure", func() error {
		var err error
		if v, err = measure(p.ch.MeasureVoltage); err != nil {
			return err
		}
		i, err = measure(p.ch.MeasureCurrent)
		return err
	})
	if !ok {
		return
	}
	p.setOutput(true)
	p.reading.SetText(fmt.Sprintf("%.6g V   %.6g A", v, i))
}

func measure(read func() (string, error)) (float64, error) {
	raw, err := read()
	if err != nil {
		return 0, err
	}
	return smu.ParseReading(raw)
}

func speedName(s smu.Speed) string {
	for name, v := range speeds {
		if v == s {
			return name
		}
	}
	return s.String()
}

func parseEntry(e *widget.Entry) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(e.Text), 64)
}
