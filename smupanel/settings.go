package main

import (
	"fmt"
	"strconv"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gosmu/pkg/visa"
)

// showSettingsDialog displays a settings dialog with tabs for all configuration options.
func showSettingsDialog(state *appState) {
	tabs := container.NewAppTabs(
		createInstrumentTab(state),
		createChannelsTab(state),
		createMonitorTab(state),
		createMockTab(state),
	)

	content := container.NewBorder(nil, nil, nil, nil, tabs)
	content.Resize(fyne.NewSize(600, 500))

	d := dialog.NewCustom("Settings", "Close", content, state.window)
	d.Resize(fyne.NewSize(600, 500))
	d.Show()
}

// saveConfig validates and writes the configuration file.
func saveConfig(state *appState) bool {
	if err := state.cfg.Validate(); err != nil {
		state.showError("apply settings", err)
		return false
	}
	if err := state.cfg.Save(state.configPath); err != nil {
		state.showError("save config", err)
		return false
	}
	return true
}

// createInstrumentTab creates the Instrument connection tab. Serial ports found
// on the system are offered as ASRL addresses.
func createInstrumentTab(state *appState) *container.TabItem {
	var options []string
	if ports, err := visa.Ports(); err == nil {
		for _, port := range ports {
			options = append(options, port.Address())
		}
	}

	addressEntry := widget.NewSelectEntry(options)
	addressEntry.SetText(state.cfg.Instrument.Address)

	modelEntry := widget.NewEntry()
	modelEntry.SetText(state.cfg.Instrument.Model)

	baudEntry := widget.NewEntry()
	baudEntry.SetText(strconv.Itoa(state.cfg.Instrument.BaudRate))

	timeoutEntry := widget.NewEntry()
	timeoutEntry.SetText(state.cfg.Instrument.Timeout.String())

	traceCheck := widget.NewCheck("", nil)
	traceCheck.SetChecked(state.cfg.Instrument.Trace)

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Address", Widget: addressEntry},
			{Text: "Model", Widget: modelEntry},
			{Text: "Baud Rate", Widget: baudEntry},
			{Text: "Timeout", Widget: timeoutEntry},
			{Text: "Trace SCPI", Widget: traceCheck},
		},
		OnSubmit: func() {
			addressChanged := state.cfg.Instrument.Address != addressEntry.Text
			wasConnected := state.connected()

			state.cfg.Instrument.Address = addressEntry.Text
			state.cfg.Instrument.Model = modelEntry.Text
			if baud, err := strconv.Atoi(baudEntry.Text); err == nil {
				state.cfg.Instrument.BaudRate = baud
			}
			if timeout, err := time.ParseDuration(timeoutEntry.Text); err == nil {
				state.cfg.Instrument.Timeout = timeout
			}
			state.cfg.Instrument.Trace = traceCheck.Checked

			if !saveConfig(state) {
				return
			}

			// Reconnect to the new address
			if addressChanged && wasConnected && !state.useMock {
				disconnect(state)
				handleConnect(state)
			}
		},
	}

	return container.NewTabItem("Instrument", form)
}

// createChannelsTab creates the per-channel configuration tab.
func createChannelsTab(state *appState) *container.TabItem {
	type channelEntries struct {
		voltageRange *widget.Entry
		currentRange *widget.Entry
		fourWire     *widget.Check
		nplc         *widget.Entry
	}

	entries := make([]channelEntries, len(state.cfg.Channels))
	var items []*widget.FormItem
	for i, cc := range state.cfg.Channels {
		e := channelEntries{
			voltageRange: widget.NewEntry(),
			currentRange: widget.NewEntry(),
			fourWire:     widget.NewCheck("", nil),
			nplc:         widget.NewEntry(),
		}
		e.voltageRange.SetText(formatFloat(cc.VoltageRange))
		e.currentRange.SetText(formatFloat(cc.CurrentRange))
		e.fourWire.SetChecked(cc.FourWire)
		e.nplc.SetText(formatFloat(cc.NPLC))
		entries[i] = e

		n := i + 1
		items = append(items,
			&widget.FormItem{Text: fmt.Sprintf("CH%d Voltage Range (V)", n), Widget: e.voltageRange},
			&widget.FormItem{Text: fmt.Sprintf("CH%d Current Range (A)", n), Widget: e.currentRange},
			&widget.FormItem{Text: fmt.Sprintf("CH%d 4-wire", n), Widget: e.fourWire},
			&widget.FormItem{Text: fmt.Sprintf("CH%d NPLC (0=keep)", n), Widget: e.nplc},
		)
	}

	form := &widget.Form{
		Items: items,
		OnSubmit: func() {
			for i, e := range entries {
				cc := &state.cfg.Channels[i]
				if v, err := strconv.ParseFloat(e.voltageRange.Text, 64); err == nil {
					cc.VoltageRange = v
				}
				if v, err := strconv.ParseFloat(e.currentRange.Text, 64); err == nil {
					cc.CurrentRange = v
				}
				cc.FourWire = e.fourWire.Checked
				if v, err := strconv.ParseFloat(e.nplc.Text, 64); err == nil {
					cc.NPLC = v
				}
			}
			if !saveConfig(state) {
				return
			}

			if state.connected() {
				if err := state.device.Apply(state.cfg.Channels); err != nil {
					state.showError("configure channels", err)
				}
			}
		},
	}

	return container.NewTabItem("Channels", form)
}

// createMonitorTab creates the Monitor configuration tab.
func createMonitorTab(state *appState) *container.TabItem {
	channelSelect := widget.NewSelect([]string{"1", "2"}, nil)
	channelSelect.SetSelected(strconv.Itoa(state.cfg.Monitor.Channel))

	intervalEntry := widget.NewEntry()
	intervalEntry.SetText(state.cfg.Monitor.Interval.String())

	windowSecondsEntry := widget.NewEntry()
	windowSecondsEntry.SetText(fmt.Sprintf("%.1f", state.cfg.Monitor.WindowSeconds))

	averageSamplesEntry := widget.NewEntry()
	averageSamplesEntry.SetText(strconv.Itoa(state.cfg.Monitor.AverageSamples))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Channel", Widget: channelSelect},
			{Text: "Interval", Widget: intervalEntry},
			{Text: "Window (seconds)", Widget: windowSecondsEntry},
			{Text: "Average Samples (0=disabled)", Widget: averageSamplesEntry},
		},
		OnSubmit: func() {
			if ch, err := strconv.Atoi(channelSelect.Selected); err == nil {
				state.cfg.Monitor.Channel = ch
			}
			if interval, err := time.ParseDuration(intervalEntry.Text); err == nil {
				state.cfg.Monitor.Interval = interval
			}
			if ws, err := strconv.ParseFloat(windowSecondsEntry.Text, 64); err == nil {
				state.cfg.Monitor.WindowSeconds = ws
			}
			if avg, err := strconv.Atoi(averageSamplesEntry.Text); err == nil {
				state.cfg.Monitor.AverageSamples = avg
			}
			saveConfig(state)
			// Takes effect on the next monitor start
		},
	}

	return container.NewTabItem("Monitor", form)
}

// createMockTab creates the simulated instrument configuration tab.
func createMockTab(state *appState) *container.TabItem {
	identityEntry := widget.NewEntry()
	identityEntry.SetText(state.cfg.Mock.Identity)

	loadEntry := widget.NewEntry()
	loadEntry.SetText(formatFloat(state.cfg.Mock.Load))

	noiseLevelEntry := widget.NewEntry()
	noiseLevelEntry.SetText(formatFloat(state.cfg.Mock.NoiseLevel))

	form := &widget.Form{
		Items: []*widget.FormItem{
			{Text: "Identity", Widget: identityEntry},
			{Text: "Load (Ω)", Widget: loadEntry},
			{Text: "Noise Level (relative)", Widget: noiseLevelEntry},
		},
		OnSubmit: func() {
			state.cfg.Mock.Identity = identityEntry.Text
			if load, err := strconv.ParseFloat(loadEntry.Text, 64); err == nil {
				state.cfg.Mock.Load = load
			}
			if nl, err := strconv.ParseFloat(noiseLevelEntry.Text, 64); err == nil {
				state.cfg.Mock.NoiseLevel = nl
			}
			saveConfig(state)
		},
	}

	return container.NewTabItem("Mock", form)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
