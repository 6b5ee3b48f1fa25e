package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/gosmu/pkg/config"
	"github.com/itohio/gosmu/pkg/monitor"
	"github.com/itohio/gosmu/pkg/scope"
	"github.com/itohio/gosmu/pkg/smu"
)

func main() {
	var (
		addressFlag = flag.String("a", "", "VISA address override (e.g., TCPIP0::192.168.1.10::5025::SOCKET or ASRL3::INSTR)")
		configFlag  = flag.String("config", "config.yaml", "Configuration file path")
		mockFlag    = flag.Bool("mock", false, "Use simulated instrument instead of a real one")
	)
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *addressFlag != "" {
		cfg.Instrument.Address = *addressFlag
	}

	application := app.NewWithID("com.itohio.gosmu")

	window := application.NewWindow("Source Measure Unit")
	window.Resize(fyne.NewSize(1200, 800))
	window.CenterOnScreen()

	state := &appState{
		cfg:        cfg,
		configPath: *configFlag,
		window:     window,
		useMock:    *mockFlag,
		recorder:   monitor.NewRecorder(windowDuration(cfg)),
	}

	toolbar := createToolbar(state)

	scopeWidget := scope.New(windowDuration(cfg))
	state.scopeWidget = scopeWidget

	state.channels = []*channelPanel{
		newChannelPanel(state, 1),
		newChannelPanel(state, 2),
	}
	channels := container.NewVBox(state.channels[0].card, state.channels[1].card)

	// Throttle scope updates to ~60 FPS
	const updateInterval = 16 * time.Millisecond
	state.recorder.OnUpdate(func(samples []monitor.Sample) {
		state.updateMu.Lock()
		now := time.Now()
		if now.Sub(state.lastUpdateTime) < updateInterval {
			state.updateMu.Unlock()
			return
		}
		state.lastUpdateTime = now
		state.updateMu.Unlock()

		fyne.Do(func() {
			scopeWidget.UpdateData(samples)
		})
	})

	window.SetContent(container.NewBorder(
		toolbar,
		nil,
		container.NewVScroll(channels),
		nil,
		scopeWidget,
	))
	window.SetOnClosed(func() {
		disconnect(state)
	})
	window.ShowAndRun()
}

// monitorChain tracks the goroutines of a running monitor for graceful shutdown.
type monitorChain struct {
	cancel   context.CancelFunc
	recorder chan struct{} // Closed when the recorder goroutine exits
}

// appState holds the application state.
type appState struct {
	cfg         *config.Config
	configPath  string
	device      *smu.Device
	scopeWidget *scope.ScopeWidget
	recorder    *monitor.Recorder
	window      fyne.Window
	connectBtn  *widget.Button
	resetBtn    *widget.Button
	monitorBtn  *widget.Button
	status      *widget.Label
	channels    []*channelPanel
	useMock     bool
	chain       *monitorChain // nil if not monitoring

	// Throttling for scope updates
	lastUpdateTime time.Time
	updateMu       sync.Mutex
}

func (s *appState) connected() bool {
	return s.device != nil && s.device.IsConnected()
}

// showError reports err in a dialog and the log.
func (s *appState) showError(what string, err error) {
	log.Printf("Failed to %s: %v", what, err)
	dialog.ShowError(fmt.Errorf("failed to %s: %w", what, err), s.window)
}

// createToolbar creates the toolbar with Connect, Reset, Monitor and Settings buttons.
func createToolbar(state *appState) fyne.CanvasObject {
	state.connectBtn = widget.NewButtonWithIcon("Connect", theme.LoginIcon(), func() {
		handleConnect(state)
	})

	state.resetBtn = widget.NewButtonWithIcon("Reset", theme.MediaReplayIcon(), func() {
		handleReset(state)
	})
	state.resetBtn.Disable()

	state.monitorBtn = widget.NewButtonWithIcon("Monitor", theme.MediaPlayIcon(), func() {
		handleMonitor(state)
	})
	state.monitorBtn.Disable()

	settingsBtn := widget.NewButtonWithIcon("", theme.SettingsIcon(), func() {
		showSettingsDialog(state)
	})

	state.status = widget.NewLabel("Disconnected")

	return container.NewBorder(
		nil,
		nil,
		container.NewHBox(state.connectBtn, state.resetBtn, state.monitorBtn, settingsBtn),
		nil,
		state.status,
	)
}

// handleConnect handles the connect/disconnect button click.
func handleConnect(state *appState) {
	if state.connected() {
		disconnect(state)
		return
	}

	dev, err := smu.Open(state.cfg, state.useMock)
	if err != nil {
		if state.useMock {
			state.showError("connect to simulated instrument", err)
		} else {
			state.showError("connect to "+state.cfg.Instrument.Address, err)
		}
		return
	}
	state.device = dev
	log.Printf("Connected to %s", dev.ID())

	state.connectBtn.SetText("Disconnect")
	state.connectBtn.SetIcon(theme.LogoutIcon())
	state.resetBtn.Enable()
	state.monitorBtn.Enable()
	state.status.SetText(dev.ID())
	for _, p := range state.channels {
		p.attach(dev)
	}
}

// disconnect stops monitoring and closes the device.
func disconnect(state *appState) {
	stopMonitor(state)
	if state.device == nil {
		return
	}

	if err := state.device.Close(); err != nil {
		log.Printf("Error closing instrument: %v", err)
	}
	state.device = nil
	log.Printf("Disconnected")

	state.connectBtn.SetText("Connect")
	state.connectBtn.SetIcon(theme.LoginIcon())
	state.resetBtn.Disable()
	state.monitorBtn.Disable()
	state.status.SetText("Disconnected")
	for _, p := range state.channels {
		p.detach()
	}
}

func handleReset(state *appState) {
	if !state.connected() {
		return
	}
	stopMonitor(state)
	if err := state.device.Reset(); err != nil {
		state.showError("reset instrument", err)
		return
	}
	// *RST drops the channel configuration
	if err := state.device.Apply(state.cfg.Channels); err != nil {
		state.showError("configure channels", err)
	}
	for _, p := range state.channels {
		p.resetControls()
	}
}

// handleMonitor starts or stops periodic measurement of the monitored channel.
// Spot measurements switch the output of that channel on.
func handleMonitor(state *appState) {
	if state.chain != nil {
		stopMonitor(state)
		return
	}
	if !state.connected() {
		return
	}

	ch, err := state.device.Channel(state.cfg.Monitor.Channel)
	if err != nil {
		state.showError("start monitor", err)
		return
	}

	state.recorder.Reset()
	state.scopeWidget.Clear()

	ctx, cancel := context.WithCancel(context.Background())
	stream := monitor.NewPoller(ch, state.cfg.Monitor.Interval, monitor.DefaultBufferSize).Run(ctx)
	if n := state.cfg.Monitor.AverageSamples; n > 0 {
		stream = monitor.NewAveraging(n, monitor.DefaultBufferSize)(stream)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		state.recorder.Process(stream)
	}()

	state.chain = &monitorChain{cancel: cancel, recorder: done}
	state.monitorBtn.SetIcon(theme.MediaStopIcon())
	state.channels[state.cfg.Monitor.Channel-1].setOutput(true)
}

// stopMonitor gracefully closes the monitor chain and waits for it to drain.
func stopMonitor(state *appState) {
	if state.chain == nil {
		return
	}
	state.chain.cancel()
	<-state.chain.recorder
	state.chain = nil
	state.monitorBtn.SetIcon(theme.MediaPlayIcon())
}

func windowDuration(cfg *config.Config) time.Duration {
	return time.Duration(cfg.Monitor.WindowSeconds * float64(time.Second))
}
