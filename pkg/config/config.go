package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Instrument InstrumentConfig `yaml:"instrument"`
	Channels   []ChannelConfig  `yaml:"channels"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Mock       MockConfig       `yaml:"mock"`
}

// InstrumentConfig contains connection parameters.
type InstrumentConfig struct {
	Address  string        `yaml:"address"`   // VISA resource string
	Model    string        `yaml:"model"`     // Required identity substring
	BaudRate int           `yaml:"baud_rate"` // Serial resources only
	Timeout  time.Duration `yaml:"timeout"`
	Trace    bool          `yaml:"trace"` // Log every command and response
}

// ChannelConfig contains per-channel settings applied after connecting.
type ChannelConfig struct {
	VoltageRange float64 `yaml:"voltage_range"` // V
	CurrentRange float64 `yaml:"current_range"` // A
	FourWire     bool    `yaml:"four_wire"`
	NPLC         float64 `yaml:"nplc"` // 0 leaves the instrument setting untouched
}

// MonitorConfig contains parameters of the live measurement view.
type MonitorConfig struct {
	Channel        int           `yaml:"channel"`         // 1 or 2
	Interval       time.Duration `yaml:"interval"`        // Time between spot measurements
	WindowSeconds  float64       `yaml:"window_seconds"`  // History kept for display
	AverageSamples int           `yaml:"average_samples"` // Number of samples to average (0 = disabled, default)
}

// MockConfig contains simulated instrument configuration.
type MockConfig struct {
	Identity   string  `yaml:"identity"`    // *IDN? response
	Load       float64 `yaml:"load"`        // Resistive load on both channels (Ohm)
	NoiseLevel float64 `yaml:"noise_level"` // Relative measurement noise
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Instrument: InstrumentConfig{
			Address:  "TCPIP0::192.168.1.100::5025::SOCKET",
			Model:    "B2902B",
			BaudRate: 9600,
			Timeout:  5 * time.Second,
		},
		Channels: []ChannelConfig{
			{VoltageRange: 20, CurrentRange: 2},
			{VoltageRange: 20, CurrentRange: 2},
		},
		Monitor: MonitorConfig{
			Channel:        1,
			Interval:       200 * time.Millisecond,
			WindowSeconds:  30,
			AverageSamples: 0, // No averaging by default
		},
		Mock: MockConfig{
			Identity:   "Keysight Technologies,B2902B,MY00000000,5.0.2037.5005",
			Load:       1000,
			NoiseLevel: 0.001,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Channel returns the settings of channel n (1 or 2).
func (c *Config) Channel(n int) ChannelConfig {
	if n < 1 || n > len(c.Channels) {
		return Default().Channels[0]
	}
	return c.Channels[n-1]
}

// Validate reports settings the driver would reject.
func (c *Config) Validate() error {
	if len(c.Channels) > 2 {
		return fmt.Errorf("invalid config: %d channels configured, the instrument has 2", len(c.Channels))
	}
	for i, ch := range c.Channels {
		if ch.VoltageRange < 0 || ch.CurrentRange < 0 {
			return fmt.Errorf("invalid config: channel %d: ranges must be positive", i+1)
		}
		if ch.NPLC < 0 {
			return fmt.Errorf("invalid config: channel %d: nplc must not be negative", i+1)
		}
	}
	if c.Monitor.Channel != 1 && c.Monitor.Channel != 2 {
		return fmt.Errorf("invalid config: monitor channel %d, expected 1 or 2", c.Monitor.Channel)
	}
	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Instrument.Address == "" {
		c.Instrument.Address = def.Instrument.Address
	}
	if c.Instrument.Model == "" {
		c.Instrument.Model = def.Instrument.Model
	}
	if c.Instrument.BaudRate == 0 {
		c.Instrument.BaudRate = def.Instrument.BaudRate
	}
	if c.Instrument.Timeout == 0 {
		c.Instrument.Timeout = def.Instrument.Timeout
	}

	for len(c.Channels) < len(def.Channels) {
		c.Channels = append(c.Channels, ChannelConfig{})
	}
	for i := range c.Channels {
		if c.Channels[i].VoltageRange == 0 {
			c.Channels[i].VoltageRange = def.Channels[0].VoltageRange
		}
		if c.Channels[i].CurrentRange == 0 {
			c.Channels[i].CurrentRange = def.Channels[0].CurrentRange
		}
	}

	if c.Monitor.Channel == 0 {
		c.Monitor.Channel = def.Monitor.Channel
	}
	if c.Monitor.Interval == 0 {
		c.Monitor.Interval = def.Monitor.Interval
	}
	if c.Monitor.WindowSeconds == 0 {
		c.Monitor.WindowSeconds = def.Monitor.WindowSeconds
	}

	if c.Mock.Identity == "" {
		c.Mock.Identity = def.Mock.Identity
	}
	if c.Mock.Load == 0 {
		c.Mock.Load = def.Mock.Load
	}
}
