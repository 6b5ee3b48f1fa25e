package smu

import (
	"fmt"
	"log"
	"os"

	"github.com/itohio/gosmu/pkg/config"
	"github.com/itohio/gosmu/pkg/visa"
)

// Open connects to the instrument described by cfg, or to a simulated one when
// useMock is set, and applies the configured channel settings.
func Open(cfg *config.Config, useMock bool) (*Device, error) {
	opts := []Option{WithModel(cfg.Instrument.Model)}
	if cfg.Instrument.Trace {
		opts = append(opts, WithLogger(log.New(os.Stderr, "smu ", log.LstdFlags|log.Lmicroseconds)))
	}

	var (
		dev *Device
		err error
	)
	if useMock {
		dev, err = New(NewMock(&cfg.Mock), opts...)
	} else {
		dev, err = Connect(cfg.Instrument.Address, visa.Config{
			BaudRate: cfg.Instrument.BaudRate,
			Timeout:  cfg.Instrument.Timeout,
		}, opts...)
	}
	if err != nil {
		return nil, err
	}

	if err := dev.Apply(cfg.Channels); err != nil {
		dev.Close()
		return nil, err
	}
	return dev, nil
}

// Apply configures the channels in order. Zero ranges and NPLC leave the
// current setting untouched.
func (d *Device) Apply(channels []config.ChannelConfig) error {
	for i, cc := range channels {
		ch, err := d.Channel(i + 1)
		if err != nil {
			return err
		}
		if err := applyChannel(ch, cc); err != nil {
			return fmt.Errorf("channel %s: %w", ch.ID(), err)
		}
	}
	return nil
}

func applyChannel(ch *Channel, cc config.ChannelConfig) error {
	if cc.VoltageRange > 0 {
		if err := ch.SetVoltageRange(cc.VoltageRange); err != nil {
			return err
		}
	}
	if cc.CurrentRange > 0 {
		if err := ch.SetCurrentRange(cc.CurrentRange); err != nil {
			return err
		}
	}
	if err := ch.SetSenseWireMode(cc.FourWire); err != nil {
		return err
	}
	if cc.NPLC > 0 {
		for _, mode := range []Mode{ModeVoltage, ModeCurrent} {
			if err := ch.SetMeasurementSpeed(Speed(cc.NPLC), mode); err != nil {
				return err
			}
		}
	}
	return nil
}
