package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/itohio/gosmu/pkg/smu"
)

var errUsage = errors.New("invalid arguments")

// console executes text commands against a device and prints results to out.
type console struct {
	dev *smu.Device
	out io.Writer
}

// execute runs one command line. It returns false when the session should end.
func (c *console) execute(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		c.printHelp()

	case "idn":
		fmt.Fprintln(c.out, c.dev.ID())

	case "reset":
		err = c.dev.Reset()

	case "write", "w":
		if len(args) == 0 {
			err = errUsage
			break
		}
		err = c.dev.WriteCommand(strings.Join(args, " "))

	case "query", "q":
		if len(args) == 0 {
			err = errUsage
			break
		}
		var resp string
		if resp, err = c.dev.WriteQuery(strings.Join(args, " ")); err == nil {
			fmt.Fprintln(c.out, resp)
		}

	case "ch":
		err = c.channel(args)

	case "exit", "quit":
		return false

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
		return true
	}

	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
	return true
}

// channel runs "ch <n> <op> [args]".
func (c *console) channel(args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("%w: channel %q", errUsage, args[0])
	}
	ch, err := c.dev.Channel(n)
	if err != nil {
		return err
	}
	op, args := strings.ToLower(args[1]), args[2:]

	switch op {
	case "output":
		if len(args) != 1 {
			return errUsage
		}
		state, err := smu.ParseState(args[0])
		if err != nil {
			return err
		}
		if state == smu.StateOn {
			return ch.EnableOutput()
		}
		return ch.DisableOutput()

	case "sense":
		if len(args) != 1 {
			return errUsage
		}
		switch args[0] {
		case "2":
			return ch.SetSenseWireMode(false)
		case "4":
			return ch.SetSenseWireMode(true)
		}
		return fmt.Errorf("%w: sense %q, want 2 or 4", errUsage, args[0])
	}

	if len(args) == 0 {
		return errUsage
	}
	mode, err := smu.ParseMode(args[0])
	if err != nil {
		return err
	}

	switch op {
	case "mode":
		if mode == smu.ModeVoltage {
			return ch.SetModeVoltageSource()
		}
		return ch.SetModeCurrentSource()

	case "measure":
		var raw string
		if mode == smu.ModeVoltage {
			raw, err = ch.MeasureVoltage()
		} else {
			raw, err = ch.MeasureCurrent()
		}
		if err != nil {
			return err
		}
		c.printReading(raw, mode)
		return nil
	}

	if len(args) != 2 {
		return errUsage
	}
	value, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("%w: value %q", errUsage, args[1])
	}

	switch op {
	case "level":
		if mode == smu.ModeVoltage {
			return ch.SetVoltage(value)
		}
		return ch.SetCurrent(value)

	case "limit":
		if mode == smu.ModeVoltage {
			return ch.SetVoltageLimit(value)
		}
		return ch.SetCurrentLimit(value)

	case "range":
		if mode == smu.ModeVoltage {
			return ch.SetVoltageRange(value)
		}
		return ch.SetCurrentRange(value)

	case "nplc":
		return ch.SetMeasurementSpeed(smu.Speed(value), mode)
	}

	return fmt.Errorf("%w: unknown channel command %q", errUsage, op)
}

func (c *console) printReading(raw string, mode smu.Mode) {
	v, err := smu.ParseReading(raw)
	if err != nil {
		fmt.Fprintln(c.out, raw)
		return
	}
	fmt.Fprintf(c.out, "%s %s\n", strconv.FormatFloat(v, 'g', -1, 64), mode.Unit())
}

func (c *console) printHelp() {
	fmt.Fprintln(c.out, `
SMU Commands:
  idn                          - Show instrument identity
  reset                        - Reset the instrument (*RST)
  write <scpi>                 - Send a raw command
  query <scpi>                 - Send a raw query and print the response

  Channel (n = 1 or 2):
    ch <n> mode <volt|curr>        - Select source function
    ch <n> level <volt|curr> <v>   - Set source level
    ch <n> limit <volt|curr> <v>   - Set limit (checked against range)
    ch <n> range <volt|curr> <v>   - Set limit range ceiling
    ch <n> output <on|off>         - Switch output
    ch <n> measure <volt|curr>     - Spot measurement (switches output on)
    ch <n> nplc <volt|curr> <plc>  - Set integration time
    ch <n> sense <2|4>             - Select 2- or 4-wire sensing

  help                         - Show this help
  exit                         - Quit`)
}
