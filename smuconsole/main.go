package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/chzyer/readline"

	"github.com/itohio/gosmu/pkg/config"
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

	dev, err := smu.Open(cfg, *mockFlag)
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer dev.Close()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "smu> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
	})
	if err != nil {
		log.Fatalf("Failed to create readline: %v", err)
	}
	defer rl.Close()
	log.SetOutput(rl.Stderr())

	c := &console{dev: dev, out: rl.Stdout()}
	fmt.Fprintf(c.out, "Connected to %s\n", dev.ID())
	c.printHelp()

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			return
		}
		if !c.execute(strings.TrimSpace(line)) {
			return
		}
	}
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("idn"),
	readline.PcItem("reset"),
	readline.PcItem("write"),
	readline.PcItem("query"),
	readline.PcItem("ch",
		readline.PcItem("1", channelCompleter()...),
		readline.PcItem("2", channelCompleter()...),
	),
	readline.PcItem("help"),
	readline.PcItem("exit"),
)

func channelCompleter() []readline.PrefixCompleterInterface {
	modes := func() []readline.PrefixCompleterInterface {
		return []readline.PrefixCompleterInterface{readline.PcItem("volt"), readline.PcItem("curr")}
	}
	return []readline.PrefixCompleterInterface{
		readline.PcItem("mode", modes()...),
		readline.PcItem("level", modes()...),
		readline.PcItem("limit", modes()...),
		readline.PcItem("range", modes()...),
		readline.PcItem("measure", modes()...),
		readline.PcItem("nplc", modes()...),
		readline.PcItem("output", readline.PcItem("on"), readline.PcItem("off")),
		readline.PcItem("sense", readline.PcItem("2"), readline.PcItem("4")),
	}
}
