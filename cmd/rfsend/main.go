// rfsend transmits one or more codes through a 433/315 MHz transmitter.
//
//	rfsend -chip gpiochip0 -gpio 17 -protocol 1 5393 5396
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/sparques/rftrx/internal/backend"
	"github.com/sparques/rftrx/internal/config"
	"github.com/sparques/rftrx/internal/logging"
)

var version = "dev"

func main() {
	dc := config.DeviceConfig{Name: "rfsend", Role: config.RoleTx}
	flag.StringVar(&dc.Backend, "backend", config.BackendCdev, "GPIO backend: cdev, periph or sim")
	flag.StringVar(&dc.Chip, "chip", "gpiochip0", "GPIO chip (cdev)")
	flag.IntVar(&dc.GPIO, "gpio", 17, "transmitter data pin")
	flag.IntVar(&dc.Protocol, "protocol", 1, "protocol 1-6")
	flag.IntVar(&dc.PulseLength, "pulse", 0, "pulse length override in µs (0: protocol default)")
	flag.IntVar(&dc.Repeat, "repeat", 10, "frame repeats")
	flag.IntVar(&dc.BitLength, "bits", 24, "bits per frame")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] code...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log := logging.New(config.LoggingConfig{Level: *level, Format: "text", Output: "stderr"}, version)
	if err := run(dc, flag.Args(), log); err != nil {
		log.Error("send failed", "error", err)
		os.Exit(1)
	}
}

func run(dc config.DeviceConfig, args []string, log *logging.Logger) error {
	codes := make([]uint64, 0, len(args))
	for _, a := range args {
		code, err := strconv.ParseUint(a, 10, 64)
		if err != nil {
			return fmt.Errorf("bad code %q: %w", a, err)
		}
		codes = append(codes, code)
	}

	opener := backend.NewOpener()
	defer opener.Close()

	dev, err := opener.Open(dc)
	if err != nil {
		return err
	}
	defer dev.Cleanup()

	if err := dev.EnableTx(); err != nil {
		return err
	}
	for _, code := range codes {
		if err := dev.SendCode(code); err != nil {
			return err
		}
		log.Info("sent", "code", code, "gpio", dc.GPIO, "protocol", dc.Protocol, "repeat", dc.Repeat)
	}
	return nil
}
