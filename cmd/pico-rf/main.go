//go:build tinygo

// pico-rf is firmware for an RP2040 with a 433 MHz transmitter on GPIO6 and
// a receiver on GPIO15. Holding the button on GPIO14 sends code 255 with
// protocol 1; received codes are printed on the serial console.
//
// GPIO16 toggles on every accepted receive edge and GPIO17 on every sync
// gap, for a logic analyser.
package main

import (
	"machine"
	"time"

	"github.com/sparques/rftrx"
	"github.com/sparques/rftrx/pins"
)

const (
	txPin     = machine.GPIO6
	rxPin     = machine.GPIO15
	buttonPin = machine.GPIO14
	edgePin   = machine.GPIO16
	syncPin   = machine.GPIO17

	code = 255
)

func main() {
	buttonPin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	edgePin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	syncPin.Configure(machine.PinConfig{Mode: machine.PinOutput})

	cfg := rftrx.DefaultConfig()

	tx, err := rftrx.New(pins.NewMachinePin(txPin), cfg)
	if err != nil {
		halt(err)
	}
	if err := tx.EnableTx(); err != nil {
		halt(err)
	}

	rx, err := rftrx.New(pins.NewMachinePin(rxPin), cfg)
	if err != nil {
		halt(err)
	}
	rx.SetTracer(trace)
	if err := rx.EnableRx(); err != nil {
		halt(err)
	}

	for {
		if !buttonPin.Get() {
			if err := tx.SendCode(code); err != nil {
				println("send:", err.Error())
			}
		}
		if r, ok := rx.Poll(); ok {
			println("received", r.Code, "bits", r.BitLength, "pulse", r.PulseLength.Microseconds())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// trace runs in interrupt context.
func trace(class rftrx.EdgeClass) {
	switch class {
	case rftrx.EdgeData, rftrx.EdgeOverflow:
		edgePin.Set(!edgePin.Get())
	case rftrx.EdgeSync:
		edgePin.Set(!edgePin.Get())
		syncPin.Set(!syncPin.Get())
	}
}

func halt(err error) {
	for {
		println("pico-rf:", err.Error())
		time.Sleep(time.Second)
	}
}
