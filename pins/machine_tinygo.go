//go:build tinygo

package pins

import (
	"machine"
	"time"
)

var boot = time.Now()

// MachinePin is a TinyGo GPIO. The edge handler runs in interrupt context.
type MachinePin struct {
	pin machine.Pin
}

func NewMachinePin(p machine.Pin) *MachinePin {
	return &MachinePin{pin: p}
}

func (p *MachinePin) Number() int { return int(p.pin) }

func (p *MachinePin) ConfigureOutput() error {
	p.pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return nil
}

func (p *MachinePin) ConfigureInput() error {
	p.pin.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	return nil
}

func (p *MachinePin) Set(high bool) { p.pin.Set(high) }

func (p *MachinePin) SetEdgeHandler(fn func(ts time.Duration)) error {
	if fn == nil {
		return p.pin.SetInterrupt(0, nil)
	}
	return p.pin.SetInterrupt(machine.PinRising|machine.PinFalling, func(machine.Pin) {
		fn(time.Since(boot))
	})
}
