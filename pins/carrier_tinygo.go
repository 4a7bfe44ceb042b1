//go:build tinygo

package pins

import (
	. "machine"
	"time"

	"github.com/sparques/pwm"
)

// Freq38Khz is the usual IR carrier.
const Freq38Khz = 38000

// CarrierPin modulates a PWM carrier while the line is high, for IR
// emitters and RF modules keyed by a square wave. It can only transmit.
type CarrierPin struct {
	pin    Pin
	pgroup pwm.Group
	ch     uint8
	duty   uint32
}

// NewCarrierPin puts pin on its PWM slice at freq Hz, 50% duty when high.
func NewCarrierPin(pin Pin, freq uint64) (*CarrierPin, error) {
	pin.Configure(PinConfig{Mode: PinPWM})
	pgroup := pwm.Get(pin)
	if err := pgroup.Configure(PWMConfig{Period: uint64(1e9) / freq}); err != nil {
		return nil, err
	}
	ch, err := pgroup.Channel(pin)
	if err != nil {
		return nil, err
	}
	pgroup.Set(ch, 0)
	return &CarrierPin{
		pin:    pin,
		pgroup: pgroup,
		ch:     ch,
		duty:   pgroup.Top() / 2,
	}, nil
}

func (c *CarrierPin) Number() int { return int(c.pin) }

// ConfigureOutput silences the carrier.
func (c *CarrierPin) ConfigureOutput() error {
	c.pgroup.Set(c.ch, 0)
	return nil
}

// ConfigureInput silences the carrier. The pin stays on its PWM slice.
func (c *CarrierPin) ConfigureInput() error {
	c.pgroup.Set(c.ch, 0)
	return nil
}

func (c *CarrierPin) Set(high bool) {
	if high {
		c.pgroup.Set(c.ch, c.duty)
	} else {
		c.pgroup.Set(c.ch, 0)
	}
}

// SetEdgeHandler only accepts nil.
func (c *CarrierPin) SetEdgeHandler(fn func(ts time.Duration)) error {
	if fn != nil {
		return ErrTransmitOnly
	}
	return nil
}
