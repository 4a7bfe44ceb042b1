package backend

import (
	"fmt"
	"strconv"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/sparques/rftrx"
	"github.com/sparques/rftrx/pins"
)

// openPeriph loads the host drivers on first use and looks the pin up by
// number, then by its GPIO name.
func (o *Opener) openPeriph(number int) (rftrx.Pin, error) {
	o.periphOnce.Do(func() {
		if _, err := host.Init(); err != nil {
			o.periphErr = fmt.Errorf("periph host init: %w", err)
		}
	})
	if o.periphErr != nil {
		return nil, o.periphErr
	}
	return lookupPeriph(number)
}

func lookupPeriph(number int) (rftrx.Pin, error) {
	var p gpio.PinIO
	for _, name := range []string{strconv.Itoa(number), "GPIO" + strconv.Itoa(number)} {
		if p = gpioreg.ByName(name); p != nil {
			return pins.NewPeriphPin(p), nil
		}
	}
	return nil, fmt.Errorf("periph: no pin for GPIO %d", number)
}
