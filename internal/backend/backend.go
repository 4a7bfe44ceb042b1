// Package backend turns device entries from the configuration into
// rftrx devices on real or simulated GPIO.
package backend

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sparques/rftrx"
	"github.com/sparques/rftrx/internal/config"
	"github.com/sparques/rftrx/pins"
)

// ErrUnknownBackend is returned for a backend name Open does not know.
var ErrUnknownBackend = errors.New("backend: unknown backend")

// Opener creates devices and owns the resources behind them. Sim devices
// opened on the same chip name share one loopback.
type Opener struct {
	mu      sync.Mutex
	loops   map[string]*pins.Loopback
	closers []func() error

	periphOnce sync.Once
	periphErr  error
}

// NewOpener returns an Opener with nothing open.
func NewOpener() *Opener {
	return &Opener{loops: make(map[string]*pins.Loopback)}
}

// Open builds an rftrx.Device for dc. The device's roles are left
// disabled.
func (o *Opener) Open(dc config.DeviceConfig) (*rftrx.Device, error) {
	pin, delayer, err := o.pin(dc)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", dc.Name, err)
	}
	dev, err := rftrx.New(pin, dc.CoreConfig())
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", dc.Name, err)
	}
	if delayer != nil {
		dev.SetDelayer(delayer)
	}
	return dev, nil
}

func (o *Opener) pin(dc config.DeviceConfig) (rftrx.Pin, rftrx.Delayer, error) {
	switch dc.Backend {
	case config.BackendSim:
		return o.simPin(dc)
	case config.BackendCdev:
		p, closer, err := openCdev(dc.Chip, dc.GPIO)
		if err != nil {
			return nil, nil, err
		}
		o.mu.Lock()
		o.closers = append(o.closers, closer)
		o.mu.Unlock()
		return p, nil, nil
	case config.BackendPeriph:
		p, err := o.openPeriph(dc.GPIO)
		return p, nil, err
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, dc.Backend)
	}
}

// simPin hands out the TX or RX end of the loopback named by dc.Chip. The
// transmitter runs on the loopback's virtual clock.
func (o *Opener) simPin(dc config.DeviceConfig) (rftrx.Pin, rftrx.Delayer, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	lb, ok := o.loops[dc.Chip]
	if !ok {
		lb = pins.NewLoopback(0, 0)
		o.loops[dc.Chip] = lb
	}
	if dc.Role == config.RoleTx {
		lb.TX().SetNumber(dc.GPIO)
		return lb.TX(), lb, nil
	}
	lb.RX().SetNumber(dc.GPIO)
	return lb.RX(), nil, nil
}

// Loopback returns the sim loopback for chip, if one was opened.
func (o *Opener) Loopback(chip string) (*pins.Loopback, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	lb, ok := o.loops[chip]
	return lb, ok
}

// Close releases every character device line opened so far.
func (o *Opener) Close() error {
	o.mu.Lock()
	closers := o.closers
	o.closers = nil
	o.mu.Unlock()

	var errs []error
	for _, c := range closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
