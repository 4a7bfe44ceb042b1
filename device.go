package rftrx

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Device is one RF module on one GPIO. It owns the pin's direction: output
// while transmitting, pulled-down input otherwise.
type Device struct {
	pin   Pin
	cfg   Config
	proto Protocol

	mu        sync.Mutex
	txEnabled bool
	rxEnabled bool

	delay Delayer
	trace func(EdgeClass)

	// capture is only touched from OnEdge.
	capture capture
	box     mailbox
	stats   counters
}

// New validates cfg and returns a Device with both roles disabled.
func New(pin Pin, cfg Config) (*Device, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Device{
		pin:   pin,
		cfg:   cfg,
		proto: Protocols[cfg.Protocol],
		delay: SpinDelay,
	}, nil
}

// Config returns the configuration the device was created with.
func (d *Device) Config() Config { return d.cfg }

// Pin returns the underlying pin.
func (d *Device) Pin() Pin { return d.pin }

// SetDelayer replaces the wait used between waveform edges. A send already
// in progress keeps the Delayer it started with.
func (d *Device) SetDelayer(dl Delayer) {
	if dl == nil {
		dl = SpinDelay
	}
	d.mu.Lock()
	d.delay = dl
	d.mu.Unlock()
}

// SetTracer installs fn to be called with the class of every received edge.
// It runs in the edge handler's context and must not block. Set it before
// EnableRx.
func (d *Device) SetTracer(fn func(EdgeClass)) {
	d.mu.Lock()
	d.trace = fn
	d.mu.Unlock()
}

// EnableTx configures the pin as an output. It fails with ErrRoleConflict
// while the receiver is enabled.
func (d *Device) EnableTx() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rxEnabled {
		return fmt.Errorf("%w: receiver enabled on gpio %d", ErrRoleConflict, d.pin.Number())
	}
	if d.txEnabled {
		return nil
	}
	if err := d.pin.ConfigureOutput(); err != nil {
		return fmt.Errorf("rftrx: configure gpio %d as output: %w", d.pin.Number(), err)
	}
	d.pin.Set(false)
	d.txEnabled = true
	return nil
}

// DisableTx returns the pin to a pulled-down input.
func (d *Device) DisableTx() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.txEnabled {
		return nil
	}
	d.txEnabled = false
	if err := d.pin.ConfigureInput(); err != nil {
		return fmt.Errorf("rftrx: configure gpio %d as input: %w", d.pin.Number(), err)
	}
	return nil
}

// EnableRx configures the pin as an input and starts capturing edges. It
// fails with ErrRoleConflict while the transmitter is enabled.
func (d *Device) EnableRx() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.txEnabled {
		return fmt.Errorf("%w: transmitter enabled on gpio %d", ErrRoleConflict, d.pin.Number())
	}
	if d.rxEnabled {
		return nil
	}
	if err := d.pin.ConfigureInput(); err != nil {
		return fmt.Errorf("rftrx: configure gpio %d as input: %w", d.pin.Number(), err)
	}
	d.capture = capture{}
	if err := d.pin.SetEdgeHandler(d.OnEdge); err != nil {
		return fmt.Errorf("rftrx: watch gpio %d: %w", d.pin.Number(), err)
	}
	d.rxEnabled = true
	return nil
}

// DisableRx stops edge capture. A decoded code still in the mailbox stays
// there until polled.
func (d *Device) DisableRx() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.rxEnabled {
		return nil
	}
	d.rxEnabled = false
	if err := d.pin.SetEdgeHandler(nil); err != nil {
		return fmt.Errorf("rftrx: unwatch gpio %d: %w", d.pin.Number(), err)
	}
	return nil
}

// Cleanup disables both roles and leaves the pin a pulled-down input.
func (d *Device) Cleanup() error {
	if err := d.DisableTx(); err != nil {
		return err
	}
	if err := d.DisableRx(); err != nil {
		return err
	}
	return d.pin.ConfigureInput()
}

// TxEnabled reports whether the transmitter is enabled.
func (d *Device) TxEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.txEnabled
}

// RxEnabled reports whether the receiver is enabled.
func (d *Device) RxEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rxEnabled
}

// Stats is a snapshot of the receive counters.
type Stats struct {
	// Syncs counts frame boundaries since the last overflow reset.
	Syncs     uint32
	Decoded   uint32
	Rejected  uint32
	Overflows uint32
	Noise     uint32
}

type counters struct {
	syncs, decoded, rejected, overflows, noise atomic.Uint32
}

// Stats returns the receive counters. Safe to call while receiving.
func (d *Device) Stats() Stats {
	return Stats{
		Syncs:     d.stats.syncs.Load(),
		Decoded:   d.stats.decoded.Load(),
		Rejected:  d.stats.rejected.Load(),
		Overflows: d.stats.overflows.Load(),
		Noise:     d.stats.noise.Load(),
	}
}

// Reception is a decoded frame.
type Reception struct {
	Code uint64
	// Timestamp is the edge timestamp of the sync that closed the frame.
	Timestamp time.Duration
	// BitLength is the number of bits the frame carried.
	BitLength int
	// PulseLength is the unit derived from the frame's sync gap, already
	// scaled, so it is comparable to received intervals.
	PulseLength time.Duration
	Protocol    int
}

// Poll returns the most recently decoded code and clears it. Only the
// latest frame is kept: a frame decoded before the previous one was polled
// replaces it. Poll must be called from a single goroutine.
func (d *Device) Poll() (Reception, bool) {
	r, ok := d.box.take()
	if ok {
		r.Protocol = d.cfg.Protocol
	}
	return r, ok
}
