// Package pins provides rftrx.Pin implementations: Linux GPIO character
// devices, periph.io pins, TinyGo machine pins and a simulated loopback.
package pins

import (
	"sync"
	"time"

	"github.com/sparques/rftrx"
)

// simEpoch is where a Loopback clock starts. An edge at zero would read as
// noise against a receiver that has never seen one.
const simEpoch = time.Second

// Loopback wires a transmitting SimPin to a receiving one over a perfect
// channel. Time is virtual: it only moves in Delay and Advance, so
// waveforms come out exact.
type Loopback struct {
	mu          sync.Mutex
	now         time.Duration
	level       bool
	transitions int

	tx, rx *SimPin
}

// NewLoopback returns a loopback whose TX pin reports txGPIO and whose RX
// pin reports rxGPIO.
func NewLoopback(txGPIO, rxGPIO int) *Loopback {
	l := &Loopback{now: simEpoch}
	l.tx = &SimPin{loop: l, number: txGPIO}
	l.rx = &SimPin{loop: l, number: rxGPIO}
	return l
}

// TX returns the transmitting end.
func (l *Loopback) TX() *SimPin { return l.tx }

// RX returns the receiving end.
func (l *Loopback) RX() *SimPin { return l.rx }

// Delay advances the virtual clock. It satisfies rftrx.Delayer.
func (l *Loopback) Delay(d time.Duration) {
	l.mu.Lock()
	l.now += d
	l.mu.Unlock()
}

// Now returns the virtual clock.
func (l *Loopback) Now() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.now
}

// Transitions returns how many level changes crossed the channel.
func (l *Loopback) Transitions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transitions
}

// Toggle advances the clock by after and flips the line, as interference
// or a foreign transmitter would.
func (l *Loopback) Toggle(after time.Duration) {
	l.mu.Lock()
	l.now += after
	l.mu.Unlock()
	l.drive(!l.Level())
}

// Level returns the line level.
func (l *Loopback) Level() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *Loopback) drive(high bool) {
	l.mu.Lock()
	if high == l.level {
		l.mu.Unlock()
		return
	}
	l.level = high
	l.transitions++
	now := l.now
	var fn func(time.Duration)
	if !l.rx.output {
		fn = l.rx.handler
	}
	l.mu.Unlock()

	if fn != nil {
		fn(now)
	}
}

// SimPin is one end of a Loopback.
type SimPin struct {
	loop    *Loopback
	number  int
	output  bool
	handler func(time.Duration)
}

var _ rftrx.Pin = (*SimPin)(nil)

func (p *SimPin) Number() int { return p.number }

// SetNumber changes the GPIO id the pin reports.
func (p *SimPin) SetNumber(n int) { p.number = n }

func (p *SimPin) ConfigureOutput() error {
	p.loop.mu.Lock()
	p.output = true
	p.loop.mu.Unlock()
	return nil
}

func (p *SimPin) ConfigureInput() error {
	p.loop.mu.Lock()
	p.output = false
	p.loop.mu.Unlock()
	return nil
}

// Set drives the line. Only an output TX pin reaches the channel.
func (p *SimPin) Set(high bool) {
	p.loop.mu.Lock()
	drives := p == p.loop.tx && p.output
	p.loop.mu.Unlock()
	if drives {
		p.loop.drive(high)
	}
}

// SetEdgeHandler installs fn. Edges are delivered synchronously from the
// goroutine driving the line.
func (p *SimPin) SetEdgeHandler(fn func(ts time.Duration)) error {
	p.loop.mu.Lock()
	p.handler = fn
	p.loop.mu.Unlock()
	return nil
}
