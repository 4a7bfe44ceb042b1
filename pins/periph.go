//go:build !tinygo

package pins

import (
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
)

// edgePoll bounds how long the watcher blocks in WaitForEdge, and so how
// long SetEdgeHandler(nil) may take to return.
const edgePoll = 100 * time.Millisecond

// PeriphPin adapts a periph.io gpio.PinIO. Edges are collected by a
// goroutine blocked in WaitForEdge and timestamped on arrival, so timing
// includes scheduler latency.
type PeriphPin struct {
	pin   gpio.PinIO
	epoch time.Time

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewPeriphPin wraps p.
func NewPeriphPin(p gpio.PinIO) *PeriphPin {
	return &PeriphPin{pin: p, epoch: time.Now()}
}

func (p *PeriphPin) Number() int { return p.pin.Number() }

func (p *PeriphPin) ConfigureOutput() error {
	if err := p.pin.Out(gpio.Low); err != nil {
		return fmt.Errorf("periph: %s out: %w", p.pin, err)
	}
	return nil
}

func (p *PeriphPin) ConfigureInput() error {
	if err := p.pin.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return fmt.Errorf("periph: %s in: %w", p.pin, err)
	}
	return nil
}

// Set drives the pin. Errors are dropped: the waveform loop has no way to
// recover mid frame.
func (p *PeriphPin) Set(high bool) {
	_ = p.pin.Out(gpio.Level(high))
}

// SetEdgeHandler starts or, with a nil fn, stops the edge watcher.
func (p *PeriphPin) SetEdgeHandler(fn func(ts time.Duration)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.unwatch()
	if fn == nil {
		return p.ConfigureInput()
	}
	if err := p.pin.In(gpio.PullDown, gpio.BothEdges); err != nil {
		return fmt.Errorf("periph: %s watch: %w", p.pin, err)
	}
	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.watch(fn, p.stop, p.done)
	return nil
}

func (p *PeriphPin) watch(fn func(time.Duration), stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-stop:
			return
		default:
		}
		if p.pin.WaitForEdge(edgePoll) {
			fn(time.Since(p.epoch))
		}
	}
}

// unwatch must be called with mu held.
func (p *PeriphPin) unwatch() {
	if p.stop == nil {
		return
	}
	close(p.stop)
	<-p.done
	p.stop, p.done = nil, nil
}
