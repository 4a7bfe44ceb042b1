//go:build linux && !tinygo

package pins

import (
	"fmt"
	"sync"
	"time"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "rftrx"

// CdevPin is a line on a Linux GPIO character device. Received edges carry
// the kernel's event timestamp, so timing is unaffected by scheduling.
type CdevPin struct {
	chip   string
	offset int

	mu   sync.Mutex
	line *gpiocdev.Line
}

// NewCdevPin returns a pin for offset on chip, e.g. "gpiochip0". The line
// is requested on first use.
func NewCdevPin(chip string, offset int) *CdevPin {
	return &CdevPin{chip: chip, offset: offset}
}

func (p *CdevPin) Number() int { return p.offset }

func (p *CdevPin) ConfigureOutput() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.line == nil {
		return p.request(gpiocdev.WithConsumer(consumer), gpiocdev.AsOutput(0))
	}
	return p.reconfigure(gpiocdev.AsOutput(0))
}

func (p *CdevPin) ConfigureInput() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.line == nil {
		return p.request(gpiocdev.WithConsumer(consumer), gpiocdev.AsInput, gpiocdev.WithPullDown)
	}
	return p.reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown)
}

func (p *CdevPin) reconfigure(opts ...gpiocdev.LineConfigOption) error {
	if err := p.line.Reconfigure(opts...); err != nil {
		return fmt.Errorf("gpiocdev: reconfigure %s:%d: %w", p.chip, p.offset, err)
	}
	return nil
}

func (p *CdevPin) request(opts ...gpiocdev.LineReqOption) error {
	line, err := gpiocdev.RequestLine(p.chip, p.offset, opts...)
	if err != nil {
		return fmt.Errorf("gpiocdev: request %s:%d: %w", p.chip, p.offset, err)
	}
	p.line = line
	return nil
}

// Set drives the line. It is a no-op before ConfigureOutput.
func (p *CdevPin) Set(high bool) {
	v := 0
	if high {
		v = 1
	}
	if p.line != nil {
		_ = p.line.SetValue(v)
	}
}

// SetEdgeHandler re-requests the line, since an event handler can only be
// attached at request time.
func (p *CdevPin) SetEdgeHandler(fn func(ts time.Duration)) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.line != nil {
		p.line.Close()
		p.line = nil
	}
	opts := []gpiocdev.LineReqOption{
		gpiocdev.WithConsumer(consumer),
		gpiocdev.AsInput,
		gpiocdev.WithPullDown,
	}
	if fn != nil {
		opts = append(opts,
			gpiocdev.WithBothEdges,
			gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
				fn(evt.Timestamp)
			}))
	}
	return p.request(opts...)
}

// Close releases the line.
func (p *CdevPin) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.line == nil {
		return nil
	}
	err := p.line.Close()
	p.line = nil
	return err
}
