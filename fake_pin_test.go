package rftrx

import (
	"errors"
	"time"
)

// fakePin records every level change against a virtual clock advanced by
// its own Delay, so waveforms can be checked exactly.
type fakePin struct {
	num     int
	output  bool
	level   bool
	now     time.Duration
	changes []levelChange
	handler func(time.Duration)

	inputs    int
	outputErr error
}

type levelChange struct {
	at   time.Duration
	high bool
}

func (p *fakePin) Number() int { return p.num }

func (p *fakePin) ConfigureOutput() error {
	if p.outputErr != nil {
		return p.outputErr
	}
	p.output = true
	return nil
}

func (p *fakePin) ConfigureInput() error {
	p.output = false
	p.inputs++
	return nil
}

func (p *fakePin) Set(high bool) {
	if !p.output {
		panic("fakePin: Set on input")
	}
	if high != p.level {
		p.changes = append(p.changes, levelChange{p.now, high})
	}
	p.level = high
}

func (p *fakePin) SetEdgeHandler(fn func(time.Duration)) error {
	if p.output && fn != nil {
		return errors.New("fakePin: edge handler on output")
	}
	p.handler = fn
	return nil
}

func (p *fakePin) Delay(d time.Duration) { p.now += d }

// pairs folds the recorded changes back into high/low pairs. The final low
// phase ends at the current clock.
func (p *fakePin) pairs() []TimePair {
	var out []TimePair
	for i := 0; i+1 < len(p.changes); i += 2 {
		rise, fall := p.changes[i], p.changes[i+1]
		end := p.now
		if i+2 < len(p.changes) {
			end = p.changes[i+2].at
		}
		out = append(out, TimePair{fall.at - rise.at, end - fall.at})
	}
	return out
}

func newTxDevice(cfg Config) (*Device, *fakePin, error) {
	pin := &fakePin{num: 6}
	d, err := New(pin, cfg)
	if err != nil {
		return nil, nil, err
	}
	d.SetDelayer(pin)
	return d, pin, d.EnableTx()
}

func us(n int) time.Duration { return time.Duration(n) * time.Microsecond }
