package rftrx

import (
	"fmt"
	"time"
)

// Protocol describes one pulse timing profile. The six multipliers are in
// units of PulseLength when transmitting and of the per-frame unit derived
// from the sync gap when receiving.
type Protocol struct {
	PulseLength time.Duration

	SyncHigh, SyncLow int
	ZeroHigh, ZeroLow int
	OneHigh, OneLow   int
}

// Manchester is the protocol whose bits go out as "01"/"10" pairs, each
// frame preceded by its own sync.
const Manchester = 6

// Protocols is indexed by protocol id. Entry 0 is unused so ids stay 1-based.
var Protocols = [...]Protocol{
	{},
	{350 * time.Microsecond, 1, 31, 1, 3, 3, 1},
	{650 * time.Microsecond, 1, 10, 1, 2, 2, 1},
	{100 * time.Microsecond, 30, 71, 4, 11, 9, 6},
	{380 * time.Microsecond, 1, 6, 1, 3, 3, 1},
	{500 * time.Microsecond, 6, 14, 1, 2, 2, 1},
	{200 * time.Microsecond, 1, 10, 1, 5, 1, 1},
}

// LookupProtocol returns the profile for id, 1 through 6.
func LookupProtocol(id int) (Protocol, error) {
	if id < 1 || id >= len(Protocols) {
		return Protocol{}, fmt.Errorf("%w: %d", ErrInvalidProtocol, id)
	}
	return Protocols[id], nil
}

// Sync returns the sync waveform as a TimePair for the given pulse length.
func (p Protocol) Sync(pulse time.Duration) TimePair { return p.pair(p.SyncHigh, p.SyncLow, pulse) }

// Zero returns the waveform of a 0 bit.
func (p Protocol) Zero(pulse time.Duration) TimePair { return p.pair(p.ZeroHigh, p.ZeroLow, pulse) }

// One returns the waveform of a 1 bit.
func (p Protocol) One(pulse time.Duration) TimePair { return p.pair(p.OneHigh, p.OneLow, pulse) }

func (p Protocol) pair(high, low int, pulse time.Duration) TimePair {
	unit := pulse * ScaleTime
	return TimePair{time.Duration(high) * unit, time.Duration(low) * unit}
}
