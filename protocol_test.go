package rftrx

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestLookupProtocol(t *testing.T) {
	c := qt.New(t)

	for id := 1; id <= 6; id++ {
		p, err := LookupProtocol(id)
		c.Assert(err, qt.IsNil)
		c.Assert(p, qt.Equals, Protocols[id])
		c.Assert(p.PulseLength > 0, qt.IsTrue, qt.Commentf("protocol %d", id))
		for _, m := range []int{p.SyncHigh, p.SyncLow, p.ZeroHigh, p.ZeroLow, p.OneHigh, p.OneLow} {
			c.Assert(m > 0, qt.IsTrue, qt.Commentf("protocol %d", id))
		}
	}

	for _, id := range []int{-1, 0, 7, 100} {
		_, err := LookupProtocol(id)
		c.Assert(err, qt.ErrorIs, ErrInvalidProtocol)
	}
}

func TestProtocolWaveforms(t *testing.T) {
	c := qt.New(t)

	p := Protocols[1]
	c.Assert(p.Sync(p.PulseLength), qt.Equals, TimePair{1050 * time.Microsecond, 32550 * time.Microsecond})
	c.Assert(p.Zero(p.PulseLength), qt.Equals, TimePair{1050 * time.Microsecond, 3150 * time.Microsecond})
	c.Assert(p.One(p.PulseLength), qt.Equals, TimePair{3150 * time.Microsecond, 1050 * time.Microsecond})

	c.Assert(Protocols[3].Sync(us(100)), qt.Equals, TimePair{us(9000), us(21300)})
	c.Assert(Protocols[1].Zero(us(400)), qt.Equals, TimePair{us(1200), us(3600)})
}
