package rftrx_test

import (
	"fmt"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/sparques/rftrx"
	"github.com/sparques/rftrx/pins"
)

// link returns a transmitter and a receiver sharing a simulated channel.
func link(c *qt.C, cfg rftrx.Config) (tx, rx *rftrx.Device, l *pins.Loopback) {
	l = pins.NewLoopback(6, 27)
	tx, err := rftrx.New(l.TX(), cfg)
	c.Assert(err, qt.IsNil)
	tx.SetDelayer(l)
	c.Assert(tx.EnableTx(), qt.IsNil)

	rx, err = rftrx.New(l.RX(), cfg)
	c.Assert(err, qt.IsNil)
	c.Assert(rx.EnableRx(), qt.IsNil)
	return tx, rx, l
}

func TestRoundTrip(t *testing.T) {
	c := qt.New(t)

	codes := []uint64{1, 255, 0x5A5A5A, 0xFFFFFF, 0x800000}
	for protocol := 1; protocol <= 5; protocol++ {
		for _, code := range codes {
			c.Run(fmt.Sprintf("protocol %d code %#x", protocol, code), func(c *qt.C) {
				cfg := rftrx.DefaultConfig()
				cfg.Protocol = protocol
				if protocol == 4 {
					// 6840 µs sync gap.
					cfg.SyncThreshold = 5 * time.Millisecond
				}
				tx, rx, _ := link(c, cfg)
				c.Assert(tx.SendCode(code), qt.IsNil)

				r, ok := rx.Poll()
				c.Assert(ok, qt.IsTrue)
				c.Assert(r.Code, qt.Equals, code)
				c.Assert(r.BitLength, qt.Equals, 24)
				c.Assert(r.Protocol, qt.Equals, protocol)
				p, _ := rftrx.LookupProtocol(protocol)
				c.Assert(r.PulseLength, qt.Equals, p.PulseLength*rftrx.ScaleTime)

				_, ok = rx.Poll()
				c.Assert(ok, qt.IsFalse)
			})
		}
	}
}

func TestRoundTripRepeats(t *testing.T) {
	c := qt.New(t)

	// The first frame is calibrated against the idle gap before it and the
	// last one is never closed by a later edge, so Repeat-2 frames decode.
	tx, rx, l := link(c, rftrx.DefaultConfig())
	c.Assert(tx.SendCode(0xABCDEF), qt.IsNil)
	c.Assert(l.Transitions(), qt.Equals, 10*25*2)

	st := rx.Stats()
	c.Assert(st.Decoded, qt.Equals, uint32(8))
	c.Assert(st.Rejected, qt.Equals, uint32(1))
	c.Assert(st.Overflows, qt.Equals, uint32(0))
	c.Assert(st.Syncs, qt.Equals, uint32(10))
}

func TestRoundTrip32Bits(t *testing.T) {
	c := qt.New(t)

	cfg := rftrx.DefaultConfig()
	cfg.BitLength = 32
	tx, rx, _ := link(c, cfg)
	c.Assert(tx.SendCode(0xFFFFFFFF), qt.IsNil)

	r, ok := rx.Poll()
	c.Assert(ok, qt.IsTrue)
	c.Assert(r.Code, qt.Equals, uint64(0xFFFFFFFF))
	c.Assert(r.BitLength, qt.Equals, 32)
	c.Assert(rx.Stats().Overflows, qt.Equals, uint32(0))
}

func TestRoundTripPulseOverride(t *testing.T) {
	c := qt.New(t)

	cfg := rftrx.DefaultConfig()
	cfg.PulseLength = 400 * time.Microsecond
	tx, rx, _ := link(c, cfg)
	c.Assert(tx.SendCode(0x123456), qt.IsNil)

	r, ok := rx.Poll()
	c.Assert(ok, qt.IsTrue)
	c.Assert(r.Code, qt.Equals, uint64(0x123456))
	c.Assert(r.PulseLength, qt.Equals, 1200*time.Microsecond)
}

func TestRoundTripWithNoise(t *testing.T) {
	c := qt.New(t)

	tx, rx, l := link(c, rftrx.DefaultConfig())
	// Short glitches before the transmission are discarded.
	for i := 0; i < 4; i++ {
		l.Toggle(100 * time.Microsecond)
	}
	l.Delay(50 * time.Millisecond)
	c.Assert(tx.SendCode(0x0F0F0F), qt.IsNil)

	r, ok := rx.Poll()
	c.Assert(ok, qt.IsTrue)
	c.Assert(r.Code, qt.Equals, uint64(0x0F0F0F))
}

func TestRoundTripZeroIsDropped(t *testing.T) {
	c := qt.New(t)

	tx, rx, _ := link(c, rftrx.DefaultConfig())
	c.Assert(tx.SendCode(0), qt.IsNil)
	_, ok := rx.Poll()
	c.Assert(ok, qt.IsFalse)
}

func TestRoundTripFrames(t *testing.T) {
	c := qt.New(t)

	// Single frames sent back to back: each one's sync closes it and
	// calibrates the next.
	tx, rx, _ := link(c, rftrx.DefaultConfig())
	frames := []rftrx.FrameMarshaller{
		rftrx.Code{Value: 10, Protocol: 1, BitLength: 24},
		rftrx.Code{Value: 20, Protocol: 1, BitLength: 24},
		rftrx.Code{Value: 30, Protocol: 1, BitLength: 24},
	}
	c.Assert(tx.SendFrames(frames...), qt.IsNil)

	r, ok := rx.Poll()
	c.Assert(ok, qt.IsTrue)
	c.Assert(r.Code, qt.Equals, uint64(20))
}
