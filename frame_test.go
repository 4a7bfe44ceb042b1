package rftrx

import (
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestEncodeBits(t *testing.T) {
	c := qt.New(t)

	bits, err := EncodeBits(255, 1, 24)
	c.Assert(err, qt.IsNil)
	c.Assert(bits, qt.Equals, "000000000000000011111111")

	bits, err = EncodeBits(0, 2, 4)
	c.Assert(err, qt.IsNil)
	c.Assert(bits, qt.Equals, "0000")

	bits, err = EncodeBits(1<<63, 1, 64)
	c.Assert(err, qt.IsNil)
	c.Assert(bits, qt.Equals, "1"+strings.Repeat("0", 63))

	_, err = EncodeBits(256, 1, 8)
	c.Assert(err, qt.ErrorIs, ErrCodeTooWide)

	_, err = EncodeBits(1, 0, 24)
	c.Assert(err, qt.ErrorIs, ErrInvalidProtocol)

	_, err = EncodeBits(1, 1, 0)
	c.Assert(err, qt.ErrorIs, ErrInvalidConfig)
}

func TestEncodeBitsManchester(t *testing.T) {
	c := qt.New(t)

	// The configured bit length does not matter for protocol 6.
	for _, bitLength := range []int{1, 24, 64} {
		bits, err := EncodeBits(0b1011, Manchester, bitLength)
		c.Assert(err, qt.IsNil)
		c.Assert(bits, qt.HasLen, 64)
		c.Assert(bits, qt.Equals, strings.Repeat("01", 28)+"10"+"01"+"10"+"10")
	}

	bits, err := EncodeBits(0xFFFFFFFF, Manchester, 24)
	c.Assert(err, qt.IsNil)
	c.Assert(bits, qt.Equals, strings.Repeat("10", 32))

	_, err = EncodeBits(1<<32, Manchester, 24)
	c.Assert(err, qt.ErrorIs, ErrCodeTooWide)
}

func TestCodeMarshalFrame(t *testing.T) {
	c := qt.New(t)

	p := Protocols[1]
	pairs := Code{Value: 255, Protocol: 1, BitLength: 24}.MarshalFrame()
	c.Assert(pairs, qt.HasLen, 25)
	for i := 0; i < 16; i++ {
		c.Assert(pairs[i], qt.Equals, p.Zero(p.PulseLength))
	}
	for i := 16; i < 24; i++ {
		c.Assert(pairs[i], qt.Equals, p.One(p.PulseLength))
	}
	c.Assert(pairs[24], qt.Equals, p.Sync(p.PulseLength))

	pairs = Code{Value: 1, Protocol: 1, BitLength: 2, PulseLength: us(100)}.MarshalFrame()
	c.Assert(pairs, qt.DeepEquals, []TimePair{p.Zero(us(100)), p.One(us(100)), p.Sync(us(100))})

	p6 := Protocols[Manchester]
	pairs = Code{Value: 1, Protocol: Manchester}.MarshalFrame()
	c.Assert(pairs, qt.HasLen, 66)
	c.Assert(pairs[0], qt.Equals, p6.Sync(p6.PulseLength))
	c.Assert(pairs[65], qt.Equals, p6.Sync(p6.PulseLength))

	c.Assert(Code{Value: 1, Protocol: 9, BitLength: 8}.MarshalFrame(), qt.IsNil)
	c.Assert(Code{Value: 512, Protocol: 1, BitLength: 8}.MarshalFrame(), qt.IsNil)
}

func TestWaveformRejectsBadPattern(t *testing.T) {
	c := qt.New(t)

	_, err := waveform(1, Protocols[1], us(350), "01x1", 1)
	c.Assert(err, qt.ErrorIs, ErrInvalidPattern)
}
