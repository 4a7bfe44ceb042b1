package rftrx

import (
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestNewValidates(t *testing.T) {
	c := qt.New(t)

	cfg := DefaultConfig()
	cfg.Protocol = 7
	_, err := New(&fakePin{}, cfg)
	c.Assert(err, qt.ErrorIs, ErrInvalidProtocol)
}

func TestRolesAreExclusive(t *testing.T) {
	c := qt.New(t)

	pin := &fakePin{num: 17}
	d, err := New(pin, DefaultConfig())
	c.Assert(err, qt.IsNil)

	c.Assert(d.EnableTx(), qt.IsNil)
	c.Assert(d.EnableTx(), qt.IsNil)
	c.Assert(pin.output, qt.IsTrue)

	err = d.EnableRx()
	c.Assert(err, qt.ErrorIs, ErrRoleConflict)
	c.Assert(d.RxEnabled(), qt.IsFalse)
	c.Assert(pin.handler, qt.IsNil)
	c.Assert(pin.output, qt.IsTrue)

	c.Assert(d.DisableTx(), qt.IsNil)
	c.Assert(pin.output, qt.IsFalse)
	c.Assert(d.TxEnabled(), qt.IsFalse)

	c.Assert(d.EnableRx(), qt.IsNil)
	c.Assert(pin.handler, qt.Not(qt.IsNil))

	err = d.EnableTx()
	c.Assert(err, qt.ErrorIs, ErrRoleConflict)
	c.Assert(d.TxEnabled(), qt.IsFalse)
	c.Assert(pin.output, qt.IsFalse)

	c.Assert(d.DisableRx(), qt.IsNil)
	c.Assert(pin.handler, qt.IsNil)
	c.Assert(d.EnableTx(), qt.IsNil)
}

func TestEnableTxPinError(t *testing.T) {
	c := qt.New(t)

	boom := errors.New("busy line")
	d, err := New(&fakePin{outputErr: boom}, DefaultConfig())
	c.Assert(err, qt.IsNil)
	c.Assert(d.EnableTx(), qt.ErrorIs, boom)
	c.Assert(d.TxEnabled(), qt.IsFalse)
}

func TestCleanup(t *testing.T) {
	c := qt.New(t)

	pin := &fakePin{}
	d, err := New(pin, DefaultConfig())
	c.Assert(err, qt.IsNil)
	c.Assert(d.EnableRx(), qt.IsNil)
	c.Assert(d.Cleanup(), qt.IsNil)
	c.Assert(d.RxEnabled(), qt.IsFalse)
	c.Assert(pin.handler, qt.IsNil)
	c.Assert(pin.output, qt.IsFalse)
	c.Assert(d.EnableTx(), qt.IsNil)
}

func TestSendCodeNotEnabled(t *testing.T) {
	c := qt.New(t)

	pin := &fakePin{}
	d, err := New(pin, DefaultConfig())
	c.Assert(err, qt.IsNil)
	c.Assert(d.SendCode(1), qt.ErrorIs, ErrNotEnabled)
	c.Assert(d.SendBits("0101"), qt.ErrorIs, ErrNotEnabled)
	c.Assert(d.SendPairs(TimePair{}), qt.ErrorIs, ErrNotEnabled)
	c.Assert(d.SendPair(TimePair{us(100), us(100)}), qt.ErrorIs, ErrNotEnabled)
	c.Assert(pin.changes, qt.HasLen, 0)

	c.Assert(d.EnableTx(), qt.IsNil)
	c.Assert(d.DisableTx(), qt.IsNil)
	c.Assert(d.SendPair(TimePair{us(100), us(100)}), qt.ErrorIs, ErrNotEnabled)
	c.Assert(pin.changes, qt.HasLen, 0)
}

func TestSetDelayerBetweenSends(t *testing.T) {
	c := qt.New(t)

	d, pin, err := newTxDevice(DefaultConfig())
	c.Assert(err, qt.IsNil)
	c.Assert(d.SendPair(TimePair{us(300), us(900)}), qt.IsNil)
	c.Assert(pin.now, qt.Equals, us(1200))

	var waited []time.Duration
	d.SetDelayer(DelayFunc(func(dur time.Duration) { waited = append(waited, dur) }))
	c.Assert(d.SendPair(TimePair{us(300), us(900)}), qt.IsNil)
	c.Assert(waited, qt.DeepEquals, []time.Duration{us(300), us(900)})
	c.Assert(pin.now, qt.Equals, us(1200))
	c.Assert(pin.level, qt.IsFalse)
}

func TestSendCodeInvalidProtocol(t *testing.T) {
	c := qt.New(t)

	pin := &fakePin{output: true}
	d := &Device{pin: pin, cfg: Config{Protocol: 9, Repeat: 1, BitLength: 8}, delay: pin, txEnabled: true}
	c.Assert(d.SendCode(1), qt.ErrorIs, ErrInvalidProtocol)
	c.Assert(d.SendBits("1"), qt.ErrorIs, ErrInvalidProtocol)
	c.Assert(pin.changes, qt.HasLen, 0)
}

func TestSendCodeProtocol1(t *testing.T) {
	c := qt.New(t)

	d, pin, err := newTxDevice(DefaultConfig())
	c.Assert(err, qt.IsNil)
	c.Assert(d.SendCode(255), qt.IsNil)

	p := Protocols[1]
	zero, one, sync := p.Zero(p.PulseLength), p.One(p.PulseLength), p.Sync(p.PulseLength)
	c.Assert(sync, qt.Equals, TimePair{us(1050), us(32550)})

	pairs := pin.pairs()
	c.Assert(pairs, qt.HasLen, 10*25)
	for r := 0; r < 10; r++ {
		frame := pairs[r*25 : (r+1)*25]
		for i := 0; i < 16; i++ {
			c.Assert(frame[i], qt.Equals, zero)
		}
		for i := 16; i < 24; i++ {
			c.Assert(frame[i], qt.Equals, one)
		}
		c.Assert(frame[24], qt.Equals, sync)
	}
	c.Assert(pin.level, qt.IsFalse)
}

func TestSendCodePulseOverride(t *testing.T) {
	c := qt.New(t)

	cfg := DefaultConfig()
	cfg.PulseLength = 200 * time.Microsecond
	cfg.Repeat = 1
	cfg.BitLength = 2
	d, pin, err := newTxDevice(cfg)
	c.Assert(err, qt.IsNil)
	c.Assert(d.SendCode(2), qt.IsNil)
	c.Assert(pin.pairs(), qt.DeepEquals, []TimePair{
		{us(1800), us(600)},
		{us(600), us(1800)},
		{us(600), us(18600)},
	})
}

func TestSendCodeManchester(t *testing.T) {
	c := qt.New(t)

	cfg := DefaultConfig()
	cfg.Protocol = Manchester
	cfg.Repeat = 3
	d, pin, err := newTxDevice(cfg)
	c.Assert(err, qt.IsNil)
	c.Assert(d.SendCode(0x80000001), qt.IsNil)

	p := Protocols[Manchester]
	zero, one, sync := p.Zero(p.PulseLength), p.One(p.PulseLength), p.Sync(p.PulseLength)
	pairs := pin.pairs()
	c.Assert(pairs, qt.HasLen, 3*66)
	for r := 0; r < 3; r++ {
		frame := pairs[r*66 : (r+1)*66]
		c.Assert(frame[0], qt.Equals, sync, qt.Commentf("leading sync of repeat %d", r))
		c.Assert(frame[65], qt.Equals, sync, qt.Commentf("closing sync of repeat %d", r))
		c.Assert(frame[1:3], qt.DeepEquals, []TimePair{one, zero})
		c.Assert(frame[3:5], qt.DeepEquals, []TimePair{zero, one})
		c.Assert(frame[63:65], qt.DeepEquals, []TimePair{one, zero})
	}

	// The 64 bit frame is scoped to the send.
	c.Assert(d.Config().BitLength, qt.Equals, 24)
	c.Assert(d.cfg.BitLength, qt.Equals, 24)
}

func TestManchesterDoesNotLeakIntoLaterSends(t *testing.T) {
	c := qt.New(t)

	cfg := DefaultConfig()
	cfg.Repeat = 1
	d, pin, err := newTxDevice(cfg)
	c.Assert(err, qt.IsNil)

	bits, err := EncodeBits(5, Manchester, cfg.BitLength)
	c.Assert(err, qt.IsNil)
	c.Assert(bits, qt.HasLen, 64)

	c.Assert(d.SendCode(5), qt.IsNil)
	c.Assert(pin.pairs(), qt.HasLen, 25)
}

func TestSendCodeTooWide(t *testing.T) {
	c := qt.New(t)

	cfg := DefaultConfig()
	cfg.BitLength = 4
	d, pin, err := newTxDevice(cfg)
	c.Assert(err, qt.IsNil)
	c.Assert(d.SendCode(16), qt.ErrorIs, ErrCodeTooWide)
	c.Assert(pin.changes, qt.HasLen, 0)
}

func TestSendFrame(t *testing.T) {
	c := qt.New(t)

	cfg := DefaultConfig()
	d, pin, err := newTxDevice(cfg)
	c.Assert(err, qt.IsNil)
	c.Assert(d.SendFrame(Code{Value: 3, Protocol: 2, BitLength: 2}), qt.IsNil)
	p := Protocols[2]
	c.Assert(pin.pairs(), qt.DeepEquals, []TimePair{
		p.One(p.PulseLength), p.One(p.PulseLength), p.Sync(p.PulseLength),
	})
}

func TestSendBitsRejectsBadPattern(t *testing.T) {
	c := qt.New(t)

	d, pin, err := newTxDevice(DefaultConfig())
	c.Assert(err, qt.IsNil)
	c.Assert(d.SendBits("0120"), qt.ErrorIs, ErrInvalidPattern)
	c.Assert(pin.changes, qt.HasLen, 0)
}
