package rftrx

import (
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestMailboxPutTake(t *testing.T) {
	c := qt.New(t)

	var m mailbox
	_, ok := m.take()
	c.Assert(ok, qt.IsFalse)

	want := Reception{Code: 0x5A5A5A, Timestamp: time.Second, BitLength: 24, PulseLength: us(1050)}
	m.put(want)
	got, ok := m.take()
	c.Assert(ok, qt.IsTrue)
	c.Assert(got, qt.Equals, want)

	_, ok = m.take()
	c.Assert(ok, qt.IsFalse)
}

func TestMailboxOverwrite(t *testing.T) {
	c := qt.New(t)

	var m mailbox
	m.put(Reception{Code: 1})
	m.put(Reception{Code: 2})
	got, ok := m.take()
	c.Assert(ok, qt.IsTrue)
	c.Assert(got.Code, qt.Equals, uint64(2))
	_, ok = m.take()
	c.Assert(ok, qt.IsFalse)

	// Same value again is still a new event.
	m.put(Reception{Code: 2})
	_, ok = m.take()
	c.Assert(ok, qt.IsTrue)
}

func TestMailboxConcurrent(t *testing.T) {
	c := qt.New(t)

	// Every field of a put carries the same number, so a torn read shows
	// up as a mismatch.
	const n = 20000
	var m mailbox
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; i <= n; i++ {
			m.put(Reception{
				Code:        uint64(i),
				Timestamp:   time.Duration(i),
				BitLength:   i,
				PulseLength: time.Duration(i),
			})
		}
	}()

	var last uint64
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	for {
		r, ok := m.take()
		if ok {
			c.Assert(r.Timestamp, qt.Equals, time.Duration(r.Code))
			c.Assert(r.BitLength, qt.Equals, int(r.Code))
			c.Assert(r.PulseLength, qt.Equals, time.Duration(r.Code))
			c.Assert(r.Code > last, qt.IsTrue)
			last = r.Code
			continue
		}
		select {
		case <-done:
			if r, ok := m.take(); ok {
				last = r.Code
			}
			c.Assert(last, qt.Equals, uint64(n))
			return
		default:
		}
	}
}
