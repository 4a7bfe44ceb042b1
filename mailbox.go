package rftrx

import (
	"sync/atomic"
	"time"
)

// mailbox is a single slot sequence lock. put runs in the edge handler and
// never blocks or allocates; take runs in the single polling goroutine,
// retries while a put is in flight and remembers the last sequence it
// consumed, so clearing the slot writes nothing shared.
//
// seq is odd while put is writing. sync/atomic operations are sequentially
// consistent, so a take that sees the same even seq before and after
// loading the fields has read one complete put.
type mailbox struct {
	seq   atomic.Uint32
	code  atomic.Uint64
	ts    atomic.Int64
	bits  atomic.Int32
	unit  atomic.Int64
	taken uint32
}

func (m *mailbox) put(r Reception) {
	m.seq.Add(1)
	m.code.Store(r.Code)
	m.ts.Store(int64(r.Timestamp))
	m.bits.Store(int32(r.BitLength))
	m.unit.Store(int64(r.PulseLength))
	m.seq.Add(1)
}

func (m *mailbox) take() (Reception, bool) {
	for {
		s := m.seq.Load()
		if s == m.taken {
			return Reception{}, false
		}
		if s&1 == 1 {
			continue
		}
		r := Reception{
			Code:        m.code.Load(),
			Timestamp:   time.Duration(m.ts.Load()),
			BitLength:   int(m.bits.Load()),
			PulseLength: time.Duration(m.unit.Load()),
		}
		if m.seq.Load() == s {
			m.taken = s
			return r, true
		}
	}
}
