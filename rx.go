package rftrx

import "time"

// EdgeClass is how the edge handler classified the interval ending at an edge.
type EdgeClass uint8

const (
	// EdgeNoise is an interval at or below the tick threshold. It is ignored.
	EdgeNoise EdgeClass = iota
	// EdgeData is a half pulse stored in the frame buffer.
	EdgeData
	// EdgeSync is a gap above the sync threshold: a frame boundary.
	EdgeSync
	// EdgeOverflow is a data interval that found the buffer full. The
	// partial frame was dropped.
	EdgeOverflow
)

func (c EdgeClass) String() string {
	switch c {
	case EdgeNoise:
		return "noise"
	case EdgeData:
		return "data"
	case EdgeSync:
		return "sync"
	case EdgeOverflow:
		return "overflow"
	}
	return "unknown"
}

// phase is the capture state. A sync always leaves the capture in
// accumulating with the sync gap in slot 0; an overflow returns it to
// awaitingSync.
//
//	phase          class     action                                next
//	any            noise     none                                  same
//	any            sync      decode slots [0,n-1) if n-1 > 1       accumulating(1)
//	awaiting/acc   data      store at slot n (n < MaxChanges)      accumulating(n+1)
//	accumulating   data      n == MaxChanges: drop frame           awaitingSync
type phase uint8

const (
	awaitingSync phase = iota
	accumulating
)

type capture struct {
	timings [MaxChanges + 1]time.Duration
	last    time.Duration
	changes int
	// syncs counts frame boundaries; reset with the buffer on overflow.
	syncs int
}

func (c *capture) phase() phase {
	if c.changes == 0 {
		return awaitingSync
	}
	return accumulating
}

func (d *Device) classify(duration time.Duration) EdgeClass {
	switch {
	case duration <= d.cfg.tick():
		return EdgeNoise
	case duration > d.cfg.sync():
		return EdgeSync
	case d.capture.changes >= MaxChanges:
		return EdgeOverflow
	}
	return EdgeData
}

// OnEdge is the edge handler. It is installed on the pin by EnableRx and
// must not be called concurrently with itself. ts is a monotonic timestamp.
func (d *Device) OnEdge(ts time.Duration) {
	c := &d.capture
	duration := ts - c.last
	class := d.classify(duration)

	switch class {
	case EdgeNoise:
		d.stats.noise.Add(1)
	case EdgeSync:
		c.syncs++
		d.stats.syncs.Store(uint32(c.syncs))
		// The closing sync's high half was counted as a change but
		// carries no data.
		if n := c.changes - 1; n > 1 {
			d.decode(c.timings[:n], ts)
		}
		c.timings[0] = duration
		c.changes = 1
	case EdgeOverflow:
		c.changes = 0
		c.syncs = 0
		d.stats.syncs.Store(0)
		d.stats.overflows.Add(1)
	case EdgeData:
		c.timings[c.changes] = duration
		c.changes++
	}
	if class != EdgeNoise {
		c.last = ts
	}
	if d.trace != nil {
		d.trace(class)
	}
}
