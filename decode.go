package rftrx

import "time"

// decodeFrame matches the intervals of one frame against p. timings[0] is
// the sync gap the frame's unit is derived from; the rest are (high, low)
// pairs. An unpaired interval means an edge was missed and fails the frame,
// as does any pair matching neither template.
func decodeFrame(timings []time.Duration, p Protocol, tolerance int) (code uint64, bits int, unit time.Duration, ok bool) {
	if len(timings) == 0 {
		return 0, 0, 0, false
	}
	unit = (timings[0] / time.Duration(p.SyncLow)).Truncate(time.Microsecond)
	tol := unit * time.Duration(tolerance) / 100
	if (len(timings)-1)%2 != 0 {
		return 0, 0, unit, false
	}

	for i := 1; i+1 < len(timings); i += 2 {
		high, low := timings[i], timings[i+1]
		switch {
		case within(high, unit*time.Duration(p.ZeroHigh), tol) &&
			within(low, unit*time.Duration(p.ZeroLow), tol):
			code <<= 1
		case within(high, unit*time.Duration(p.OneHigh), tol) &&
			within(low, unit*time.Duration(p.OneLow), tol):
			code = code<<1 | 1
		default:
			return 0, 0, unit, false
		}
		bits++
	}
	return code, bits, unit, true
}

func within(got, want, tol time.Duration) bool {
	diff := got - want
	if diff < 0 {
		diff = -diff
	}
	return diff <= tol
}

// decode runs on every sync that closes a frame of more than one interval.
func (d *Device) decode(timings []time.Duration, ts time.Duration) {
	code, bits, unit, ok := decodeFrame(timings, d.proto, d.cfg.Tolerance)
	if !ok || len(timings) <= d.cfg.MinChanges || (code == 0 && !d.cfg.AcceptZero) {
		d.stats.rejected.Add(1)
		return
	}
	d.box.put(Reception{
		Code:        code,
		Timestamp:   ts,
		BitLength:   bits,
		PulseLength: unit,
	})
	d.stats.decoded.Add(1)
}
