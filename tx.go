package rftrx

import "fmt"

// SendPair holds the line high for pair[0], then low for pair[1].
func (d *Device) SendPair(pair TimePair) error {
	return d.SendPairs(pair)
}

// SendPairs emits pairs back to back. It blocks until the last low phase
// has elapsed and cannot be interrupted.
func (d *Device) SendPairs(pairs ...TimePair) error {
	d.mu.Lock()
	enabled, dl := d.txEnabled, d.delay
	d.mu.Unlock()
	if !enabled {
		return ErrNotEnabled
	}
	for _, p := range pairs {
		d.pin.Set(true)
		dl.Delay(p[0])
		d.pin.Set(false)
		dl.Delay(p[1])
	}
	return nil
}

// SendFrame emits one marshalled frame.
func (d *Device) SendFrame(fm FrameMarshaller) error {
	return d.SendPairs(fm.MarshalFrame()...)
}

// SendCode transmits code Repeat times using the device's protocol.
func (d *Device) SendCode(code uint64) error {
	pattern, err := EncodeBits(code, d.cfg.Protocol, d.cfg.BitLength)
	if err != nil {
		return fmt.Errorf("rftrx: send %d: %w", code, err)
	}
	return d.SendBits(pattern)
}

// SendBits transmits a pattern of '0' and '1' Repeat times. Each repeat is
// closed by a sync; protocol 6 also opens each repeat with one.
func (d *Device) SendBits(pattern string) error {
	if !d.TxEnabled() {
		return ErrNotEnabled
	}
	p, err := LookupProtocol(d.cfg.Protocol)
	if err != nil {
		return err
	}
	pairs, err := waveform(d.cfg.Protocol, p, d.cfg.pulse(p), pattern, d.cfg.Repeat)
	if err != nil {
		return err
	}
	return d.SendPairs(pairs...)
}

// SendFrames emits each frame in turn.
func (d *Device) SendFrames(fms ...FrameMarshaller) error {
	for _, fm := range fms {
		if err := d.SendFrame(fm); err != nil {
			return err
		}
	}
	return nil
}
