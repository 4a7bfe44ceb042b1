package rftrx

import (
	"fmt"
	"time"
)

// Config is fixed when a Device is created.
type Config struct {
	// Protocol is the pulse timing profile id, 1 through 6.
	Protocol int
	// PulseLength overrides the protocol's transmit pulse length when non-zero.
	PulseLength time.Duration
	// Repeat is how many times a frame is transmitted.
	Repeat int
	// BitLength is the frame width in bits. Protocol 6 ignores it.
	BitLength int
	// Tolerance is the receive matching window in percent of the derived unit.
	Tolerance int

	// SyncThreshold and TickThreshold classify received intervals. Zero
	// selects the package defaults.
	SyncThreshold time.Duration
	TickThreshold time.Duration

	// MinChanges is the number of buffered intervals a frame must exceed to
	// be accepted. AcceptZero lets an all-zero frame through; such frames
	// are treated as noise by default.
	MinChanges int
	AcceptZero bool
}

// DefaultConfig returns protocol 1, 10 repeats, 24 bits and 70% tolerance.
func DefaultConfig() Config {
	return Config{
		Protocol:      1,
		Repeat:        10,
		BitLength:     24,
		Tolerance:     70,
		SyncThreshold: SyncThreshold,
		TickThreshold: TickThreshold,
		MinChanges:    6,
	}
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if _, err := LookupProtocol(c.Protocol); err != nil {
		return err
	}
	switch {
	case c.PulseLength < 0:
		return fmt.Errorf("%w: negative pulse length %v", ErrInvalidConfig, c.PulseLength)
	case c.Repeat < 1:
		return fmt.Errorf("%w: repeat %d < 1", ErrInvalidConfig, c.Repeat)
	case c.BitLength < 1 || c.BitLength > 64:
		return fmt.Errorf("%w: bit length %d outside 1..64", ErrInvalidConfig, c.BitLength)
	case c.Tolerance < 0 || c.Tolerance > 100:
		return fmt.Errorf("%w: tolerance %d outside 0..100", ErrInvalidConfig, c.Tolerance)
	case c.SyncThreshold < 0 || c.TickThreshold < 0:
		return fmt.Errorf("%w: negative threshold", ErrInvalidConfig)
	case c.SyncThreshold != 0 && c.SyncThreshold <= c.tick():
		return fmt.Errorf("%w: sync threshold %v not above tick threshold %v", ErrInvalidConfig, c.SyncThreshold, c.tick())
	case c.MinChanges < 0:
		return fmt.Errorf("%w: negative min changes", ErrInvalidConfig)
	}
	return nil
}

// pulse is the transmit pulse unit before scaling.
func (c Config) pulse(p Protocol) time.Duration {
	if c.PulseLength > 0 {
		return c.PulseLength
	}
	return p.PulseLength
}

func (c Config) sync() time.Duration {
	if c.SyncThreshold > 0 {
		return c.SyncThreshold
	}
	return SyncThreshold
}

func (c Config) tick() time.Duration {
	if c.TickThreshold > 0 {
		return c.TickThreshold
	}
	return TickThreshold
}
