// Package rftrx encodes and decodes the on-off keyed pulse trains used by
// cheap 433/315 MHz remote control modules wired straight to a GPIO.
//
// A Device either transmits (SendCode drives the pin through timed high/low
// waveforms) or receives (OnEdge is called for every transition the receiver
// module produces and decoded codes are collected with Poll). Never both.
package rftrx

import "time"

const (
	// MaxChanges is the number of intervals one frame may buffer before the
	// capture resets itself.
	MaxChanges = 67

	// SyncThreshold is the default gap length that marks a frame boundary.
	SyncThreshold = 15000 * time.Microsecond
	// TickThreshold is the default interval at or below which an edge is noise.
	TickThreshold = 300 * time.Microsecond

	// ScaleTime multiplies every transmitted pulse unit.
	ScaleTime = 3
)

// TimePair encodes two durations: how long the line is held high, then low.
type TimePair [2]time.Duration

// FrameMarshaller defines an interface for marshalling data to slice of TimePairs
type FrameMarshaller interface {
	MarshalFrame() []TimePair
}

// Pin is the GPIO line a Device drives or listens on.
type Pin interface {
	// Number reports the GPIO id, for logging.
	Number() int
	// ConfigureOutput switches the line to a push-pull output.
	ConfigureOutput() error
	// ConfigureInput switches the line to a pulled-down input. This is the
	// safe idle state.
	ConfigureInput() error
	// Set drives an output line.
	Set(high bool)
	// SetEdgeHandler registers fn for both rising and falling edges. ts is a
	// monotonic timestamp. A nil fn removes the handler.
	SetEdgeHandler(fn func(ts time.Duration)) error
}

// Delayer blocks for d. Waveform accuracy depends entirely on it.
type Delayer interface {
	Delay(d time.Duration)
}

// DelayFunc adapts a function to Delayer.
type DelayFunc func(time.Duration)

func (f DelayFunc) Delay(d time.Duration) { f(d) }

// SpinDelay busy-waits on the monotonic clock. It is the default Delayer.
var SpinDelay Delayer = DelayFunc(func(d time.Duration) {
	start := time.Now()
	for time.Since(start) < d {
	}
})
