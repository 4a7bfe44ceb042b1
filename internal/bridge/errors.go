package bridge

import "errors"

var (
	// ErrUnknownDevice is returned for a device name the bridge does not own.
	ErrUnknownDevice = errors.New("bridge: unknown device")
	// ErrWrongRole is returned when sending through a receiver.
	ErrWrongRole = errors.New("bridge: device is not a transmitter")
	// ErrDuplicateDevice is returned by AddDevice for a name already in use.
	ErrDuplicateDevice = errors.New("bridge: duplicate device")
	// ErrStopped is returned by Send after Stop.
	ErrStopped = errors.New("bridge: stopped")
	// ErrInvalidCommand is returned for a send payload that is not a code.
	ErrInvalidCommand = errors.New("bridge: invalid send command")
)
