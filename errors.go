package rftrx

import "errors"

var (
	// ErrInvalidProtocol is returned for protocol ids outside the table.
	ErrInvalidProtocol = errors.New("rftrx: invalid protocol")
	// ErrRoleConflict is returned when enabling TX while RX is enabled, or the reverse.
	ErrRoleConflict = errors.New("rftrx: role conflict")
	// ErrNotEnabled is returned by sends on a device whose transmitter is disabled.
	ErrNotEnabled = errors.New("rftrx: transmitter not enabled")
	// ErrCodeTooWide is returned when a code does not fit the frame's bit length.
	ErrCodeTooWide = errors.New("rftrx: code too wide for bit length")
	// ErrInvalidPattern is returned by SendBits for anything but '0' and '1'.
	ErrInvalidPattern = errors.New("rftrx: invalid bit pattern")
	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("rftrx: invalid config")
)
