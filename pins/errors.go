package pins

import "errors"

// ErrTransmitOnly is returned when asking a transmit-only pin for edges.
var ErrTransmitOnly = errors.New("pins: transmit only")
