// Package logging provides structured logging for the rftrx commands and
// the bridge service.
//
// It wraps log/slog: JSON output by default, text for development, level
// filtering, and service/version fields on every entry.
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Info("device enabled", "device", name, "gpio", 17)
//
// The rftrx package itself never logs: its receive path runs in interrupt
// context.
package logging
