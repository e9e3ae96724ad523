// Package logger declares the logging interface shared by the dispatch engine,
// the meter and the key-store adapter.
package logger

// Logger is satisfied by infra/logger.ZerologLogger and infra/logger.NopLogger.
type Logger interface {
	Debugf(format string, args ...any)
	// Debugw attaches fields such as vehicle_id or attempt to the entry.
	Debugw(msg string, fields map[string]any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
