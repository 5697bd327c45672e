//go:build go1.22

package main

import "log/slog"

// setLogLoggerLevel aligns the legacy log-package bridge with the handler
// level via the stdlib API available since Go 1.22.
func setLogLoggerLevel(level slog.Level) {
	slog.SetLogLoggerLevel(level)
}
