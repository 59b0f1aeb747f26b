// Package monitoring holds the diagnostic logger shared by the redirection
// packages. Hosts can redirect or mute it with SetLogger.
package monitoring

import (
	"log"
	"sync/atomic"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

var warnings atomic.Uint64

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Warnf logs a recoverable condition (degenerate geometry, dropped input or
// records) and counts it. It never interrupts the caller.
func Warnf(format string, v ...interface{}) {
	warnings.Add(1)
	Logf("warning: "+format, v...)
}

// Warnings returns the number of Warnf calls since start or the last
// ResetWarnings.
func Warnings() uint64 {
	return warnings.Load()
}

// ResetWarnings zeroes the warning counter.
func ResetWarnings() {
	warnings.Store(0)
}
