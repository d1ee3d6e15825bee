// Package monitoring holds the process-wide diagnostic logger used by the
// sweep pipeline.
package monitoring

import (
	"log"
	"time"
)

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// now is replaced in tests.
var now = time.Now

// Timed logs the start of stage and returns a function that logs its elapsed
// time. Use it as:
//
//	defer monitoring.Timed("distance matrix")()
func Timed(stage string) func() time.Duration {
	start := now()
	Logf("[%s] started", stage)
	return func() time.Duration {
		elapsed := now().Sub(start)
		Logf("[%s] finished in %s", stage, elapsed.Round(time.Microsecond))
		return elapsed
	}
}
