package monitoring

import "log"

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

// Prefixed returns a logger that tags each line with a component name, e.g.
// "[batch] ". The current Logf is resolved on every call so SetLogger still
// applies to loggers created earlier.
func Prefixed(component string) func(format string, v ...interface{}) {
	prefix := "[" + component + "] "
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}
