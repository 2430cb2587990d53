package logger

import (
	"sync"
)

// Log levels understood by the bridge.
const (
	DebugLevel = "debug"
	InfoLevel  = "info"
	WarnLevel  = "warn"
	ErrorLevel = "error"
)

var (
	globalLogger *Logger
	once         sync.Once
)

// Get returns the process-wide logger. The first call decides the level and
// the encoding (console for development, JSON otherwise); later calls return
// the same instance.
func Get(level, env string) *Logger {
	once.Do(func() {
		globalLogger = New(level, env)
	})
	return globalLogger
}
