// Package azlog is a minimal leveled logging shim exposing
// Debugf/Infof/Errorf call sites for every log line emitted by this
// module, built over the standard log package.
package azlog

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
)

// Level controls which severities are emitted.
type Level int32

// Severity levels, lowest to highest.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
)

var (
	level  atomic.Int32
	stdlog = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
)

func init() {
	level.Store(int32(LevelInfo))
}

// SetLevel changes the minimum level that will be emitted.
func SetLevel(l Level) { level.Store(int32(l)) }

func logf(l Level, prefix string, format string, args ...interface{}) {
	if Level(level.Load()) > l {
		return
	}
	stdlog.Print(prefix, fmt.Sprintf(format, args...))
}

// Debugf logs at debug level.
func Debugf(format string, args ...interface{}) { logf(LevelDebug, "DEBUG: ", format, args...) }

// Infof logs at info level.
func Infof(format string, args ...interface{}) { logf(LevelInfo, "INFO : ", format, args...) }

// Errorf logs at error level.
func Errorf(format string, args ...interface{}) { logf(LevelError, "ERROR: ", format, args...) }
