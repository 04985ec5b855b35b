package azlog

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	orig := stdlog
	origLevel := level.Load()
	var buf bytes.Buffer
	stdlog = log.New(&buf, "", 0)
	defer func() {
		stdlog = orig
		level.Store(origLevel)
	}()
	fn()
	return buf.String()
}

func TestLevelGatingDropsBelowThreshold(t *testing.T) {
	out := captureOutput(t, func() {
		SetLevel(LevelError)
		Debugf("debug %d", 1)
		Infof("info %d", 2)
		Errorf("error %d", 3)
	})
	assert.False(t, strings.Contains(out, "debug 1"))
	assert.False(t, strings.Contains(out, "info 2"))
	assert.True(t, strings.Contains(out, "error 3"))
}

func TestLevelGatingAllowsDebugWhenSetToDebug(t *testing.T) {
	out := captureOutput(t, func() {
		SetLevel(LevelDebug)
		Debugf("verbose detail")
	})
	assert.True(t, strings.Contains(out, "DEBUG: "))
	assert.True(t, strings.Contains(out, "verbose detail"))
}

func TestDefaultLevelIsInfo(t *testing.T) {
	out := captureOutput(t, func() {
		assert.Equal(t, LevelInfo, Level(level.Load()))
		Debugf("should not appear")
		Infof("should appear")
	})
	assert.False(t, strings.Contains(out, "should not appear"))
	assert.True(t, strings.Contains(out, "should appear"))
}
