package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T, level string, fn func()) string {
	t.Helper()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	defer SetOutput(nil)

	Init(level)
	fn()

	return buf.String()
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFn    func()
		contains []string
		excludes []string
	}{
		{
			name:     "info log",
			level:    "info",
			logFn:    func() { Info("download started") },
			contains: []string{"download started", "level=INFO"},
		},
		{
			name:     "debug log with debug level",
			level:    "debug",
			logFn:    func() { Debug("chunk written") },
			contains: []string{"chunk written", "level=DEBUG"},
		},
		{
			name:     "debug log suppressed at info level",
			level:    "info",
			logFn:    func() { Debug("chunk written") },
			excludes: []string{"chunk written"},
		},
		{
			name:     "error log",
			level:    "error",
			logFn:    func() { Error("download failed") },
			contains: []string{"download failed", "level=ERROR"},
		},
		{
			name:     "warn log with fields",
			level:    "warn",
			logFn:    func() { Warn("slow link", Fields{"package": "calc", "chunks": 42}) },
			contains: []string{"slow link", "level=WARN", "package=calc", "chunks=42"},
		},
		{
			name:     "formatted log",
			level:    "info",
			logFn:    func() { Infof("cache file available: %s", "/tmp/calc.addon") },
			contains: []string{"cache file available: /tmp/calc.addon"},
		},
		{
			name:     "unknown level falls back to info",
			level:    "bogus",
			logFn:    func() { Info("fallback works") },
			contains: []string{"fallback works"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := captureOutput(t, tt.level, tt.logFn)
			for _, want := range tt.contains {
				assert.Contains(t, output, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, output, unwanted)
			}
		})
	}
}
