package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level, format string
		verbose       bool
		want          zapcore.Level
	}{
		{"info", "console", false, zapcore.InfoLevel},
		{"warn", "json", false, zapcore.WarnLevel},
		{"error", "", true, zapcore.DebugLevel},
		{"", "json", false, zapcore.InfoLevel},
	}
	for _, tt := range tests {
		logger, err := New(tt.level, tt.format, tt.verbose)
		if err != nil {
			t.Fatalf("New(%q, %q): %v", tt.level, tt.format, err)
		}
		if !logger.Core().Enabled(tt.want) {
			t.Errorf("New(%q, %q, %v): level %v not enabled", tt.level, tt.format, tt.verbose, tt.want)
		}
		if tt.want > zapcore.DebugLevel && logger.Core().Enabled(tt.want-1) {
			t.Errorf("New(%q, %q, %v): level %v should be disabled", tt.level, tt.format, tt.verbose, tt.want-1)
		}
	}
}

func TestNewInvalid(t *testing.T) {
	if _, err := New("loud", "json", false); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New("info", "xml", false); err == nil {
		t.Error("expected error for unknown format")
	}
}
