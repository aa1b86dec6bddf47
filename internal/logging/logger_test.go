package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level   string
		dev     bool
		want    zapcore.Level
		wantErr bool
	}{
		{"info", false, zapcore.InfoLevel, false},
		{"debug", true, zapcore.DebugLevel, false},
		{"WARN", false, zapcore.WarnLevel, false},
		{"error", true, zapcore.ErrorLevel, false},
		{"loud", false, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger, err := New(tt.level, tt.dev)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			defer logger.Sync()

			if !logger.Core().Enabled(tt.want) {
				t.Errorf("level %s not enabled", tt.want)
			}
			if tt.want > zapcore.DebugLevel && logger.Core().Enabled(tt.want-1) {
				t.Errorf("level %s enabled below %s", tt.want-1, tt.want)
			}
		})
	}
}
