package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"", zapcore.InfoLevel, false},
		{"INFO", zapcore.InfoLevel, false},
		{" warn ", zapcore.WarnLevel, false},
		{"warning", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInit(t *testing.T) {
	if err := Init("debug", true); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer Sync()

	if L() == nil {
		t.Fatal("L() returned nil after Init")
	}
	if !L().Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug level should be enabled")
	}
	if S() == nil {
		t.Error("S() returned nil after Init")
	}
	Named("test").Info("named logger works")
}

func TestInit_BadLevel(t *testing.T) {
	if err := Init("loud", false); err == nil {
		t.Error("Init() with unknown level should fail")
	}
}
