package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWriterLevel(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
		{"nonsense", false, true},
		{"", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			log := NewWriter(tt.level, &buf)

			log.Debug("debug line")
			log.Info("info line")

			if got := strings.Contains(buf.String(), "debug line"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v", got, tt.wantDebug)
			}
			if got := strings.Contains(buf.String(), "info line"); got != tt.wantInfo {
				t.Errorf("info logged = %v, want %v", got, tt.wantInfo)
			}
		})
	}
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "auto_logs", "identity_generator.log")

	log, closer, err := New("info", path)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	log.Error("provisioning failed", "attempt", 3)
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "level=ERROR") || !strings.Contains(string(data), "attempt=3") {
		t.Errorf("log content: %q", data)
	}
}

func TestDiscard(t *testing.T) {
	log := Discard()
	if log.Enabled(t.Context(), 0) {
		t.Error("discard logger should not be enabled")
	}
}
