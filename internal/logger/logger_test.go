package logger

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"Warn", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
		{"", LevelInfo, true},
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

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{level: LevelWarn, logger: log.New(&buf, "", 0)}

	l.Debug("dropped debug")
	l.Info("dropped info")
	l.Warn("kept warn")
	l.Error("kept error")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("messages below the level leaked through: %q", out)
	}
	if !strings.Contains(out, "[WARN] kept warn") || !strings.Contains(out, "[ERROR] kept error") {
		t.Errorf("expected warn and error lines, got: %q", out)
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{level: LevelError, logger: log.New(&buf, "", 0)}

	l.Info("before")
	l.SetLevel(LevelDebug)
	l.Info("after")

	out := buf.String()
	if strings.Contains(out, "before") {
		t.Errorf("info logged while level was error: %q", out)
	}
	if !strings.Contains(out, "after") {
		t.Errorf("info not logged after lowering level: %q", out)
	}
}
