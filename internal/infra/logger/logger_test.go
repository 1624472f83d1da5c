package logger

import "testing"

func TestNewRejectsUnknownLevel(t *testing.T) {
	if _, err := New("loud", "prod"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestNewHonorsLevel(t *testing.T) {
	tests := []struct {
		level string
		env   string
		debug bool
	}{
		{level: "debug", env: "dev", debug: true},
		{level: "INFO", env: "prod", debug: false},
		{level: " warn ", env: "staging", debug: false},
	}

	for _, tt := range tests {
		log, err := New(tt.level, tt.env)
		if err != nil {
			t.Fatalf("New(%q, %q): %v", tt.level, tt.env, err)
		}
		if got := log.Core().Enabled(-1); got != tt.debug {
			t.Fatalf("New(%q, %q) debug enabled = %v, want %v", tt.level, tt.env, got, tt.debug)
		}
	}
}
