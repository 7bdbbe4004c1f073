package models

import (
	"errors"
	"testing"
	"time"
)

func TestParseTimeframe(t *testing.T) {
	tests := []struct {
		in      string
		want    Timeframe
		horizon time.Duration
	}{
		{"", "4h", 4 * time.Hour},
		{"30m", "30m", 30 * time.Minute},
		{" 1D ", "1d", 24 * time.Hour},
		{"2w", "2w", 14 * 24 * time.Hour},
		{"6", "6h", 6 * time.Hour},
		{"52w", "52w", MaxHorizon},
		{"364d", "364d", MaxHorizon},
	}
	for _, tt := range tests {
		tf, err := ParseTimeframe(tt.in)
		if err != nil {
			t.Fatalf("%q: %v", tt.in, err)
		}
		if tf != tt.want {
			t.Fatalf("%q: got %s, want %s", tt.in, tf, tt.want)
		}
		h, _ := tf.Horizon()
		if h != tt.horizon {
			t.Fatalf("%q: horizon %v", tt.in, h)
		}
	}
}

func TestParseTimeframeRejects(t *testing.T) {
	for _, in := range []string{"h", "0h", "-1d", "4y", "abc", "4.5h", "53w", "8737h", "30501w", "213504d", "99999999999999999999h"} {
		if _, err := ParseTimeframe(in); !errors.Is(err, ErrValidation) {
			t.Fatalf("%q: expected validation failure, got %v", in, err)
		}
	}
}
