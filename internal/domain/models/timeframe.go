package models

import (
	"strconv"
	"strings"
	"time"
)

// Timeframe is a forecast horizon label such as "30m", "4h", "1d" or "1w".
type Timeframe string

const DefaultTimeframe Timeframe = "4h"

// MaxHorizon is the longest forecast window a timeframe may name.
const MaxHorizon = 52 * 7 * 24 * time.Hour

// ParseTimeframe normalizes and validates a horizon label. A bare number is read as hours.
func ParseTimeframe(s string) (Timeframe, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultTimeframe, nil
	}
	if _, err := strconv.Atoi(s); err == nil {
		s += "h"
	}
	tf := Timeframe(s)
	if _, err := tf.Horizon(); err != nil {
		return "", err
	}
	return tf, nil
}

// Horizon returns the wall-clock span the forecast stays valid for.
func (tf Timeframe) Horizon() (time.Duration, error) {
	s := string(tf)
	if len(s) < 2 {
		return 0, ValidationFailure("timeframe", "invalid timeframe %q", s)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n <= 0 {
		return 0, ValidationFailure("timeframe", "invalid timeframe %q", s)
	}
	var unit time.Duration
	switch s[len(s)-1] {
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	default:
		return 0, ValidationFailure("timeframe", "unknown timeframe unit in %q", s)
	}
	if int64(n) > int64(MaxHorizon/unit) {
		return 0, ValidationFailure("timeframe", "timeframe %q exceeds 52w", s)
	}
	return time.Duration(n) * unit, nil
}

func (tf Timeframe) String() string { return string(tf) }
