package util

import (
	"strconv"
	"time"
)

// IST is India Standard Time. India observes no DST, so a fixed zone is exact
// and does not depend on the host tz database.
var IST = time.FixedZone("IST", 5*3600+30*60)

// ToIST converts t to India Standard Time.
func ToIST(t time.Time) time.Time {
	return t.In(IST)
}

// ParseTime tries RFC3339, RFC3339Nano, a bare date, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, IST); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}
