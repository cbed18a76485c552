package logger

import (
	"strings"
	"time"
)

// Status folds an error into the two-valued status field used across logs.
func Status(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}

// Took measures elapsed time since start, rounded for logging.
func Took(start time.Time) time.Duration {
	return RoundMS(time.Since(start))
}

// RoundMS clamps negative durations to zero and rounds to a millisecond.
func RoundMS(d time.Duration) time.Duration {
	if d < 0 {
		d = 0
	}
	return d.Round(time.Millisecond)
}

// SummarizeStrings joins at most limit values with a comma. The second
// return reports whether anything was cut off.
func SummarizeStrings(values []string, limit int) (string, bool) {
	switch {
	case limit <= 0:
		return "", len(values) > 0
	case len(values) > limit:
		return strings.Join(values[:limit], ", "), true
	default:
		return strings.Join(values, ", "), false
	}
}
