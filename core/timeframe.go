package core

import (
	"fmt"
	"time"
)

// Timeframe is the lookback bucket a channel search is scoped to.
// Only the three fixed buckets are valid; anything else is rejected
// before any I/O happens.
type Timeframe string

const (
	TimeframeWeek  Timeframe = "week"
	TimeframeMonth Timeframe = "month"
	TimeframeYear  Timeframe = "year"
)

// ParseTimeframe validates a raw timeframe string.
func ParseTimeframe(s string) (Timeframe, error) {
	switch Timeframe(s) {
	case TimeframeWeek, TimeframeMonth, TimeframeYear:
		return Timeframe(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeframe, s)
	}
}

// Lookback returns the fixed lookback duration for the bucket:
// 7, 30 or 365 days.
func (tf Timeframe) Lookback() time.Duration {
	switch tf {
	case TimeframeWeek:
		return 7 * 24 * time.Hour
	case TimeframeMonth:
		return 30 * 24 * time.Hour
	case TimeframeYear:
		return 365 * 24 * time.Hour
	default:
		return 0
	}
}

// WindowStart returns the beginning of the lookback window relative to now.
func (tf Timeframe) WindowStart(now time.Time) time.Time {
	return now.Add(-tf.Lookback())
}

func (tf Timeframe) String() string {
	return string(tf)
}
