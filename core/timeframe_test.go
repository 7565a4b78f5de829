package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseTimeframe_Valid(t *testing.T) {
	tests := []struct {
		input    string
		want     Timeframe
		lookback time.Duration
	}{
		{input: "week", want: TimeframeWeek, lookback: 7 * 24 * time.Hour},
		{input: "month", want: TimeframeMonth, lookback: 30 * 24 * time.Hour},
		{input: "year", want: TimeframeYear, lookback: 365 * 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tf, err := ParseTimeframe(tt.input)
			if err != nil {
				t.Fatalf("ParseTimeframe(%q) error: %v", tt.input, err)
			}
			if tf != tt.want {
				t.Errorf("ParseTimeframe(%q) = %v, want %v", tt.input, tf, tt.want)
			}
			if tf.Lookback() != tt.lookback {
				t.Errorf("Lookback() = %v, want %v", tf.Lookback(), tt.lookback)
			}
		})
	}
}

func TestParseTimeframe_Invalid(t *testing.T) {
	for _, input := range []string{"", "day", "Week", "fortnight", "week "} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseTimeframe(input)
			if !errors.Is(err, ErrInvalidTimeframe) {
				t.Errorf("ParseTimeframe(%q) error = %v, want ErrInvalidTimeframe", input, err)
			}
		})
	}
}

func TestTimeframe_WindowStart(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	got := TimeframeWeek.WindowStart(now)
	want := now.Add(-7 * 24 * time.Hour)
	if !got.Equal(want) {
		t.Errorf("WindowStart() = %v, want %v", got, want)
	}
}
