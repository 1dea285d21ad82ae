package freshness

import (
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIsFreshToday(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	p := NewPolicy(time.UTC).WithClock(fixedClock(now))

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"now", now, true},
		{"two days ago", now.AddDate(0, 0, -2), false},
		{"one second before midnight", time.Date(2024, 3, 14, 23, 59, 59, 0, time.UTC), false},
		{"one second after midnight", time.Date(2024, 3, 15, 0, 0, 1, 0, time.UTC), true},
		{"exactly midnight", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), true},
		{"later today", time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC), true},
		{"same clock time yesterday", now.AddDate(0, 0, -1), false},
		{"zero time", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.IsFreshToday(tt.at); got != tt.want {
				t.Errorf("IsFreshToday(%v) = %v, want %v", tt.at, got, tt.want)
			}
		})
	}
}

func TestIsFreshToday_RealClock(t *testing.T) {
	p := NewPolicy(nil)
	if !p.IsFreshToday(time.Now()) {
		t.Error("IsFreshToday(time.Now()) = false, want true")
	}
	if p.IsFreshToday(time.Now().AddDate(0, 0, -2)) {
		t.Error("IsFreshToday(two days ago) = true, want false")
	}
}

func TestIsFreshToday_TimeZone(t *testing.T) {
	amsterdam := time.FixedZone("CET", 1*60*60)

	// 23:30 UTC on the 14th is 00:30 on the 15th in Amsterdam.
	lastUpdated := time.Date(2024, 3, 14, 23, 30, 0, 0, time.UTC)
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

	if NewPolicy(time.UTC).WithClock(fixedClock(now)).IsFreshToday(lastUpdated) {
		t.Error("UTC policy: want stale")
	}
	if !NewPolicy(amsterdam).WithClock(fixedClock(now)).IsFreshToday(lastUpdated) {
		t.Error("CET policy: want fresh")
	}
}

func TestNextMidnight(t *testing.T) {
	now := time.Date(2024, 12, 31, 22, 0, 0, 0, time.UTC)
	p := NewPolicy(time.UTC).WithClock(fixedClock(now))

	want := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := p.NextMidnight(); !got.Equal(want) {
		t.Errorf("NextMidnight() = %v, want %v", got, want)
	}
}
