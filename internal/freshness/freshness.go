// Package freshness decides whether a stored price is due for a refresh.
// A price fetched on the current calendar day is fresh; anything older is
// stale. Calendar days are taken in one configured time zone so every
// deployment agrees on where midnight is.
package freshness

import "time"

// Policy is the staleness rule for one time zone.
type Policy struct {
	location *time.Location
	now      func() time.Time
}

// NewPolicy creates a policy for loc. A nil loc means UTC.
func NewPolicy(loc *time.Location) *Policy {
	if loc == nil {
		loc = time.UTC
	}
	return &Policy{location: loc, now: time.Now}
}

// WithClock returns a copy of p reading the current time from now.
func (p *Policy) WithClock(now func() time.Time) *Policy {
	cp := *p
	cp.now = now
	return &cp
}

// Location returns the policy's time zone.
func (p *Policy) Location() *time.Location {
	return p.location
}

// Now returns the current time in the policy's time zone.
func (p *Policy) Now() time.Time {
	return p.now().In(p.location)
}

// IsFreshToday reports whether lastUpdatedAt falls on today's date.
func (p *Policy) IsFreshToday(lastUpdatedAt time.Time) bool {
	return SameDay(lastUpdatedAt, p.now(), p.location)
}

// NextMidnight returns the start of the next calendar day, when every price
// fetched today turns stale.
func (p *Policy) NextMidnight() time.Time {
	y, m, d := p.Now().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, p.location)
}

// SameDay reports whether a and b share a calendar date in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}
