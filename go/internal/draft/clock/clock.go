// Package clock implements the per-pick countdown of a draft session.
//
// A Clock is a plain value: every method takes the current instant, so the
// caller decides where time comes from (clockwork in production and tests).
// Remote observers are never sent a bare "seconds remaining"; they get the
// absolute end time together with the server's own time, see View.
package clock

import "time"

// Clock is the countdown state of the pick currently on the clock.
type Clock struct {
	StartedAt time.Time     // zero while paused or stopped
	Allowance time.Duration // effective limit of the running pick
	Remaining time.Duration // frozen time left while paused
	Paused    bool
}

// View is the client-facing deadline reference.
type View struct {
	EndTime     time.Time `json:"end_time"`
	ServerTime  time.Time `json:"server_time"`
	RemainingMs int64     `json:"remaining_ms"`
	Paused      bool      `json:"paused"`
}

// Start begins a fresh pick with the full limit.
func (c *Clock) Start(now time.Time, limit time.Duration) {
	c.StartedAt = now
	c.Allowance = limit
	c.Remaining = 0
	c.Paused = false
}

// Stop clears the clock, used once the draft completes.
func (c *Clock) Stop() {
	*c = Clock{}
}

// Running reports whether a countdown is active.
func (c Clock) Running() bool {
	return !c.Paused && !c.StartedAt.IsZero()
}

// EndTime is StartedAt + Allowance. Zero when not running.
func (c Clock) EndTime() time.Time {
	if !c.Running() {
		return time.Time{}
	}
	return c.StartedAt.Add(c.Allowance)
}

// Pause freezes the clock and returns the time left, never negative.
func (c *Clock) Pause(now time.Time) time.Duration {
	if c.Paused {
		return c.Remaining
	}
	remaining := c.EndTime().Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	c.Remaining = remaining
	c.StartedAt = time.Time{}
	c.Paused = true
	return remaining
}

// Resume restarts the countdown at now with the frozen remaining time as allowance.
func (c *Clock) Resume(now time.Time, remaining time.Duration) {
	if remaining < 0 {
		remaining = 0
	}
	c.StartedAt = now
	c.Allowance = remaining
	c.Remaining = 0
	c.Paused = false
}

// RemainingAt returns time left at now. A paused clock reports its frozen value.
func (c Clock) RemainingAt(now time.Time) time.Duration {
	if c.Paused {
		return c.Remaining
	}
	if !c.Running() {
		return 0
	}
	left := c.EndTime().Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// IsExpired is a pure comparison; a paused or stopped clock never expires.
func (c Clock) IsExpired(now time.Time) bool {
	if !c.Running() {
		return false
	}
	return !now.Before(c.EndTime())
}

// Deadline returns the absolute end time paired with the server time.
func (c Clock) Deadline(now time.Time) View {
	return View{
		EndTime:     c.EndTime(),
		ServerTime:  now,
		RemainingMs: c.RemainingAt(now).Milliseconds(),
		Paused:      c.Paused,
	}
}
