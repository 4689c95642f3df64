// Package clock provides reference clocks for reaction-time measurement.
package clock

import "time"

// Monotonic measures time since its construction using the runtime's
// monotonic clock reading.
type Monotonic struct {
	epoch     time.Time
	lastReset time.Duration
}

// NewMonotonic returns a clock whose epoch and last reset are now.
func NewMonotonic() *Monotonic {
	return &Monotonic{epoch: time.Now()}
}

// Now returns the time elapsed since the epoch.
func (c *Monotonic) Now() time.Duration {
	return time.Since(c.epoch)
}

// At converts a wall-clock reading taken in this process to clock time.
func (c *Monotonic) At(t time.Time) time.Duration {
	return t.Sub(c.epoch)
}

// Reset marks the current time as the reaction-time zero point.
func (c *Monotonic) Reset() {
	c.ResetAt(time.Now())
}

// ResetAt marks t as the reaction-time zero point.
func (c *Monotonic) ResetAt(t time.Time) {
	c.lastReset = c.At(t)
}

// LastReset returns the most recent zero point.
func (c *Monotonic) LastReset() time.Duration {
	return c.lastReset
}

// Manual is a clock that only moves when told to.
type Manual struct {
	now       time.Duration
	lastReset time.Duration
}

// Now returns the current manual time.
func (c *Manual) Now() time.Duration {
	return c.now
}

// Set moves the clock to t.
func (c *Manual) Set(t time.Duration) {
	c.now = t
}

// Advance moves the clock forward by d.
func (c *Manual) Advance(d time.Duration) {
	c.now += d
}

// Reset marks the current time as the reaction-time zero point.
func (c *Manual) Reset() {
	c.lastReset = c.now
}

// LastReset returns the most recent zero point.
func (c *Manual) LastReset() time.Duration {
	return c.lastReset
}
