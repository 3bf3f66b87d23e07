package logic

import "time"

// SystemClock measures milliseconds from its creation using the monotonic
// clock.
type SystemClock struct {
	start time.Time
}

// NewSystemClock creates a SystemClock starting at zero.
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Millis returns milliseconds elapsed since the clock was created.
func (c *SystemClock) Millis() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

// FakeClock is a manually advanced clock for tests.
type FakeClock struct {
	Now uint32
}

// Millis returns the current fake time.
func (c *FakeClock) Millis() uint32 {
	return c.Now
}

// Delay advances the clock by d.
func (c *FakeClock) Delay(d time.Duration) {
	c.Now += millis(d)
}
