package core

import "time"

type Clock struct {
	startTime time.Time
	elapsed   time.Duration
}

func NewClock() *Clock {
	return &Clock{}
}

// Update refreshes elapsed time. Should be called just before reading it.
// Has no effect on non-started clocks.
func (c *Clock) Update() {
	if !c.startTime.IsZero() {
		c.elapsed = time.Since(c.startTime)
	}
}

// Start starts the clock and resets elapsed time.
func (c *Clock) Start() {
	c.startTime = time.Now()
	c.elapsed = 0
}

// Stop stops the clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.startTime = time.Time{}
}

// Elapsed returns elapsed time in seconds.
func (c *Clock) Elapsed() float64 {
	return c.elapsed.Seconds()
}
