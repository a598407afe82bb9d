package core

import "time"

type Clock struct {
	startTime float64
	elapsed   float64
}

func NewClock() *Clock {
	return &Clock{}
}

// Updates the provided clock. Should be called just before checking elapsed time.
// Has no effect on non-started clocks.
func (c *Clock) Update() {
	if c.startTime != 0 {
		c.elapsed = float64(time.Now().UnixNano()) - c.startTime
	}
}

// Starts the provided clock. Resets elapsed time.
func (c *Clock) Start() {
	c.startTime = float64(time.Now().UnixNano())
	c.elapsed = 0
}

// Stops the provided clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.startTime = 0
}

// Elapsed returns the nanoseconds measured at the last Update.
func (c *Clock) Elapsed() float64 {
	return c.elapsed
}

// ElapsedDuration is Elapsed as a time.Duration.
func (c *Clock) ElapsedDuration() time.Duration {
	return time.Duration(c.elapsed)
}

// DateTimeStamp encodes t as the decimal number YYYYMMDDhhmmss.
// Stamps taken later compare greater.
func DateTimeStamp(t time.Time) uint64 {
	return uint64(t.Year())*10000000000 +
		uint64(t.Month())*100000000 +
		uint64(t.Day())*1000000 +
		uint64(t.Hour())*10000 +
		uint64(t.Minute())*100 +
		uint64(t.Second())
}
