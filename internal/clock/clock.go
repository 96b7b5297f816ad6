package clock

import "time"

// Clock abstracts time so services can be tested against fixed instants.
type Clock interface {
	Now() time.Time
}

// SystemClock returns the current wall-clock time in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns the same instant. Test helper.
type FixedClock struct {
	Instant time.Time
}

func (c FixedClock) Now() time.Time { return c.Instant }
