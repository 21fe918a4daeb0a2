package pkg

import "time"

// Clock returns the current instant. Services take one so tests can pin time.
type Clock func() time.Time

func SystemClock() Clock {
	return time.Now
}

// FixedClock always returns t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
