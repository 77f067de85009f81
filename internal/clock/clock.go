package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now is a thin wrapper around NowFunc.
func Now() time.Time { return NowFunc() }

// In returns Now converted to loc; a nil loc keeps the local zone.
func In(loc *time.Location) time.Time {
	now := Now()
	if loc == nil {
		return now
	}
	return now.In(loc)
}

// Fixed returns a NowFunc that always reports t
func Fixed(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
