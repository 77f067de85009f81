package model

import (
	"fmt"
	"time"
)

// TimeOfDay is an {hour, minute} pair on the daily clock.
// Values are not range checked: an out-of-range value simply takes part in comparisons as-is.
type TimeOfDay struct {
	Hour   int `json:"hour" yaml:"hour"`
	Minute int `json:"minute" yaml:"minute"`
}

// Unset is the sentinel assigned to windows and deadlines of a freshly allocated process.
// It never matches a real clock reading.
var Unset = TimeOfDay{Hour: 24, Minute: 60}

// NewTimeOfDay creates a time of day
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay{Hour: hour, Minute: minute}
}

// At returns the time of day of t in its own location
func At(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}
}

// Equal reports whether both hour and minute match
func (t TimeOfDay) Equal(other TimeOfDay) bool {
	return t.Hour == other.Hour && t.Minute == other.Minute
}

// MinutesUntil returns (t.Hour-now.Hour)*60 + (t.Minute-now.Minute); zero or negative once t has passed
func (t TimeOfDay) MinutesUntil(now TimeOfDay) int {
	return (t.Hour-now.Hour)*60 + (t.Minute - now.Minute)
}

// IsUnset reports whether t is the allocation sentinel
func (t TimeOfDay) IsUnset() bool {
	return t.Equal(Unset)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%d:%d", t.Hour, t.Minute)
}
