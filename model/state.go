package model

// State represents the lifecycle state of a process table slot
type State int

const (
	StateUnused State = iota
	StateEmbryo
	StateSleeping
	StateRunnable
	StateRunning
	StateZombie
)

var stateNames = [...]string{
	StateUnused:   "UNUSED",
	StateEmbryo:   "EMBRYO",
	StateSleeping: "SLEEPING",
	StateRunnable: "RUNNABLE",
	StateRunning:  "RUNNING",
	StateZombie:   "ZOMBIE",
}

// String returns the upper-case state name used by process listings
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "???"
	}
	return stateNames[s]
}

// IsActive reports whether the state counts towards system load (runnable or running)
func (s State) IsActive() bool {
	return s == StateRunnable || s == StateRunning
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
