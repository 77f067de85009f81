package stats

import (
	"context"
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by the scheduler or
// a lifecycle operation.
type Delta struct {
	Dispatches    int
	IdleLoops     int
	Forks         int
	Exits         int
	Reaps         int
	Kills         int
	WindowEnters  int
	WindowLeaves  int
	Overdue       int
	Reevaluations int
}

// IsZero reports whether the delta changes nothing
func (d Delta) IsZero() bool {
	return d == Delta{}
}

// Add accumulates o into d
func (d *Delta) Add(o Delta) {
	d.Dispatches += o.Dispatches
	d.IdleLoops += o.IdleLoops
	d.Forks += o.Forks
	d.Exits += o.Exits
	d.Reaps += o.Reaps
	d.Kills += o.Kills
	d.WindowEnters += o.WindowEnters
	d.WindowLeaves += o.WindowLeaves
	d.Overdue += o.Overdue
	d.Reevaluations += o.Reevaluations
}

// Stats keeps aggregated counters. It is safe for concurrent use.
type Stats struct {
	BootID    string    `json:"bootID,omitempty" yaml:"bootID,omitempty"`
	StartedAt time.Time `json:"startedAt" yaml:"startedAt"`

	Dispatches    int `json:"dispatches" yaml:"dispatches"`
	IdleLoops     int `json:"idleLoops" yaml:"idleLoops"`
	Forks         int `json:"forks" yaml:"forks"`
	Exits         int `json:"exits" yaml:"exits"`
	Reaps         int `json:"reaps" yaml:"reaps"`
	Kills         int `json:"kills" yaml:"kills"`
	WindowEnters  int `json:"windowEnters" yaml:"windowEnters"`
	WindowLeaves  int `json:"windowLeaves" yaml:"windowLeaves"`
	Overdue       int `json:"overdue" yaml:"overdue"`
	Reevaluations int `json:"reevaluations" yaml:"reevaluations"`
	// DroppedEvents is filled by owners of an event service; the tracker never counts it
	DroppedEvents int `json:"droppedEvents,omitempty" yaml:"droppedEvents,omitempty"`

	mu       sync.Mutex
	onChange func(Stats)
}

// New creates a tracker stamped with the boot identifier
func New(bootID string) *Stats {
	return &Stats{BootID: bootID, StartedAt: time.Now()}
}

// Update applies the supplied delta. The onChange callback, if any, receives
// a copy outside the critical section.
func (s *Stats) Update(d Delta) {
	if s == nil || d.IsZero() {
		return
	}
	s.mu.Lock()
	s.Dispatches += d.Dispatches
	s.IdleLoops += d.IdleLoops
	s.Forks += d.Forks
	s.Exits += d.Exits
	s.Reaps += d.Reaps
	s.Kills += d.Kills
	s.WindowEnters += d.WindowEnters
	s.WindowLeaves += d.WindowLeaves
	s.Overdue += d.Overdue
	s.Reevaluations += d.Reevaluations
	snapshot := s.copyLocked()
	cb := s.onChange
	s.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy suitable for read-only inspection
func (s *Stats) Snapshot() Stats {
	if s == nil {
		return Stats{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// OnChange registers a callback invoked after every Update. Passing nil disables it.
func (s *Stats) OnChange(cb func(Stats)) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.onChange = cb
	s.mu.Unlock()
}

func (s *Stats) copyLocked() Stats {
	return Stats{
		BootID:        s.BootID,
		StartedAt:     s.StartedAt,
		Dispatches:    s.Dispatches,
		IdleLoops:     s.IdleLoops,
		Forks:         s.Forks,
		Exits:         s.Exits,
		Reaps:         s.Reaps,
		Kills:         s.Kills,
		WindowEnters:  s.WindowEnters,
		WindowLeaves:  s.WindowLeaves,
		Overdue:       s.Overdue,
		Reevaluations: s.Reevaluations,
	}
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithTracker embeds the tracker in a derived context
func WithTracker(ctx context.Context, s *Stats) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, trackerKey, s)
}

// FromContext extracts the tracker from ctx
func FromContext(ctx context.Context) (*Stats, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(trackerKey).(*Stats)
	return s, ok
}
