package policy

import "github.com/viant/procsched/model"

// Priority bounds. Lower values are more urgent.
const (
	HighestPriority = 1
	// OverduePriority is forced onto a process whose deadline passed outside its window
	OverduePriority = 2
	// MinDefaultPriority is both the default priority floor and the aging floor
	MinDefaultPriority = 3
	LowestPriority     = 20
)

// DefaultPriority derives the priority of a newly allocated process from the
// number of runnable or running processes: busier system, lower urgency.
func DefaultPriority(active int) int {
	priority := active + MinDefaultPriority
	if priority > LowestPriority {
		return LowestPriority
	}
	if priority < MinDefaultPriority {
		return MinDefaultPriority
	}
	return priority
}

// Transition describes what Reevaluate changed
type Transition struct {
	EnteredWindow bool
	LeftWindow    bool
	Overdue       bool // deadline demotion applied
}

// Changed reports whether any window or deadline transition happened
func (t Transition) Changed() bool {
	return t.EnteredWindow || t.LeftWindow || t.Overdue
}

// EnterWindow swaps in the time priority when now matches the window start.
// It is a no-op while already inside the window.
func EnterWindow(s *model.Schedule, now model.TimeOfDay) bool {
	if s.InTime || !s.Start.Equal(now) {
		return false
	}
	s.Swap()
	s.InTime = true
	return true
}

// LeaveWindow swaps the base priority back when now matches the window end.
// It is a no-op while outside the window.
func LeaveWindow(s *model.Schedule, now model.TimeOfDay) bool {
	if !s.InTime || !s.End.Equal(now) {
		return false
	}
	s.Swap()
	s.InTime = false
	return true
}

// CheckDeadline demotes a process that is outside its window and has reached
// its deadline; otherwise the overdue flag is cleared.
func CheckDeadline(s *model.Schedule, now model.TimeOfDay) bool {
	if !s.InTime && s.Deadline.MinutesUntil(now) <= 0 {
		s.Priority = OverduePriority
		s.OverDeadline = true
		return true
	}
	s.OverDeadline = false
	return false
}

// Reevaluate applies the per-minute window and deadline rules in order
func Reevaluate(s *model.Schedule, now model.TimeOfDay) Transition {
	var ret Transition
	ret.EnteredWindow = EnterWindow(s, now)
	ret.LeftWindow = LeaveWindow(s, now)
	ret.Overdue = CheckDeadline(s, now)
	return ret
}

// Age decrements the priority of an active process that is outside its
// window, not overdue and above MinDefaultPriority.
func Age(s *model.Schedule, state model.State) bool {
	if !state.IsActive() || s.InTime || s.OverDeadline || s.Priority <= MinDefaultPriority {
		return false
	}
	s.Priority--
	return true
}

// Candidate is a runnable process considered by the scheduler
type Candidate struct {
	Slot     int
	Priority int
	// Deadline is the number of minutes from now to the process deadline
	Deadline int
}

// NewCandidate builds a candidate from a slot's schedule
func NewCandidate(slot int, s *model.Schedule, now model.TimeOfDay) Candidate {
	return Candidate{Slot: slot, Priority: s.Priority, Deadline: s.Deadline.MinutesUntil(now)}
}

// Better reports whether c should run before other: smaller priority first,
// then the closer deadline. Remaining ties keep other, so a scan in slot order
// favours the lowest slot.
func (c Candidate) Better(other Candidate) bool {
	if c.Priority != other.Priority {
		return c.Priority < other.Priority
	}
	return c.Deadline < other.Deadline
}

// Select returns the best candidate, or false when there is none
func Select(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	best := candidates[0]
	for _, candidate := range candidates[1:] {
		if candidate.Better(best) {
			best = candidate
		}
	}
	return best, true
}
