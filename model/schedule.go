package model

// Schedule holds the scheduling attributes of one process.
//
// While InTime is true Priority and TimePriority are swapped relative to their
// values outside the window; a second swap restores them.
type Schedule struct {
	Priority     int       `json:"priority" yaml:"priority"`
	TimePriority int       `json:"timePriority" yaml:"timePriority"`
	Start        TimeOfDay `json:"startTime" yaml:"startTime"`
	End          TimeOfDay `json:"endTime" yaml:"endTime"`
	Deadline     TimeOfDay `json:"deadline" yaml:"deadline"`
	InTime       bool      `json:"inTime" yaml:"inTime"`
	OverDeadline bool      `json:"overDeadline" yaml:"overDeadline"`
}

// NewSchedule returns attributes for a newly allocated process: the supplied
// priority and sentinel window and deadline.
func NewSchedule(priority int) Schedule {
	return Schedule{
		Priority: priority,
		Start:    Unset,
		End:      Unset,
		Deadline: Unset,
	}
}

// Swap exchanges Priority and TimePriority
func (s *Schedule) Swap() {
	s.Priority, s.TimePriority = s.TimePriority, s.Priority
}
