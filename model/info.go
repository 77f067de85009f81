package model

// ProcInfo is a read-only snapshot of one process table slot
type ProcInfo struct {
	Slot     int    `json:"slot" yaml:"slot"`
	Name     string `json:"name" yaml:"name"`
	Pid      int    `json:"pid" yaml:"pid"`
	ParentID int    `json:"parentPid,omitempty" yaml:"parentPid,omitempty"`
	State    State  `json:"state" yaml:"state"`
	Schedule `yaml:",inline"`
	CPU      int  `json:"cpu" yaml:"cpu"`
	Ticks    int  `json:"ticks" yaml:"ticks"`
	Memory   int  `json:"memory" yaml:"memory"`
	Killed   bool `json:"killed,omitempty" yaml:"killed,omitempty"`
}
