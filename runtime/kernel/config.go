package kernel

import (
	"time"

	"github.com/viant/procsched/policy"
)

// Config represents kernel configuration
type Config struct {
	// CPUs is the number of scheduler loops run in parallel
	CPUs int `json:"cpus" yaml:"cpus"`
	// Slots is the process table capacity
	Slots int `json:"slots" yaml:"slots"`
	// OpenFiles is the size of the per-process open file table
	OpenFiles int `json:"openFiles" yaml:"openFiles"`
	// IdleInterval is how long a CPU with nothing runnable waits before scanning again
	IdleInterval time.Duration `json:"idleInterval" yaml:"idleInterval"`
	// TimeZone names the location of the wall clock driving windows and deadlines
	TimeZone string `json:"timeZone" yaml:"timeZone"`
	// PrivilegedPrefixes lists the process name prefixes always scheduled at priority 1
	PrivilegedPrefixes []string `json:"privilegedPrefixes" yaml:"privilegedPrefixes"`
}

// DefaultConfig returns the default kernel configuration
func DefaultConfig() Config {
	return Config{
		CPUs:               2,
		Slots:              64,
		OpenFiles:          16,
		IdleInterval:       time.Millisecond,
		TimeZone:           "Local",
		PrivilegedPrefixes: append([]string(nil), policy.DefaultPrivilegedPrefixes...),
	}
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.CPUs <= 0 {
		c.CPUs = defaults.CPUs
	}
	if c.Slots <= 0 {
		c.Slots = defaults.Slots
	}
	if c.OpenFiles <= 0 {
		c.OpenFiles = defaults.OpenFiles
	}
	if c.IdleInterval <= 0 {
		c.IdleInterval = defaults.IdleInterval
	}
	if c.TimeZone == "" {
		c.TimeZone = defaults.TimeZone
	}
	if c.PrivilegedPrefixes == nil {
		c.PrivilegedPrefixes = defaults.PrivilegedPrefixes
	}
}
