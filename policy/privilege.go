package policy

import "strings"

// DefaultPrivilegedPrefixes name the interactive shell and the process-table utility
var DefaultPrivilegedPrefixes = []string{"sh", "pt"}

// Privileges is the allow-list of process-name prefixes that are always
// scheduled at HighestPriority. A nil *Privileges grants nothing.
type Privileges struct {
	Prefixes []string `json:"prefixes,omitempty" yaml:"prefixes,omitempty"`
}

// NewPrivileges creates an allow-list; with no prefixes DefaultPrivilegedPrefixes are used
func NewPrivileges(prefixes ...string) *Privileges {
	if len(prefixes) == 0 {
		prefixes = DefaultPrivilegedPrefixes
	}
	return &Privileges{Prefixes: append([]string(nil), prefixes...)}
}

// IsPrivileged matches name against the allow-list. Matching is case sensitive.
func (p *Privileges) IsPrivileged(name string) bool {
	if p == nil {
		return false
	}
	for _, prefix := range p.Prefixes {
		if prefix != "" && strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
