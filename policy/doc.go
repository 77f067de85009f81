// Package policy implements the priority/deadline rules applied by the
// scheduler: the default priority of newcomers, the daily time-window priority
// swap, deadline demotion, candidate selection, priority aging and the
// privileged-name override.
//
// All functions are pure and operate on model values; callers are responsible
// for holding whatever lock protects the values they pass in.
package policy
