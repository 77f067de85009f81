// Package model contains the data types shared by the process table, the
// scheduling policy and the administrative interface: process states, the
// time-of-day values used by scheduling windows and deadlines, the per-process
// scheduling attributes and the read-only snapshot rows reported by cps.
package model
