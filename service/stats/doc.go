// Package stats keeps aggregated scheduler counters for one kernel instance.
// Components report incremental changes through Delta; observers read a
// Snapshot or register an OnChange callback.
package stats
