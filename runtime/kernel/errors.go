package kernel

import "errors"

var (
	// ErrOutOfMemory is returned when a kernel stack or address space cannot be allocated
	ErrOutOfMemory = errors.New("kernel: out of memory")
	// ErrNoFreeSlot is returned when every process table slot is in use
	ErrNoFreeSlot = errors.New("kernel: no free process slot")
	// ErrNotFound is returned when a pid names no live process or a caller has no child to wait for
	ErrNotFound = errors.New("kernel: not found")
	// ErrFatal wraps the message of an unrecoverable invariant violation
	ErrFatal = errors.New("kernel: fatal")
	// ErrInvariant is returned by Verify when the table breaks a documented invariant
	ErrInvariant = errors.New("kernel: invariant violated")
	// ErrNotInitialised is returned by Start when no first process exists
	ErrNotInitialised = errors.New("kernel: first process not initialised")
)

var (
	// ErrNoFreeFile is returned when a process has no free file descriptor
	ErrNoFreeFile = errors.New("kernel: no free file descriptor")
	// ErrBadDescriptor is returned for a descriptor that names no open file
	ErrBadDescriptor = errors.New("kernel: bad file descriptor")
	// ErrExited is returned by calls made through the handle of a process that already exited
	ErrExited = errors.New("kernel: process exited")
)
