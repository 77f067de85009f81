package kernel

// switchContext is the saved execution state of one side of a context
// switch: a CPU scheduler loop or a process goroutine.
type switchContext struct {
	entry   func()
	wake    chan struct{}
	started bool
}

func newSwitchContext(entry func()) *switchContext {
	return &switchContext{entry: entry, wake: make(chan struct{}, 1)}
}

// running returns the context of a goroutine that is already executing
func running() *switchContext {
	ret := newSwitchContext(nil)
	ret.started = true
	return ret
}

// swtch transfers control to to and parks the caller until from is resumed
func swtch(from, to *switchContext) {
	resume(to)
	<-from.wake
}

// resume starts to on its first switch and wakes it afterwards
func resume(to *switchContext) {
	if !to.started {
		to.started = true
		go to.entry()
		return
	}
	to.wake <- struct{}{}
}
