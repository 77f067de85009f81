// Package kernel simulates the process-management core of a small Unix-like
// kernel: a fixed-size process table guarded by one lock, sleep and wakeup,
// the fork/exit/wait/kill/yield lifecycle, a per-CPU priority and deadline
// scheduler and the administrative calls layered on top of it.
//
// Every simulated CPU runs its scheduler loop on its own goroutine and every
// started process runs its Entry on its own goroutine. A context switch is a
// channel hand-off between the two, so exactly one of them executes at a time
// and the table lock can be held across the switch the way the scheduler
// contract requires.
//
//	k, _ := kernel.New(kernel.DefaultConfig())
//	_ = k.InitFirstProcess(kernel.InitImage())
//	_ = k.Start(ctx)
//	pid, _ := k.Spawn("worker", func(p *kernel.Proc) { p.Yield() })
package kernel
