package kernel

import (
	"time"

	"github.com/viant/procsched/model"
	"github.com/viant/procsched/policy"
	"github.com/viant/procsched/service/event"
	"github.com/viant/procsched/service/stats"
)

// scheduler is the loop of one CPU. It never runs a process itself; it
// hands the CPU to the best runnable process and regains it when that
// process sleeps, yields or exits.
func (k *Kernel) scheduler(c *cpu) {
	defer k.cpuWg.Done()
	idle := time.NewTimer(k.config.IdleInterval)
	defer idle.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}
		if k.schedule(c) {
			continue
		}
		k.count(stats.Delta{IdleLoops: 1})
		idle.Reset(k.config.IdleInterval)
		select {
		case <-c.ctx.Done():
			return
		case <-idle.C:
		}
	}
}

// schedule runs one iteration of the loop on c and reports whether a process was dispatched
func (k *Kernel) schedule(c *cpu) bool {
	now := k.timeOfDay()
	k.lock.Lock()
	k.applyPrivileges()
	k.reevaluate(now)
	p := k.pick(now)
	if p != nil {
		k.dispatch(c, p)
	}
	k.lock.Unlock()
	k.flush()
	return p != nil
}

// applyPrivileges pins privileged processes to the highest priority
func (k *Kernel) applyPrivileges() {
	for i := range k.procs {
		p := &k.procs[i]
		if p.state != model.StateUnused && p.privileged {
			p.sched.Priority = policy.HighestPriority
		}
	}
}

// reevaluate applies the window and deadline rules to every process, at
// most once per wall-clock minute across all CPUs.
func (k *Kernel) reevaluate(now model.TimeOfDay) bool {
	if now.Equal(k.lastEval) {
		return false
	}
	k.lastEval = now
	delta := stats.Delta{Reevaluations: 1}
	for i := range k.procs {
		p := &k.procs[i]
		if p.state == model.StateUnused {
			continue
		}
		wasOverdue := p.sched.OverDeadline
		transition := policy.Reevaluate(&p.sched, now)
		if !transition.Changed() {
			continue
		}
		if transition.EnteredWindow {
			delta.WindowEnters++
			k.notify(event.TypeWindowEntered, p)
		}
		if transition.LeftWindow {
			delta.WindowLeaves++
			k.notify(event.TypeWindowLeft, p)
		}
		if transition.Overdue && !wasOverdue {
			delta.Overdue++
			k.notify(event.TypeOverdue, p)
			k.logger.WithFields(map[string]interface{}{"pid": p.pid, "name": p.name, "deadline": p.sched.Deadline.String()}).Warn("deadline passed")
		}
	}
	k.count(delta)
	return true
}

// pick returns the runnable process with the smallest priority, then the
// closest deadline, then the lowest slot; nil when nothing is runnable.
func (k *Kernel) pick(now model.TimeOfDay) *proc {
	k.candidates = k.candidates[:0]
	for i := range k.procs {
		p := &k.procs[i]
		if p.state == model.StateRunnable {
			k.candidates = append(k.candidates, policy.NewCandidate(i, &p.sched, now))
		}
	}
	best, ok := policy.Select(k.candidates)
	if !ok {
		return nil
	}
	return &k.procs[best.Slot]
}

// dispatch runs p on c until it gives the CPU back. The table lock is held
// across the switch and is held again on return.
func (k *Kernel) dispatch(c *cpu, p *proc) {
	if p.state != model.StateRunnable {
		k.fatal("dispatch: process not runnable")
	}
	if c.proc >= 0 {
		k.fatal("dispatch: cpu busy")
	}
	c.proc = p.slot
	p.state = model.StateRunning
	p.cpuNum = c.id
	p.ticks++
	k.count(stats.Delta{Dispatches: 1})
	swtch(c.scheduler, p.context)
	c.proc = -1
}
