package kernel

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/viant/procsched/model"
	"github.com/viant/procsched/policy"
	"github.com/viant/procsched/service/event"
	"github.com/viant/procsched/service/stats"
)

// CPUInfo is a read-only snapshot of one CPU record
type CPUInfo struct {
	ID  int `json:"id" yaml:"id"`
	Pid int `json:"pid" yaml:"pid"` // 0 when idle
}

func (k *Kernel) lookup(pid int) *proc {
	if pid <= 0 {
		return nil
	}
	for i := range k.procs {
		if k.procs[i].state != model.StateUnused && k.procs[i].pid == pid {
			return &k.procs[i]
		}
	}
	return nil
}

// SetTime sets the time priority, daily window and deadline of pid. Values
// are stored as given. It returns pid on success. An unknown pid yields -1
// instead of echoing pid back, so callers can tell a miss from a hit.
func (k *Kernel) SetTime(pid, priority, startHour, startMin, endHour, endMin, deadlineHour, deadlineMin int) int {
	k.lock.Lock()
	defer k.lock.Unlock()
	p := k.lookup(pid)
	if p == nil {
		return -1
	}
	p.sched.TimePriority = priority
	p.sched.Start = model.NewTimeOfDay(startHour, startMin)
	p.sched.End = model.NewTimeOfDay(endHour, endMin)
	p.sched.Deadline = model.NewTimeOfDay(deadlineHour, deadlineMin)
	return pid
}

// CheckTime applies the window start and end swaps for the given time of day
// outside the per-minute path. It returns 0.
func (k *Kernel) CheckTime(hour, minute int) int {
	now := model.NewTimeOfDay(hour, minute)
	delta := stats.Delta{}
	k.lock.Lock()
	for i := range k.procs {
		p := &k.procs[i]
		if p.state == model.StateUnused {
			continue
		}
		if policy.EnterWindow(&p.sched, now) {
			delta.WindowEnters++
			k.notify(event.TypeWindowEntered, p)
		}
		if policy.LeaveWindow(&p.sched, now) {
			delta.WindowLeaves++
			k.notify(event.TypeWindowLeft, p)
		}
	}
	k.lock.Unlock()
	k.count(delta)
	k.flush()
	return 0
}

// Chpr sets the priority of pid unless it is inside its time window, in which
// case the change is refused with a warning. It returns pid, including on a
// refusal. An unknown pid yields -1 instead of echoing pid back.
func (k *Kernel) Chpr(pid, priority int) int {
	k.lock.Lock()
	defer k.lock.Unlock()
	p := k.lookup(pid)
	if p == nil {
		return -1
	}
	if p.sched.InTime {
		k.logger.WithField("pid", pid).Warn("process is in its time window, priority unchanged")
		return pid
	}
	p.sched.Priority = priority
	return pid
}

// CheckPr ages every eligible runnable or running process one step towards
// priority 3. It returns 0.
func (k *Kernel) CheckPr() int {
	k.lock.Lock()
	defer k.lock.Unlock()
	for i := range k.procs {
		policy.Age(&k.procs[i].sched, k.procs[i].state)
	}
	return 0
}

// Snapshot returns every slot in use, in slot order
func (k *Kernel) Snapshot() []model.ProcInfo {
	k.lock.Lock()
	defer k.lock.Unlock()
	var ret []model.ProcInfo
	for i := range k.procs {
		if k.procs[i].state != model.StateUnused {
			ret = append(ret, k.info(&k.procs[i]))
		}
	}
	return ret
}

// CPUs returns the CPU records
func (k *Kernel) CPUs() []CPUInfo {
	k.lock.Lock()
	defer k.lock.Unlock()
	ret := make([]CPUInfo, len(k.cpus))
	for i, c := range k.cpus {
		ret[i] = CPUInfo{ID: c.id}
		if c.proc >= 0 {
			ret[i].Pid = k.procs[c.proc].pid
		}
	}
	return ret
}

// Cps writes the sleeping, running and runnable processes to w. It returns 0.
func (k *Kernel) Cps(w io.Writer) int {
	rule := strings.Repeat("-", 114)
	k.lock.Lock()
	defer k.lock.Unlock()
	fmt.Fprintln(w, rule)
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "name\tpid\tstate\tpriority\tstartTime\tendTime\tdeadline\tCPU ticks\tmemory")
	for i := range k.procs {
		p := &k.procs[i]
		switch p.state {
		case model.StateSleeping, model.StateRunning, model.StateRunnable:
		default:
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\t%s\t%s\t%d\t%d\n",
			p.name, p.pid, p.state, p.sched.Priority,
			p.sched.Start, p.sched.End, p.sched.Deadline, p.ticks, p.sz)
	}
	_ = tw.Flush()
	fmt.Fprintln(w, rule)
	return 0
}

// Procdump writes pid, state and name of every slot in use to w
func (k *Kernel) Procdump(w io.Writer) {
	k.lock.Lock()
	defer k.lock.Unlock()
	for i := range k.procs {
		p := &k.procs[i]
		if p.state == model.StateUnused {
			continue
		}
		fmt.Fprintf(w, "%d %s %s\n", p.pid, strings.ToLower(p.state.String()), p.name)
	}
}

// Verify checks the table invariants that must hold whenever the lock is free
func (k *Kernel) Verify() error {
	k.lock.Lock()
	defer k.lock.Unlock()
	pids := map[int]int{}
	running := map[int]int{}
	for i := range k.procs {
		p := &k.procs[i]
		if p.state == model.StateUnused {
			continue
		}
		if prev, ok := pids[p.pid]; ok {
			return fmt.Errorf("%w: pid %d in slots %d and %d", ErrInvariant, p.pid, prev, i)
		}
		pids[p.pid] = i
		switch p.state {
		case model.StateRunning:
			if p.cpuNum < 0 || p.cpuNum >= len(k.cpus) || k.cpus[p.cpuNum].proc != i {
				return fmt.Errorf("%w: pid %d running but not bound to cpu %d", ErrInvariant, p.pid, p.cpuNum)
			}
			running[p.cpuNum]++
			if running[p.cpuNum] > 1 {
				return fmt.Errorf("%w: cpu %d runs more than one process", ErrInvariant, p.cpuNum)
			}
		case model.StateSleeping:
			if p.waitChan == nil {
				return fmt.Errorf("%w: pid %d sleeping without a channel", ErrInvariant, p.pid)
			}
		case model.StateZombie:
			if p.parent < 0 || k.procs[p.parent].state == model.StateUnused {
				return fmt.Errorf("%w: zombie pid %d has no parent", ErrInvariant, p.pid)
			}
		}
	}
	return nil
}
