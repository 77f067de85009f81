package kernel

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/viant/procsched/model"
	"github.com/viant/procsched/service/event"
	"github.com/viant/procsched/service/fs"
	"github.com/viant/procsched/service/memory"
	"github.com/viant/procsched/service/stats"
)

// forkret is where a process starts on its first dispatch: it releases the
// table lock still held by the scheduler and runs the entry.
func (k *Kernel) forkret(p *proc) {
	k.lock.Unlock()
	h, entry := p.handle, p.entry
	h.checkpoint()
	entry(h)
	k.exit(p)
}

// fork creates a runnable child of parent. With a nil entry the child runs
// the parent's entry; with an empty name it inherits the parent's name.
func (k *Kernel) fork(parent *proc, entry Entry, name string) (int, error) {
	np, err := k.allocate()
	if err != nil {
		return -1, err
	}
	k.lock.Lock()
	space, size, tf := parent.space, parent.sz, parent.tf
	ofile := make([]*fs.File, len(parent.ofile))
	copy(ofile, parent.ofile)
	cwd := parent.cwd
	if entry == nil {
		entry = parent.entry
	}
	if name == "" {
		name = parent.name
	}
	k.lock.Unlock()

	childSpace, err := k.memory.CopyVM(space, size)
	if err != nil {
		k.release(np)
		return -1, fmt.Errorf("%w: %w", ErrOutOfMemory, err)
	}
	for i, f := range ofile {
		if f != nil {
			ofile[i] = f.Dup()
		}
	}
	if cwd != nil {
		cwd = cwd.Dup()
	}

	k.lock.Lock()
	np.space = childSpace
	np.sz = size
	np.parent = parent.slot
	np.tf = tf
	np.tf.ret = 0
	copy(np.ofile, ofile)
	np.cwd = cwd
	np.name = name
	np.privileged = k.privileges.IsPrivileged(name)
	np.entry = entry
	np.handle = &Proc{kernel: k, p: np, pid: np.pid}
	np.state = model.StateRunnable
	pid := np.pid
	k.notify(event.TypeForked, np)
	k.lock.Unlock()
	k.count(stats.Delta{Forks: 1})
	k.flush()
	k.logger.WithFields(map[string]interface{}{"pid": pid, "parent": parent.pid, "name": name}).Debug("forked")
	return pid, nil
}

// exit releases the files of p, hands its children to the root process and
// leaves it a Zombie for its parent to reap. It never returns.
func (k *Kernel) exit(p *proc) {
	k.lock.Lock()
	isInit := p.slot == k.initProc
	ofile := make([]*fs.File, len(p.ofile))
	copy(ofile, p.ofile)
	for i := range p.ofile {
		p.ofile[i] = nil
	}
	cwd := p.cwd
	p.cwd = nil
	k.lock.Unlock()
	if isInit {
		k.fatal("init exiting")
	}
	for _, f := range ofile {
		if f != nil {
			f.Close()
		}
	}
	if cwd != nil {
		cwd.Put()
	}

	k.lock.Lock()
	// the parent might be sleeping in wait
	if p.parent >= 0 {
		k.wakeup1(procChan(p.parent))
	}
	for i := range k.procs {
		child := &k.procs[i]
		if child.parent != p.slot {
			continue
		}
		child.parent = k.initProc
		if child.state == model.StateZombie {
			k.wakeup1(procChan(k.initProc))
		}
	}
	p.state = model.StateZombie
	k.notify(event.TypeExited, p)
	k.count(stats.Delta{Exits: 1})
	// final hand-off: the CPU resumes holding the lock and this goroutine ends
	resume(k.cpus[p.cpuNum].scheduler)
	runtime.Goexit()
}

// wait reaps a Zombie child of p, sleeping until one exists
func (k *Kernel) wait(p *proc) (int, error) {
	k.lock.Lock()
	for {
		haveKids := false
		for i := range k.procs {
			child := &k.procs[i]
			if child.parent != p.slot {
				continue
			}
			haveKids = true
			if child.state != model.StateZombie {
				continue
			}
			info := k.info(child)
			k.notify(event.TypeReaped, child)
			stack, space := child.kstack, child.space
			child.reset()
			k.lock.Unlock()

			k.memory.FreeStack(stack)
			k.memory.FreeVM(space)
			k.logger.WithFields(map[string]interface{}{"pid": info.Pid, "ticks": info.Ticks, "memory": info.Memory}).Info("reaped")
			k.count(stats.Delta{Reaps: 1})
			k.flush()
			return info.Pid, nil
		}
		if !haveKids || p.killed {
			k.lock.Unlock()
			return -1, ErrNotFound
		}
		k.sleep(p, procChan(p.slot), &k.lock)
	}
}

// Kill marks the process with pid as killed and wakes it if sleeping. The
// process exits when it next returns from a system call.
func (k *Kernel) Kill(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("kill %d: %w", pid, ErrNotFound)
	}
	k.lock.Lock()
	for i := range k.procs {
		p := &k.procs[i]
		if p.pid != pid {
			continue
		}
		p.killed = true
		if p.state == model.StateSleeping {
			p.state = model.StateRunnable
		}
		k.notify(event.TypeKilled, p)
		k.lock.Unlock()
		k.count(stats.Delta{Kills: 1})
		k.flush()
		return nil
	}
	k.lock.Unlock()
	return fmt.Errorf("kill %d: %w", pid, ErrNotFound)
}

// yield gives up the CPU for one scheduling round
func (k *Kernel) yield(p *proc) {
	k.lock.Lock()
	p.state = model.StateRunnable
	k.sched(p)
	k.lock.Unlock()
}

// sched switches from p back to the scheduler of its CPU. The table lock
// must be held and p must already have left the Running state.
func (k *Kernel) sched(p *proc) {
	if !k.lock.holding() {
		k.fatal("sched ptable.lock")
	}
	if p.state == model.StateRunning {
		k.fatal("sched running")
	}
	c := k.cpus[p.cpuNum]
	if c.proc != p.slot {
		k.fatal(fmt.Sprintf("sched: cpu %d runs slot %d, not %d", c.id, c.proc, p.slot))
	}
	swtch(p.context, c.scheduler)
}

// grow resizes the address space of p by n bytes
func (k *Kernel) grow(p *proc, n int) error {
	k.lock.Lock()
	space, size := p.space, p.sz
	k.lock.Unlock()
	newSize, err := k.memory.ResizeVM(space, size, size+n)
	if errors.Is(err, memory.ErrOutOfMemory) {
		return fmt.Errorf("grow %d: %w: %w", n, ErrOutOfMemory, err)
	}
	if err != nil {
		return fmt.Errorf("grow %d: %w", n, err)
	}
	k.lock.Lock()
	p.sz = newSize
	k.lock.Unlock()
	return nil
}
