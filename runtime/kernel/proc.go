package kernel

import (
	"fmt"
	"sync"

	"github.com/viant/procsched/model"
	"github.com/viant/procsched/service/fs"
	"github.com/viant/procsched/service/memory"
)

// Entry is the code a process runs. Returning from it exits the process.
type Entry func(p *Proc)

// procChan is the wait channel identifying one slot, slept on by wait()
type procChan int

// trapFrame is the user register snapshot; only the return value register is interpreted
type trapFrame struct {
	entry int
	ret   int
}

// proc is a process control block. Every field is guarded by the table lock
// except those only the owning process touches while running.
type proc struct {
	slot       int
	pid        int
	state      model.State
	sched      model.Schedule
	privileged bool
	sz         int
	cpuNum     int
	ticks      int
	space      *memory.AddressSpace
	kstack     *memory.Stack
	context    *switchContext
	tf         trapFrame
	ofile      []*fs.File
	cwd        *fs.Inode
	parent     int
	name       string
	killed     bool
	waitChan   any
	entry      Entry
	handle     *Proc
}

// reset returns the slot to Unused
func (p *proc) reset() {
	slot, ofile := p.slot, p.ofile
	for i := range ofile {
		ofile[i] = nil
	}
	*p = proc{slot: slot, parent: -1, cpuNum: -1, ofile: ofile}
}

func (k *Kernel) info(p *proc) model.ProcInfo {
	ret := model.ProcInfo{
		Slot:     p.slot,
		Name:     p.name,
		Pid:      p.pid,
		State:    p.state,
		Schedule: p.sched,
		CPU:      p.cpuNum,
		Ticks:    p.ticks,
		Memory:   p.sz,
		Killed:   p.killed,
	}
	if p.parent >= 0 {
		ret.ParentID = k.procs[p.parent].pid
	}
	return ret
}

// Proc is the handle a running process uses to make system calls.
// Methods must only be called from the process's own goroutine. Once the
// process has exited, deferred calls still running in that goroutine see a
// stale handle: queries return zero values and system calls fail with
// ErrExited, so a reused slot is never touched.
type Proc struct {
	kernel *Kernel
	p      *proc
	pid    int
}

// live reports whether the handle still names its process. The table lock must be held.
func (h *Proc) live() bool {
	return h.p.pid == h.pid && h.p.state != model.StateZombie && h.p.state != model.StateUnused
}

// alive is live for callers not holding the table lock. Only the process
// itself can end its life, so the answer holds until it makes another call.
func (h *Proc) alive() bool {
	k := h.kernel
	k.lock.Lock()
	defer k.lock.Unlock()
	return h.live()
}

// Pid returns the process identifier
func (h *Proc) Pid() int {
	return h.pid
}

// Kernel returns the kernel running the process
func (h *Proc) Kernel() *Kernel {
	return h.kernel
}

// Name returns the process name
func (h *Proc) Name() string {
	k := h.kernel
	k.lock.Lock()
	defer k.lock.Unlock()
	if !h.live() {
		return ""
	}
	return h.p.name
}

// SetName renames the process and recomputes its privilege
func (h *Proc) SetName(name string) {
	k := h.kernel
	k.lock.Lock()
	defer k.lock.Unlock()
	if !h.live() {
		return
	}
	h.p.name = name
	h.p.privileged = k.privileges.IsPrivileged(name)
}

// Killed reports whether the process has a pending kill
func (h *Proc) Killed() bool {
	k := h.kernel
	k.lock.Lock()
	defer k.lock.Unlock()
	return h.live() && h.p.killed
}

// ReturnValue returns the return value register: 0 in a forked child
func (h *Proc) ReturnValue() int {
	k := h.kernel
	k.lock.Lock()
	defer k.lock.Unlock()
	if !h.live() {
		return -1
	}
	return h.p.tf.ret
}

// Size returns the address space size in bytes
func (h *Proc) Size() int {
	k := h.kernel
	k.lock.Lock()
	defer k.lock.Unlock()
	if !h.live() {
		return 0
	}
	return h.p.sz
}

// Fork creates a child running entry, or the caller's entry when nil
func (h *Proc) Fork(entry Entry) (int, error) {
	if !h.alive() {
		return -1, ErrExited
	}
	pid, err := h.kernel.fork(h.p, entry, "")
	h.checkpoint()
	return pid, err
}

// Exit terminates the process. It never returns, except on a stale handle.
func (h *Proc) Exit() {
	if !h.alive() {
		return
	}
	h.kernel.exit(h.p)
}

// Wait blocks until a child exits and returns its pid
func (h *Proc) Wait() (int, error) {
	if !h.alive() {
		return -1, ErrExited
	}
	pid, err := h.kernel.wait(h.p)
	h.checkpoint()
	return pid, err
}

// Kill marks the process with pid as killed
func (h *Proc) Kill(pid int) error {
	if !h.alive() {
		return ErrExited
	}
	err := h.kernel.Kill(pid)
	h.checkpoint()
	return err
}

// Yield gives up the CPU for one scheduling round
func (h *Proc) Yield() {
	if !h.alive() {
		return
	}
	h.kernel.yield(h.p)
	h.checkpoint()
}

// Sleep atomically releases lock and sleeps on channel; lock is held again on return.
// The caller must hold lock and re-check both its condition and Killed afterwards.
// channel must be a non-nil comparable value.
func (h *Proc) Sleep(channel any, lock sync.Locker) {
	if !h.alive() {
		return
	}
	h.kernel.sleep(h.p, channel, lock)
}

// Grow changes the address space size by n bytes
func (h *Proc) Grow(n int) error {
	if !h.alive() {
		return ErrExited
	}
	err := h.kernel.grow(h.p, n)
	h.checkpoint()
	return err
}

// Open adds a new file to the lowest free descriptor
func (h *Proc) Open(name string) (int, error) {
	k := h.kernel
	k.lock.Lock()
	defer k.lock.Unlock()
	if !h.live() {
		return -1, ErrExited
	}
	for fd, f := range h.p.ofile {
		if f == nil {
			h.p.ofile[fd] = fs.Open(name)
			return fd, nil
		}
	}
	return -1, fmt.Errorf("open %s: %w", name, ErrNoFreeFile)
}

// Dup duplicates descriptor fd into the lowest free descriptor
func (h *Proc) Dup(fd int) (int, error) {
	k := h.kernel
	k.lock.Lock()
	defer k.lock.Unlock()
	if !h.live() {
		return -1, ErrExited
	}
	if fd < 0 || fd >= len(h.p.ofile) || h.p.ofile[fd] == nil {
		return -1, fmt.Errorf("dup %d: %w", fd, ErrBadDescriptor)
	}
	for i, f := range h.p.ofile {
		if f == nil {
			h.p.ofile[i] = h.p.ofile[fd].Dup()
			return i, nil
		}
	}
	return -1, fmt.Errorf("dup %d: %w", fd, ErrNoFreeFile)
}

// File returns the open file at fd, or nil
func (h *Proc) File(fd int) *fs.File {
	k := h.kernel
	k.lock.Lock()
	defer k.lock.Unlock()
	if !h.live() || fd < 0 || fd >= len(h.p.ofile) {
		return nil
	}
	return h.p.ofile[fd]
}

// Close releases descriptor fd
func (h *Proc) Close(fd int) error {
	k := h.kernel
	k.lock.Lock()
	if !h.live() {
		k.lock.Unlock()
		return ErrExited
	}
	if fd < 0 || fd >= len(h.p.ofile) || h.p.ofile[fd] == nil {
		k.lock.Unlock()
		return fmt.Errorf("close %d: %w", fd, ErrBadDescriptor)
	}
	f := h.p.ofile[fd]
	h.p.ofile[fd] = nil
	k.lock.Unlock()
	f.Close()
	return nil
}

// Chdir moves the current directory to path
func (h *Proc) Chdir(path string) {
	if !h.alive() {
		return
	}
	k := h.kernel
	inode := k.namespace.Namei(path)
	k.lock.Lock()
	old := h.p.cwd
	h.p.cwd = inode
	k.lock.Unlock()
	if old != nil {
		old.Put()
	}
}

// Cwd returns the current directory
func (h *Proc) Cwd() *fs.Inode {
	k := h.kernel
	k.lock.Lock()
	defer k.lock.Unlock()
	if !h.live() {
		return nil
	}
	return h.p.cwd
}

// checkpoint exits a killed process on its way back from a system call
func (h *Proc) checkpoint() {
	if h.Killed() {
		h.kernel.exit(h.p)
	}
}
