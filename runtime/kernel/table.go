package kernel

import (
	"fmt"

	"github.com/viant/procsched/model"
	"github.com/viant/procsched/policy"
)

// allocate claims the first Unused slot as an Embryo with a fresh pid, the
// load-derived default priority and a kernel stack. The first dispatch of
// the slot enters forkret.
func (k *Kernel) allocate() (*proc, error) {
	k.lock.Lock()
	active := 0
	for i := range k.procs {
		if k.procs[i].state.IsActive() {
			active++
		}
	}
	var p *proc
	for i := range k.procs {
		if k.procs[i].state == model.StateUnused {
			p = &k.procs[i]
			break
		}
	}
	if p == nil {
		k.lock.Unlock()
		return nil, ErrNoFreeSlot
	}
	p.state = model.StateEmbryo
	p.pid = k.nextPid
	k.nextPid++
	p.sched = model.NewSchedule(policy.DefaultPriority(active))
	k.lock.Unlock()

	// the slot is not runnable yet, so the rest needs no lock
	stack, err := k.memory.AllocStack()
	if err != nil {
		k.lock.Lock()
		p.reset()
		k.lock.Unlock()
		return nil, fmt.Errorf("%w: kernel stack: %w", ErrOutOfMemory, err)
	}
	p.kstack = stack
	p.context = newSwitchContext(func() { k.forkret(p) })
	p.tf = trapFrame{}
	return p, nil
}

// release frees the resources of a slot that never became runnable and returns it to Unused
func (k *Kernel) release(p *proc) {
	k.memory.FreeStack(p.kstack)
	k.memory.FreeVM(p.space)
	k.lock.Lock()
	p.reset()
	k.lock.Unlock()
}

// InitFirstProcess bootstraps the root process from image. It must be called
// exactly once, before Start.
func (k *Kernel) InitFirstProcess(image Image) error {
	k.lock.Lock()
	exists := k.initProc >= 0
	k.lock.Unlock()
	if exists {
		k.fatal("userinit: init already exists")
	}
	p, err := k.allocate()
	if err != nil {
		k.fatal("userinit: out of memory?")
		return err
	}
	space, err := k.memory.SetupVM()
	if err != nil {
		k.release(p)
		k.fatal("userinit: out of memory?")
		return err
	}
	p.space = space
	size, err := k.memory.InitVM(space, image.Code)
	if err != nil {
		k.release(p)
		k.fatal("userinit: " + err.Error())
		return err
	}
	name := image.Name
	if name == "" {
		name = DefaultInitName
	}
	entry := image.Entry
	if entry == nil {
		entry = ReapForever
	}
	cwd := k.namespace.Namei("/")

	k.lock.Lock()
	p.sz = size
	p.tf = trapFrame{entry: image.EntryPoint}
	p.name = name
	p.privileged = k.privileges.IsPrivileged(name)
	p.cwd = cwd
	p.entry = entry
	p.handle = &Proc{kernel: k, p: p, pid: p.pid}
	p.state = model.StateRunnable
	k.initProc = p.slot
	k.lock.Unlock()
	k.logger.WithFields(map[string]interface{}{"pid": p.pid, "name": name}).Info("first process ready")
	return nil
}

// Spawn forks a new child of the root process running entry under name,
// the way a shell launches a program on behalf of a user.
func (k *Kernel) Spawn(name string, entry Entry) (int, error) {
	k.lock.Lock()
	slot := k.initProc
	k.lock.Unlock()
	if slot < 0 {
		return -1, ErrNotInitialised
	}
	if entry == nil {
		return -1, fmt.Errorf("spawn %s: entry was nil", name)
	}
	return k.fork(&k.procs[slot], entry, name)
}
