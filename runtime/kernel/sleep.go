package kernel

import (
	"reflect"
	"sync"

	"github.com/viant/procsched/model"
)

// sleep atomically releases lock and suspends p on channel. Once the table
// lock is held no wakeup can be lost, since wakeup needs it too. The caller
// holds lock on entry and on return.
func (k *Kernel) sleep(p *proc, channel any, lock sync.Locker) {
	if p == nil {
		k.fatal("sleep: no process")
	}
	if lock == nil {
		k.fatal("sleep without lk")
	}
	if channel == nil {
		k.fatal("sleep: nil channel")
	}
	if !matchable(channel) {
		k.fatal("sleep: channel not comparable")
	}
	table := lock == sync.Locker(&k.lock)
	if !table {
		k.lock.Lock()
		lock.Unlock()
	}
	p.waitChan = channel
	p.state = model.StateSleeping
	k.sched(p)
	p.waitChan = nil
	if !table {
		k.lock.Unlock()
		lock.Lock()
	}
}

// Wakeup makes every process sleeping on channel runnable. Channels no
// process can sleep on are ignored.
func (k *Kernel) Wakeup(channel any) {
	if channel == nil || !matchable(channel) {
		return
	}
	k.lock.Lock()
	k.wakeup1(channel)
	k.lock.Unlock()
}

// wakeup1 is Wakeup with the table lock already held
func (k *Kernel) wakeup1(channel any) {
	for i := range k.procs {
		p := &k.procs[i]
		if p.state == model.StateSleeping && p.waitChan == channel {
			p.state = model.StateRunnable
		}
	}
}

// matchable reports whether channel can be matched with ==
func matchable(channel any) bool {
	return reflect.TypeOf(channel).Comparable()
}
