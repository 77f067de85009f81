package kernel

import (
	"context"
	"sync"

	"github.com/viant/procsched/model"
	"github.com/viant/procsched/service/event"
	"github.com/viant/procsched/service/stats"
)

type notice struct {
	eventType event.Type
	info      model.ProcInfo
}

// outbox collects events and counter deltas produced under the table lock
// so that they are delivered once the lock is released. Lock order is table
// lock first, outbox second.
type outbox struct {
	mux     sync.Mutex
	notices []notice
	delta   stats.Delta
}

// notify records an event for p; the table lock must be held
func (k *Kernel) notify(eventType event.Type, p *proc) {
	if k.events == nil {
		return
	}
	info := k.info(p)
	k.outbox.mux.Lock()
	k.outbox.notices = append(k.outbox.notices, notice{eventType: eventType, info: info})
	k.outbox.mux.Unlock()
}

// count records a counter delta
func (k *Kernel) count(delta stats.Delta) {
	if k.stats == nil {
		return
	}
	k.outbox.mux.Lock()
	k.outbox.delta.Add(delta)
	k.outbox.mux.Unlock()
}

// flush delivers pending events and counters; the table lock must not be held
func (k *Kernel) flush() {
	k.outbox.mux.Lock()
	notices := k.outbox.notices
	delta := k.outbox.delta
	k.outbox.notices = nil
	k.outbox.delta = stats.Delta{}
	k.outbox.mux.Unlock()

	k.stats.Update(delta)
	for _, n := range notices {
		e := event.NewEvent(&event.Context{Pid: n.info.Pid, Name: n.info.Name, Type: n.eventType, CPU: n.info.CPU, BootID: k.bootID}, n.info)
		if err := k.events.Publish(context.Background(), e); err != nil {
			k.logger.WithError(err).WithField("event", n.eventType).Debug("event dropped")
		}
	}
}
