package kernel

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/procsched/model"
	"github.com/viant/procsched/service/event"
	"github.com/viant/procsched/service/fs"
	"github.com/viant/procsched/service/memory"
	"github.com/viant/procsched/service/stats"
)

type Option func(k *Kernel)

// WithLogger sets the kernel logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(k *Kernel) {
		k.logger = logger
	}
}

// WithMemory sets the page pool backing kernel stacks and address spaces
func WithMemory(memory *memory.Service) Option {
	return func(k *Kernel) {
		k.memory = memory
	}
}

// WithNamespace sets the directory namespace used for current directories
func WithNamespace(namespace *fs.Namespace) Option {
	return func(k *Kernel) {
		k.namespace = namespace
	}
}

// WithEvents publishes lifecycle and scheduling events through the supplied service
func WithEvents(service *event.Service) Option {
	return func(k *Kernel) {
		if service != nil {
			k.events = event.PublisherOf[model.ProcInfo](service)
		}
	}
}

// WithStats sets the counters tracker
func WithStats(tracker *stats.Stats) Option {
	return func(k *Kernel) {
		k.stats = tracker
	}
}

// WithNow overrides the wall clock
func WithNow(now func() time.Time) Option {
	return func(k *Kernel) {
		k.now = now
	}
}

// WithFatalHandler replaces the handler invoked on an invariant violation.
// The faulting goroutine is halted once the handler returns.
func WithFatalHandler(handler func(msg string)) Option {
	return func(k *Kernel) {
		k.fatalHandler = handler
	}
}

// WithBootID sets the boot identifier attached to logs
func WithBootID(bootID string) Option {
	return func(k *Kernel) {
		k.bootID = bootID
	}
}
