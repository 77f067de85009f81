package kernel

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/procsched/internal/clock"
	"github.com/viant/procsched/internal/logging"
	"github.com/viant/procsched/model"
	"github.com/viant/procsched/policy"
	"github.com/viant/procsched/service/event"
	"github.com/viant/procsched/service/fs"
	"github.com/viant/procsched/service/memory"
	"github.com/viant/procsched/service/stats"
)

// cpu is the record of one simulated processor
type cpu struct {
	id        int
	proc      int // slot currently dispatched, -1 when none
	scheduler *switchContext
	ctx       context.Context
	cancelFn  context.CancelFunc
}

// Kernel owns the process table, the CPU records and the collaborators
// processes use through system calls.
type Kernel struct {
	config     Config
	lock       tableLock
	procs      []proc
	cpus       []*cpu
	nextPid    int
	initProc   int
	lastEval   model.TimeOfDay
	candidates []policy.Candidate // scratch for pick, guarded by the table lock
	location   *time.Location
	privileges *policy.Privileges

	memory       *memory.Service
	namespace    *fs.Namespace
	events       *event.Publisher[model.ProcInfo]
	stats        *stats.Stats
	logger       logrus.FieldLogger
	now          func() time.Time
	fatalHandler func(msg string)
	bootID       string
	outbox       outbox

	cpuWg   sync.WaitGroup
	started bool
}

// New creates a kernel with an empty process table
func New(config Config, options ...Option) (*Kernel, error) {
	config.applyDefaults()
	location, err := time.LoadLocation(config.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", config.TimeZone, err)
	}
	k := &Kernel{
		config:     config,
		procs:      make([]proc, config.Slots),
		nextPid:    1,
		initProc:   -1,
		lastEval:   model.Unset,
		location:   location,
		privileges: policy.NewPrivileges(config.PrivilegedPrefixes...),
		now:        clock.Now,
	}
	for _, option := range options {
		option(k)
	}
	if k.logger == nil {
		k.logger = logging.Discard()
	}
	if k.memory == nil {
		k.memory = memory.New(memory.DefaultConfig())
	}
	if k.namespace == nil {
		k.namespace = fs.NewNamespace()
	}
	if k.fatalHandler == nil {
		k.fatalHandler = func(msg string) {
			panic(fmt.Errorf("%w: %s", ErrFatal, msg))
		}
	}
	if k.bootID != "" {
		k.logger = k.logger.WithField("boot", k.bootID)
	}
	for i := range k.procs {
		k.procs[i].slot = i
		k.procs[i].reset()
		k.procs[i].ofile = make([]*fs.File, config.OpenFiles)
	}
	for i := 0; i < config.CPUs; i++ {
		k.cpus = append(k.cpus, &cpu{id: i, proc: -1, scheduler: running()})
	}
	return k, nil
}

// Config returns the effective configuration
func (k *Kernel) Config() Config {
	return k.config
}

// Memory returns the page pool
func (k *Kernel) Memory() *memory.Service {
	return k.memory
}

// Stats returns the counters tracker, nil when none was configured
func (k *Kernel) Stats() *stats.Stats {
	return k.stats
}

// timeOfDay reads the wall clock in the configured location
func (k *Kernel) timeOfDay() model.TimeOfDay {
	return model.At(k.now().In(k.location))
}

// fatal reports an invariant violation and halts the calling goroutine
func (k *Kernel) fatal(msg string) {
	k.logger.WithField("fatal", true).Error(msg)
	k.fatalHandler(msg)
	runtime.Goexit()
}

// Start launches one scheduler loop per CPU
func (k *Kernel) Start(ctx context.Context) error {
	k.lock.Lock()
	if k.initProc < 0 {
		k.lock.Unlock()
		return ErrNotInitialised
	}
	started := k.started
	k.started = true
	k.lock.Unlock()
	if started {
		return fmt.Errorf("kernel already started")
	}
	for _, c := range k.cpus {
		c.ctx, c.cancelFn = context.WithCancel(ctx)
		k.cpuWg.Add(1)
		go k.scheduler(c)
	}
	k.logger.WithField("cpus", len(k.cpus)).Info("kernel started")
	return nil
}

// Shutdown stops every scheduler loop at its next iteration and waits for
// them, bounded by ctx. Processes parked at that point are abandoned.
func (k *Kernel) Shutdown(ctx context.Context) error {
	for _, c := range k.cpus {
		if c.cancelFn != nil {
			c.cancelFn()
		}
	}
	done := make(chan struct{})
	go func() {
		k.cpuWg.Wait()
		close(done)
	}()
	select {
	case <-done:
		k.flush()
		k.logger.Info("kernel stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
