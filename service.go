package procsched

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/procsched/internal/clock"
	"github.com/viant/procsched/internal/idgen"
	"github.com/viant/procsched/internal/logging"
	"github.com/viant/procsched/model"
	"github.com/viant/procsched/policy"
	"github.com/viant/procsched/runtime/kernel"
	"github.com/viant/procsched/service/event"
	"github.com/viant/procsched/service/fs"
	mmemory "github.com/viant/procsched/service/messaging/memory"
	"github.com/viant/procsched/service/memory"
	"github.com/viant/procsched/service/stats"
	"github.com/viant/procsched/tracing"
)

// ErrInvalidArgument is returned when an administrative value is out of range
var ErrInvalidArgument = errors.New("invalid argument")

// Accepted ranges of administrative values
const (
	MinPriority = 0
	MaxPriority = policy.LowestPriority
	MaxHour     = 24
	MaxMinute   = 60
)

// Service represents the procsched facade: it boots a kernel with its
// collaborators and exposes validated, traced administrative calls.
type Service struct {
	config        Config
	kernel        *kernel.Kernel
	memory        *memory.Service
	namespace     *fs.Namespace
	events        *event.Service
	listener      func(*event.Event[model.ProcInfo])
	stats         *stats.Stats
	logger        *logrus.Logger
	logOutput     io.Writer
	fs            afs.Service
	image         kernel.Image
	kernelOptions []kernel.Option
	bootID        string
}

// New creates a service
func New(options ...Option) (*Service, error) {
	s := &Service{config: DefaultConfig(), image: kernel.InitImage()}
	for _, option := range options {
		option(s)
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	if s.logger == nil {
		logger, err := logging.New(s.config.Log, s.logOutput)
		if err != nil {
			return nil, err
		}
		s.logger = logger
	}
	if s.fs == nil {
		s.fs = afs.New()
	}
	if s.config.Tracing.Enabled {
		tracingConfig := s.config.Tracing
		if err := tracing.Init(tracingConfig.ServiceName, tracingConfig.ServiceVersion, tracingConfig.OutputFile); err != nil {
			return nil, fmt.Errorf("failed to init tracing: %w", err)
		}
	}
	s.bootID = idgen.New()
	s.memory = memory.New(s.config.Memory)
	s.stats = stats.New(s.bootID)
	if s.logger.IsLevelEnabled(logrus.TraceLevel) {
		s.stats.OnChange(func(snapshot stats.Stats) {
			s.logger.WithFields(logrus.Fields{
				"dispatches": snapshot.Dispatches,
				"forks":      snapshot.Forks,
				"reaps":      snapshot.Reaps,
				"kills":      snapshot.Kills,
			}).Trace("stats changed")
		})
	}
	if s.namespace == nil {
		s.namespace = fs.NewNamespace()
	}
	kernelOptions := []kernel.Option{
		kernel.WithLogger(s.logger),
		kernel.WithMemory(s.memory),
		kernel.WithNamespace(s.namespace),
		kernel.WithStats(s.stats),
		kernel.WithBootID(s.bootID),
	}
	if s.config.Events.Enabled {
		buffer, retries := s.config.Events.QueueBuffer, s.config.Events.MaxRetries
		s.events = event.New(
			event.WithLogger(s.logger),
			event.WithBootID(s.bootID),
			event.WithNewMemoryQueueConfig(func(name string) mmemory.Config {
				return mmemory.Config{MaxRetries: retries, QueueBuffer: buffer, DropWhenFull: true}
			}),
		)
		if s.listener != nil {
			event.SetListenerOf[model.ProcInfo](s.events, s.listener)
		}
		kernelOptions = append(kernelOptions, kernel.WithEvents(s.events))
	}
	k, err := kernel.New(s.config.Kernel, append(kernelOptions, s.kernelOptions...)...)
	if err != nil {
		return nil, err
	}
	s.kernel = k
	return s, nil
}

// Kernel returns the underlying kernel
func (s *Service) Kernel() *kernel.Kernel {
	return s.kernel
}

// Events returns the event service, nil when events are disabled
func (s *Service) Events() *event.Service {
	return s.events
}

// BootID returns the identifier of this boot
func (s *Service) BootID() string {
	return s.bootID
}

// Namespace returns the directory namespace shared by every process
func (s *Service) Namespace() *fs.Namespace {
	return s.namespace
}

// Stats returns a snapshot of the scheduler counters, including events dropped on full queues
func (s *Service) Stats() stats.Stats {
	ret := s.stats.Snapshot()
	if s.events != nil {
		ret.DroppedEvents = s.events.Dropped()
	}
	return ret
}

// Start creates the root process and launches the CPUs
func (s *Service) Start(ctx context.Context) (err error) {
	_, span := tracing.StartSpan(ctx, "procsched.start", tracing.KindInternal)
	defer func() { tracing.EndSpan(span, err) }()
	if err = s.kernel.InitFirstProcess(s.image); err != nil {
		return err
	}
	return s.kernel.Start(ctx)
}

// Shutdown stops the CPUs and the event listeners
func (s *Service) Shutdown(ctx context.Context) error {
	err := s.kernel.Shutdown(ctx)
	if s.events != nil {
		s.events.Close()
	}
	if tErr := tracing.Flush(ctx); err == nil {
		err = tErr
	}
	return err
}

// Spawn starts a new process named name as a child of the root process
func (s *Service) Spawn(ctx context.Context, name string, entry kernel.Entry) (pid int, err error) {
	_, span := tracing.StartSpan(ctx, "procsched.spawn", tracing.KindInternal)
	span.WithAttributes(map[string]string{"name": name})
	defer func() { tracing.EndSpan(span.WithInt("pid", pid), err) }()
	return s.kernel.Spawn(name, entry)
}

// Kill marks the process with pid as killed
func (s *Service) Kill(ctx context.Context, pid int) (err error) {
	_, span := tracing.StartSpan(ctx, "procsched.kill", tracing.KindInternal)
	span.WithInt("pid", pid)
	defer func() { tracing.EndSpan(span, err) }()
	return s.kernel.Kill(pid)
}

// SetTime validates and applies a time window and deadline to pid
func (s *Service) SetTime(ctx context.Context, pid, priority int, start, end, deadline model.TimeOfDay) (ret int, err error) {
	_, span := tracing.StartSpan(ctx, "procsched.setTime", tracing.KindInternal)
	span.WithInt("pid", pid).WithInt("priority", priority)
	defer func() { tracing.EndSpan(span.WithResult(ret), err) }()
	if err = validatePriority(priority); err != nil {
		return -1, err
	}
	for _, tod := range []model.TimeOfDay{start, end, deadline} {
		if err = validateTimeOfDay(tod); err != nil {
			return -1, err
		}
	}
	ret = s.kernel.SetTime(pid, priority, start.Hour, start.Minute, end.Hour, end.Minute, deadline.Hour, deadline.Minute)
	if ret < 0 {
		return ret, fmt.Errorf("setTime %d: %w", pid, kernel.ErrNotFound)
	}
	s.logger.WithFields(logrus.Fields{"pid": pid, "priority": priority, "start": start.String(), "end": end.String(), "deadline": deadline.String()}).Info("time window set")
	return ret, nil
}

// CheckTime validates and applies the window swaps for tod
func (s *Service) CheckTime(ctx context.Context, tod model.TimeOfDay) (err error) {
	_, span := tracing.StartSpan(ctx, "procsched.checkTime", tracing.KindInternal)
	span.WithAttributes(map[string]string{"time": tod.String()})
	defer func() { tracing.EndSpan(span, err) }()
	if err = validateTimeOfDay(tod); err != nil {
		return err
	}
	s.kernel.CheckTime(tod.Hour, tod.Minute)
	return nil
}

// Chpr validates and sets the priority of pid
func (s *Service) Chpr(ctx context.Context, pid, priority int) (ret int, err error) {
	_, span := tracing.StartSpan(ctx, "procsched.chpr", tracing.KindInternal)
	span.WithInt("pid", pid).WithInt("priority", priority)
	defer func() { tracing.EndSpan(span.WithResult(ret), err) }()
	if err = validatePriority(priority); err != nil {
		return -1, err
	}
	ret = s.kernel.Chpr(pid, priority)
	if ret < 0 {
		return ret, fmt.Errorf("chpr %d: %w", pid, kernel.ErrNotFound)
	}
	return ret, nil
}

// CheckPr ages eligible processes by one priority step
func (s *Service) CheckPr(ctx context.Context) {
	_, span := tracing.StartSpan(ctx, "procsched.checkPr", tracing.KindInternal)
	s.kernel.CheckPr()
	tracing.EndSpan(span, nil)
}

// Cps writes the process table to w
func (s *Service) Cps(ctx context.Context, w io.Writer) error {
	_, span := tracing.StartSpan(ctx, "procsched.cps", tracing.KindInternal)
	s.kernel.Cps(w)
	tracing.EndSpan(span, nil)
	return nil
}

// Snapshot returns every process table slot in use
func (s *Service) Snapshot() []model.ProcInfo {
	return s.kernel.Snapshot()
}

// DumpTable uploads the process table listing to URL
func (s *Service) DumpTable(ctx context.Context, URL string) (err error) {
	_, span := tracing.StartSpan(ctx, "procsched.dumpTable", tracing.KindClient)
	span.WithAttributes(map[string]string{"url": URL})
	defer func() { tracing.EndSpan(span, err) }()
	buffer := &bytes.Buffer{}
	s.kernel.Cps(buffer)
	if err = s.fs.Upload(ctx, URL, file.DefaultFileOsMode, bytes.NewReader(buffer.Bytes())); err != nil {
		return fmt.Errorf("failed to upload process table to %v: %w", URL, err)
	}
	return nil
}

// StartTimeChecker runs CheckTime with the current wall clock every interval
// until ctx is done.
func (s *Service) StartTimeChecker(ctx context.Context, every time.Duration) {
	location, err := time.LoadLocation(s.kernel.Config().TimeZone)
	if err != nil {
		location = time.Local
	}
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tod := model.At(clock.In(location))
				s.logger.WithField("time", tod.String()).Debug("checking time")
				_ = s.CheckTime(ctx, tod)
			}
		}
	}()
}

func validatePriority(priority int) error {
	if priority < MinPriority || priority > MaxPriority {
		return fmt.Errorf("%w: priority %d outside %d..%d", ErrInvalidArgument, priority, MinPriority, MaxPriority)
	}
	return nil
}

func validateTimeOfDay(tod model.TimeOfDay) error {
	if tod.IsUnset() {
		return nil
	}
	if tod.Hour < 0 || tod.Hour > MaxHour {
		return fmt.Errorf("%w: hour %d outside 0..%d", ErrInvalidArgument, tod.Hour, MaxHour)
	}
	if tod.Minute < 0 || tod.Minute > MaxMinute {
		return fmt.Errorf("%w: minute %d outside 0..%d", ErrInvalidArgument, tod.Minute, MaxMinute)
	}
	return nil
}
