package kernel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/viant/procsched/model"
)

type fatalRecorder struct {
	messages chan string
}

func newFatalRecorder() *fatalRecorder {
	return &fatalRecorder{messages: make(chan string, 16)}
}

func (r *fatalRecorder) handle(msg string) {
	r.messages <- msg
}

func (r *fatalRecorder) await(t *testing.T) string {
	t.Helper()
	select {
	case msg := <-r.messages:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no fatal condition reported")
	}
	return ""
}

func (r *fatalRecorder) none(t *testing.T) {
	t.Helper()
	select {
	case msg := <-r.messages:
		t.Fatalf("unexpected fatal condition: %s", msg)
	default:
	}
}

// newTestKernel creates a kernel whose CPUs are not started
func newTestKernel(t *testing.T, config Config, options ...Option) (*Kernel, *fatalRecorder) {
	t.Helper()
	recorder := newFatalRecorder()
	options = append([]Option{WithFatalHandler(recorder.handle)}, options...)
	k, err := New(config, options...)
	require.NoError(t, err)
	return k, recorder
}

// startKernel boots a kernel whose root process runs entry
func startKernel(t *testing.T, config Config, entry Entry, options ...Option) (*Kernel, *fatalRecorder) {
	t.Helper()
	k, recorder := newTestKernel(t, config, options...)
	require.NoError(t, k.InitFirstProcess(Image{Name: "init", Code: []byte("init"), Entry: entry}))
	require.NoError(t, k.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = k.Shutdown(ctx)
	})
	return k, recorder
}

// place fills the first Unused slot directly, bypassing allocation
func place(k *Kernel, name string, state model.State, schedule model.Schedule) *proc {
	k.lock.Lock()
	defer k.lock.Unlock()
	for i := range k.procs {
		p := &k.procs[i]
		if p.state != model.StateUnused {
			continue
		}
		p.pid = k.nextPid
		k.nextPid++
		p.state = state
		p.sched = schedule
		p.name = name
		p.privileged = k.privileges.IsPrivileged(name)
		if state == model.StateSleeping {
			p.waitChan = procChan(i)
		}
		return p
	}
	panic("process table full")
}

func fixedNow(hour, minute int) Option {
	return WithNow(func() time.Time {
		return time.Date(2024, 3, 4, hour, minute, 30, 0, time.UTC)
	})
}

func utcConfig() Config {
	config := DefaultConfig()
	config.CPUs = 1
	config.Slots = 16
	config.TimeZone = "UTC"
	return config
}

func awaitValue[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatal("timed out")
	}
	var zero T
	return zero
}

// state returns the state of pid, StateUnused when no slot has it
func state(k *Kernel, pid int) model.State {
	for _, info := range k.Snapshot() {
		if info.Pid == pid {
			return info.State
		}
	}
	return model.StateUnused
}

var _ sync.Locker = &tableLock{}
