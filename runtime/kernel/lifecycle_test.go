package kernel

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/procsched/model"
	"github.com/viant/procsched/service/event"
	"github.com/viant/procsched/service/memory"
	"github.com/viant/procsched/service/stats"
)

type waitResult struct {
	forked    int
	reaped    int
	err       error
	again     error
	freeAfter int
	freeAt    int
}

func TestProc_ForkExitWait(t *testing.T) {
	pool := memory.New(memory.DefaultConfig())
	results := make(chan waitResult, 1)
	childRet := make(chan int, 1)
	exitReturned := make(chan bool, 1)
	k, recorder := startKernel(t, utcConfig(), func(p *Proc) {
		freeAt := pool.FreePages()
		pid, _ := p.Fork(func(c *Proc) {
			childRet <- c.ReturnValue()
			c.Exit()
			exitReturned <- true
		})
		reaped, err := p.Wait()
		_, again := p.Wait()
		results <- waitResult{forked: pid, reaped: reaped, err: err, again: again, freeAt: freeAt, freeAfter: pool.FreePages()}
		ReapForever(p)
	}, WithMemory(pool))

	result := awaitValue(t, results)
	assert.Equal(t, 0, awaitValue(t, childRet))
	require.NoError(t, result.err)
	assert.Equal(t, 2, result.forked)
	assert.Equal(t, result.forked, result.reaped)
	assert.ErrorIs(t, result.again, ErrNotFound)
	assert.Equal(t, result.freeAt, result.freeAfter)
	assert.Len(t, exitReturned, 0)
	require.Eventually(t, func() bool { return state(k, 1) == model.StateSleeping }, 2*time.Second, time.Millisecond)
	assert.Len(t, k.Snapshot(), 1)
	recorder.none(t)
}

func TestProc_WaitSleepsUntilChildExits(t *testing.T) {
	config := utcConfig()
	config.CPUs = 2
	release := make(chan struct{})
	results := make(chan waitResult, 1)
	k, recorder := startKernel(t, config, func(p *Proc) {
		pid, err := p.Fork(func(c *Proc) {
			<-release
			for i := 0; i < 3; i++ {
				c.Yield()
			}
		})
		reaped, werr := p.Wait()
		if err == nil {
			err = werr
		}
		results <- waitResult{forked: pid, reaped: reaped, err: err}
		ReapForever(p)
	})

	require.Eventually(t, func() bool { return state(k, 1) == model.StateSleeping }, 2*time.Second, time.Millisecond)
	assert.Equal(t, model.StateRunning, state(k, 2))
	close(release)

	result := awaitValue(t, results)
	require.NoError(t, result.err)
	assert.Equal(t, 2, result.reaped)
	recorder.none(t)
}

func TestProc_KillSleeping(t *testing.T) {
	var mux sync.Mutex
	results := make(chan waitResult, 1)
	k, recorder := startKernel(t, utcConfig(), func(p *Proc) {
		pid, _ := p.Fork(func(c *Proc) {
			mux.Lock()
			for !c.Killed() {
				c.Sleep("never", &mux)
			}
			mux.Unlock()
		})
		// step below the child so that yielding lets it run
		p.Kernel().Chpr(p.Pid(), 10)
		for state(p.Kernel(), pid) != model.StateSleeping {
			p.Yield()
		}
		err := p.Kill(pid)
		reaped, werr := p.Wait()
		if err == nil {
			err = werr
		}
		results <- waitResult{forked: pid, reaped: reaped, err: err}
		ReapForever(p)
	})
	result := awaitValue(t, results)
	require.NoError(t, result.err)
	assert.Equal(t, result.forked, result.reaped)
	assert.ErrorIs(t, k.Kill(result.forked), ErrNotFound)
	recorder.none(t)
}

func TestProc_KilledExitsAtCheckpoint(t *testing.T) {
	results := make(chan waitResult, 1)
	reachedEnd := make(chan bool, 1)
	_, recorder := startKernel(t, utcConfig(), func(p *Proc) {
		pid, _ := p.Fork(func(c *Proc) {
			reachedEnd <- true
		})
		err := p.Kill(pid)
		reaped, werr := p.Wait()
		if err == nil {
			err = werr
		}
		results <- waitResult{forked: pid, reaped: reaped, err: err}
		ReapForever(p)
	})
	result := awaitValue(t, results)
	require.NoError(t, result.err)
	assert.Equal(t, result.forked, result.reaped)
	assert.Len(t, reachedEnd, 0)
	recorder.none(t)
}

func TestProc_ExitReparentsToInit(t *testing.T) {
	tracker := stats.New("")
	grandchild := make(chan int, 1)
	release := make(chan struct{})
	k, recorder := startKernel(t, utcConfig(), func(p *Proc) {
		_, _ = p.Fork(func(c *Proc) {
			pid, _ := c.Fork(func(g *Proc) {
				<-release
			})
			grandchild <- pid
		})
		ReapForever(p)
	}, WithStats(tracker))

	pid := awaitValue(t, grandchild)
	require.Eventually(t, func() bool {
		for _, info := range k.Snapshot() {
			if info.Pid == pid {
				return info.ParentID == 1
			}
		}
		return false
	}, 2*time.Second, time.Millisecond)
	close(release)
	require.Eventually(t, func() bool { return len(k.Snapshot()) == 1 }, 2*time.Second, time.Millisecond)
	snapshot := tracker.Snapshot()
	assert.Equal(t, 2, snapshot.Forks)
	assert.Equal(t, 2, snapshot.Exits)
	assert.Equal(t, 2, snapshot.Reaps)
	recorder.none(t)
}

func TestProc_FilesRestoredAfterExit(t *testing.T) {
	type refs struct {
		file, cwd int
	}
	inChild := make(chan refs, 1)
	afterWait := make(chan refs, 1)
	_, recorder := startKernel(t, utcConfig(), func(p *Proc) {
		fd, _ := p.Open("console")
		file, cwd := p.File(fd), p.Cwd()
		_, _ = p.Fork(func(c *Proc) {
			inChild <- refs{file: c.File(fd).Refs(), cwd: c.Cwd().Refs()}
		})
		_, _ = p.Wait()
		afterWait <- refs{file: file.Refs(), cwd: cwd.Refs()}
		ReapForever(p)
	})
	assert.Equal(t, refs{file: 2, cwd: 2}, awaitValue(t, inChild))
	assert.Equal(t, refs{file: 1, cwd: 1}, awaitValue(t, afterWait))
	recorder.none(t)
}

func TestProc_Descriptors(t *testing.T) {
	type result struct {
		fds []int
		err []error
	}
	results := make(chan result, 1)
	config := utcConfig()
	config.OpenFiles = 2
	startKernel(t, config, func(p *Proc) {
		var ret result
		first, err := p.Open("a")
		ret.fds, ret.err = append(ret.fds, first), append(ret.err, err)
		second, err := p.Dup(first)
		ret.fds, ret.err = append(ret.fds, second), append(ret.err, err)
		_, err = p.Open("b")
		ret.err = append(ret.err, err)
		ret.err = append(ret.err, p.Close(second))
		ret.err = append(ret.err, p.Close(second))
		results <- ret
		ReapForever(p)
	})
	actual := awaitValue(t, results)
	assert.Equal(t, []int{0, 1}, actual.fds)
	assert.NoError(t, actual.err[0])
	assert.NoError(t, actual.err[1])
	assert.ErrorIs(t, actual.err[2], ErrNoFreeFile)
	assert.NoError(t, actual.err[3])
	assert.ErrorIs(t, actual.err[4], ErrBadDescriptor)
}

func TestProc_Grow(t *testing.T) {
	pool := memory.New(memory.Config{Pages: 8})
	type result struct {
		sizes []int
		err   error
	}
	results := make(chan result, 1)
	startKernel(t, utcConfig(), func(p *Proc) {
		var ret result
		ret.sizes = append(ret.sizes, p.Size())
		_ = p.Grow(2 * memory.DefaultPageSize)
		ret.sizes = append(ret.sizes, p.Size())
		_ = p.Grow(-memory.DefaultPageSize)
		ret.sizes = append(ret.sizes, p.Size())
		ret.err = p.Grow(100 * memory.DefaultPageSize)
		results <- ret
		ReapForever(p)
	}, WithMemory(pool))
	actual := awaitValue(t, results)
	assert.Equal(t, []int{4096, 3 * 4096, 2 * 4096}, actual.sizes)
	assert.ErrorIs(t, actual.err, ErrOutOfMemory)
	assert.ErrorIs(t, actual.err, memory.ErrOutOfMemory)
}

func TestKernel_Spawn(t *testing.T) {
	config := utcConfig()
	events := event.New()
	defer events.Close()
	received := make(chan *event.Event[model.ProcInfo], 32)
	event.SetListenerOf[model.ProcInfo](events, func(e *event.Event[model.ProcInfo]) { received <- e })

	k, recorder := startKernel(t, config, ReapForever, WithEvents(events), WithBootID("boot-7"))
	ran := make(chan string, 1)
	pid, err := k.Spawn("sh", func(p *Proc) {
		ran <- p.Name()
	})
	require.NoError(t, err)
	assert.Equal(t, "sh", awaitValue(t, ran))
	require.Eventually(t, func() bool { return len(k.Snapshot()) == 1 }, 2*time.Second, time.Millisecond)

	var types []event.Type
	for len(types) < 3 {
		e := awaitValue(t, received)
		if e.Context.Pid != pid {
			continue
		}
		assert.Equal(t, "boot-7", e.Context.BootID)
		types = append(types, e.Context.Type)
	}
	assert.ElementsMatch(t, []event.Type{event.TypeForked, event.TypeExited, event.TypeReaped}, types)
	recorder.none(t)
}

func TestKernel_Invariants(t *testing.T) {
	config := utcConfig()
	config.CPUs = 3
	tracker := stats.New("")
	k, recorder := startKernel(t, config, ReapForever, WithStats(tracker))
	const workers, rounds = 6, 20
	for i := 0; i < workers; i++ {
		_, err := k.Spawn("worker", func(p *Proc) {
			for j := 0; j < rounds; j++ {
				p.Yield()
			}
		})
		require.NoError(t, err)
	}
	deadline := time.Now().Add(5 * time.Second)
	for len(k.Snapshot()) > 1 && time.Now().Before(deadline) {
		require.NoError(t, k.Verify())
		busy := map[int]bool{}
		for _, c := range k.CPUs() {
			if c.Pid == 0 {
				continue
			}
			assert.False(t, busy[c.Pid], "pid %d on two CPUs", c.Pid)
			busy[c.Pid] = true
		}
	}
	assert.Len(t, k.Snapshot(), 1)
	assert.GreaterOrEqual(t, tracker.Snapshot().Dispatches, workers*(rounds+1))
	assert.Equal(t, workers, tracker.Snapshot().Reaps)
	recorder.none(t)
}

func TestProc_Fork_OutOfMemory(t *testing.T) {
	pool := memory.New(memory.Config{Pages: 6})
	tracker := stats.New("")
	type result struct {
		pid        int
		err        error
		freeBefore int
		freeAfter  int
		procs      int
	}
	results := make(chan result, 1)
	k, recorder := startKernel(t, utcConfig(), func(p *Proc) {
		var ret result
		ret.err = p.Grow(memory.DefaultPageSize)
		ret.freeBefore = pool.FreePages()
		if ret.err == nil {
			ret.pid, ret.err = p.Fork(nil)
		}
		ret.freeAfter = pool.FreePages()
		ret.procs = len(p.Kernel().Snapshot())
		results <- ret
		ReapForever(p)
	}, WithMemory(pool), WithStats(tracker))

	actual := awaitValue(t, results)
	assert.Equal(t, -1, actual.pid)
	assert.ErrorIs(t, actual.err, ErrOutOfMemory)
	assert.ErrorIs(t, actual.err, memory.ErrOutOfMemory)
	assert.Equal(t, 2, actual.freeBefore)
	assert.Equal(t, actual.freeBefore, actual.freeAfter)
	assert.Equal(t, 1, actual.procs)
	assert.Equal(t, 0, tracker.Snapshot().Forks)
	require.NoError(t, k.Verify())
	recorder.none(t)
}

func TestProc_StaleHandleAfterExit(t *testing.T) {
	type lateResult struct {
		name    string
		killed  bool
		size    int
		forkErr error
		openErr error
		waitErr error
	}
	reaped := make(chan struct{})
	hold := make(chan struct{})
	defer close(hold)
	pids := make(chan [2]int, 1)
	late := make(chan lateResult, 1)
	k, recorder := startKernel(t, utcConfig(), func(p *Proc) {
		first, _ := p.Fork(func(c *Proc) {
			defer func() {
				<-reaped
				c.SetName("late")
				var ret lateResult
				_, ret.forkErr = c.Fork(nil)
				_, ret.openErr = c.Open("console")
				_, ret.waitErr = c.Wait()
				ret.name, ret.killed, ret.size = c.Name(), c.Killed(), c.Size()
				c.Exit()
				late <- ret
			}()
			c.Exit()
		})
		_, _ = p.Wait()
		second, _ := p.Fork(func(c *Proc) { <-hold })
		pids <- [2]int{first, second}
		close(reaped)
		ReapForever(p)
	})

	ids := awaitValue(t, pids)
	actual := awaitValue(t, late)
	assert.ErrorIs(t, actual.forkErr, ErrExited)
	assert.ErrorIs(t, actual.openErr, ErrExited)
	assert.ErrorIs(t, actual.waitErr, ErrExited)
	assert.Equal(t, lateResult{forkErr: actual.forkErr, openErr: actual.openErr, waitErr: actual.waitErr}, actual)

	var second model.ProcInfo
	for _, info := range k.Snapshot() {
		if info.Pid == ids[1] {
			second = info
		}
	}
	// the second child reuses the slot the first one left
	assert.Equal(t, 1, second.Slot)
	assert.Equal(t, "init", second.Name)
	recorder.none(t)
}
