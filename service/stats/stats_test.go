package stats

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStats_Update(t *testing.T) {
	testCases := []struct {
		description string
		deltas      []Delta
		expect      Stats
	}{
		{
			description: "no deltas",
		},
		{
			description: "lifecycle",
			deltas:      []Delta{{Forks: 2}, {Exits: 1, Reaps: 1}, {Kills: 1}},
			expect:      Stats{Forks: 2, Exits: 1, Reaps: 1, Kills: 1},
		},
		{
			description: "scheduling",
			deltas:      []Delta{{Dispatches: 3, IdleLoops: 1}, {Reevaluations: 1, WindowEnters: 1, Overdue: 1}, {WindowLeaves: 1}},
			expect:      Stats{Dispatches: 3, IdleLoops: 1, Reevaluations: 1, WindowEnters: 1, WindowLeaves: 1, Overdue: 1},
		},
	}
	for _, testCase := range testCases {
		s := &Stats{}
		for _, d := range testCase.deltas {
			s.Update(d)
		}
		assert.EqualValues(t, testCase.expect.copyLocked(), s.Snapshot(), testCase.description)
	}
}

func TestStats_OnChange(t *testing.T) {
	s := New("boot")
	var seen []int
	s.OnChange(func(snapshot Stats) { seen = append(seen, snapshot.Dispatches) })
	s.Update(Delta{Dispatches: 1})
	s.Update(Delta{})
	s.Update(Delta{Dispatches: 2})
	assert.Equal(t, []int{1, 3}, seen)
	assert.Equal(t, "boot", s.Snapshot().BootID)
}

func TestStats_Concurrent(t *testing.T) {
	s := New("")
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Update(Delta{Dispatches: 1})
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, s.Snapshot().Dispatches)
}

func TestStats_Context(t *testing.T) {
	var nilStats *Stats
	nilStats.Update(Delta{Forks: 1})
	assert.Equal(t, (&Stats{}).copyLocked(), nilStats.Snapshot())

	s := New("x")
	ctx := WithTracker(context.Background(), s)
	actual, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Same(t, s, actual)
	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}
