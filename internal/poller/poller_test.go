package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equipment-maintenance-dashboard/internal/backend"
)

// sequenceSource returns a new-scheduled list whose length follows counts;
// a negative count yields an error. After the sequence the last count repeats.
type sequenceSource struct {
	mu     sync.Mutex
	counts []int
	calls  int
}

func (s *sequenceSource) NewScheduled(ctx context.Context) ([]backend.ScheduledTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	if i >= len(s.counts) {
		i = len(s.counts) - 1
	}
	s.calls++
	n := s.counts[i]
	if n < 0 {
		return nil, errors.New("backend down")
	}
	return make([]backend.ScheduledTask, n), nil
}

func (s *sequenceSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestPoller_BaselineSequence(t *testing.T) {
	src := &sequenceSource{counts: []int{3, 3, 5, 5, 2}}
	var events []Event
	p := New(src, time.Hour, func(ctx context.Context, ev Event) {
		events = append(events, ev)
	}, zerolog.Nop())

	_, state := p.Baseline()
	assert.Equal(t, StateUninitialized, state)

	var baselines []int
	var fired []bool
	for range src.counts {
		f, err := p.Poll(context.Background())
		require.NoError(t, err)
		b, state := p.Baseline()
		assert.Equal(t, StateArmed, state)
		baselines = append(baselines, b)
		fired = append(fired, f)
	}

	assert.Equal(t, []int{3, 3, 5, 5, 2}, baselines)
	assert.Equal(t, []bool{false, false, true, false, false}, fired)
	require.Len(t, events, 1)
	assert.Equal(t, 3, events[0].Previous)
	assert.Equal(t, 5, events[0].Current)
	assert.Len(t, events[0].Tasks, 5)
}

func TestPoller_FirstReadNeverNotifies(t *testing.T) {
	src := &sequenceSource{counts: []int{42}}
	notified := false
	p := New(src, time.Hour, func(context.Context, Event) { notified = true }, zerolog.Nop())

	fired, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.False(t, fired)
	assert.False(t, notified)
}

func TestPoller_RiseAfterShrinkFiresOnce(t *testing.T) {
	src := &sequenceSource{counts: []int{4, 1, 2, 2}}
	count := 0
	p := New(src, time.Hour, func(context.Context, Event) { count++ }, zerolog.Nop())

	for range src.counts {
		_, err := p.Poll(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 1, count, "1 -> 2 is a rise from the shrunk baseline")
}

func TestPoller_FailedReadKeepsBaseline(t *testing.T) {
	src := &sequenceSource{counts: []int{-1, 2, -1, 3}}
	count := 0
	p := New(src, time.Hour, func(context.Context, Event) { count++ }, zerolog.Nop())

	_, err := p.Poll(context.Background())
	assert.Error(t, err)
	_, state := p.Baseline()
	assert.Equal(t, StateUninitialized, state, "a failed first read must not arm with a zero baseline")

	_, err = p.Poll(context.Background())
	require.NoError(t, err)
	_, err = p.Poll(context.Background())
	assert.Error(t, err)
	b, _ := p.Baseline()
	assert.Equal(t, 2, b)

	fired, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, fired)
	assert.Equal(t, 1, count)
}

func TestPoller_Reset(t *testing.T) {
	src := &sequenceSource{counts: []int{1, 5}}
	count := 0
	p := New(src, time.Hour, func(context.Context, Event) { count++ }, zerolog.Nop())

	_, _ = p.Poll(context.Background())
	p.Reset()
	_, _ = p.Poll(context.Background())

	assert.Zero(t, count)
	b, state := p.Baseline()
	assert.Equal(t, 5, b)
	assert.Equal(t, StateArmed, state)
}

func TestPoller_ArmRebaselines(t *testing.T) {
	src := &sequenceSource{counts: []int{2, -1, 6}}
	count := 0
	p := New(src, time.Hour, func(context.Context, Event) { count++ }, zerolog.Nop())

	require.NoError(t, p.Arm(context.Background()))
	require.Error(t, p.Arm(context.Background()))
	_, state := p.Baseline()
	assert.Equal(t, StateUninitialized, state, "a failed arm leaves the poller unarmed")

	require.NoError(t, p.Arm(context.Background()))
	assert.Zero(t, count)
	b, state := p.Baseline()
	assert.Equal(t, 6, b)
	assert.Equal(t, StateArmed, state)
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	src := &sequenceSource{counts: []int{1, 1, 2}}
	p := New(src, 5*time.Millisecond, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return src.Calls() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}

	calls := src.Calls()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, src.Calls(), "no poll may run after teardown")
}
