package health

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equipment-maintenance-dashboard/internal/backend"
)

// fakeSource serves canned priorities and logs; ids listed in the fail
// maps return an error instead.
type fakeSource struct {
	mu           sync.Mutex
	priorities   map[string]*backend.Priority
	logs         map[string][]backend.MaintenanceLog
	failPriority map[string]bool
	failLogs     map[string]bool
	calls        int32
	inFlight     int32
	maxInFlight  int32
	delay        time.Duration
}

func (f *fakeSource) enter() func() {
	atomic.AddInt32(&f.calls, 1)
	n := atomic.AddInt32(&f.inFlight, 1)
	for {
		cur := atomic.LoadInt32(&f.maxInFlight)
		if n <= cur || atomic.CompareAndSwapInt32(&f.maxInFlight, cur, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return func() { atomic.AddInt32(&f.inFlight, -1) }
}

func (f *fakeSource) Priority(ctx context.Context, id string) (*backend.Priority, error) {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPriority[id] {
		return nil, errors.New("priority unavailable")
	}
	return f.priorities[id], nil
}

func (f *fakeSource) LogsByEquipment(ctx context.Context, id string) ([]backend.MaintenanceLog, error) {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLogs[id] {
		return nil, errors.New("logs unavailable")
	}
	return f.logs[id], nil
}

func TestSynchronizer_Sync(t *testing.T) {
	src := &fakeSource{
		priorities: map[string]*backend.Priority{
			"EQ-001": {MaintenanceNeeds: map[string]string{"preventive": "Low", "corrective": "High", "replacement": "Low"}},
			"EQ-002": {MaintenanceNeeds: map[string]string{"preventive": "Low"}},
			"EQ-003": {PredictedToFail: true},
		},
		logs: map[string][]backend.MaintenanceLog{
			"EQ-002": {{Status: "Completed"}, {Status: "Scheduled"}},
			"EQ-003": {{Status: "Scheduled"}},
		},
		failPriority: map[string]bool{"EQ-003": true},
		failLogs:     map[string]bool{"EQ-003": true},
	}
	s := NewSynchronizer(src, 4, zerolog.Nop())

	snap := s.Sync(context.Background(), []string{"EQ-001", "EQ-002", "EQ-003"})

	assert.Equal(t, Badge{Label: LabelHighRisk, Reason: "Corrective maintenance"}, snap.Health["EQ-001"])
	assert.Equal(t, Badge{Label: LabelHealthy}, snap.Health["EQ-002"])
	assert.True(t, snap.Scheduled["EQ-002"])
	assert.False(t, snap.Scheduled["EQ-001"])

	// EQ-003 fails on both fetches and degrades alone.
	assert.Equal(t, Badge{Label: LabelUnknown}, snap.Health["EQ-003"])
	assert.False(t, snap.Scheduled["EQ-003"], "a failed logs fetch must never report scheduled")
	assert.Len(t, snap.Failures, 1)
	assert.Error(t, snap.Failures["EQ-003"])

	assert.Equal(t, int32(6), atomic.LoadInt32(&src.calls))
}

func TestSynchronizer_IsolatesFailures(t *testing.T) {
	src := &fakeSource{
		priorities: map[string]*backend.Priority{
			"A": {PredictedToFail: true},
			"B": {MaintenanceNeeds: map[string]string{"replacement": "High"}},
		},
		logs: map[string][]backend.MaintenanceLog{
			"A": {{Status: "Scheduled"}},
			"B": {{Status: "Scheduled"}},
		},
		failPriority: map[string]bool{"A": true},
		failLogs:     map[string]bool{"B": true},
	}
	s := NewSynchronizer(src, 0, zerolog.Nop())

	snap := s.Sync(context.Background(), []string{"A", "B"})

	assert.Equal(t, LabelUnknown, snap.Health["A"].Label)
	assert.True(t, snap.Scheduled["A"])
	assert.Equal(t, Badge{Label: LabelHighRisk, Reason: "Replacement maintenance"}, snap.Health["B"])
	assert.False(t, snap.Scheduled["B"])
}

func TestSynchronizer_BoundsConcurrency(t *testing.T) {
	ids := []string{"1", "2", "3", "4", "5", "6", "7", "8"}
	src := &fakeSource{delay: 10 * time.Millisecond}
	s := NewSynchronizer(src, 3, zerolog.Nop())

	snap := s.Sync(context.Background(), ids)

	require.Len(t, snap.Health, len(ids))
	assert.LessOrEqual(t, atomic.LoadInt32(&src.maxInFlight), int32(3))
	for _, id := range ids {
		// nil priority classifies as Unknown; nil logs are simply unscheduled
		assert.Equal(t, LabelUnknown, snap.Health[id].Label)
		assert.False(t, snap.Scheduled[id])
	}
}

func TestSynchronizer_SyncOne(t *testing.T) {
	src := &fakeSource{
		priorities: map[string]*backend.Priority{"EQ-7": {MaintenanceNeeds: map[string]string{"preventive": "Medium"}}},
		logs:       map[string][]backend.MaintenanceLog{"EQ-7": {{Status: "Completed", CompletionStatus: "Pending"}}},
	}
	s := NewSynchronizer(src, 2, zerolog.Nop())

	r := s.SyncOne(context.Background(), "EQ-7")
	require.NoError(t, r.Err())
	assert.Equal(t, LabelHealthy, r.Badge.Label)
	assert.False(t, r.Scheduled)
	assert.True(t, r.OpenWork)
}
