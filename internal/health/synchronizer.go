package health

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"equipment-maintenance-dashboard/internal/backend"
)

// Source is the subset of the backend the synchronizer reads from.
type Source interface {
	Priority(ctx context.Context, equipmentID string) (*backend.Priority, error)
	LogsByEquipment(ctx context.Context, equipmentID string) ([]backend.MaintenanceLog, error)
}

// Result is the outcome for a single equipment id. A failed fetch leaves
// its error here and degrades only that id.
type Result struct {
	Badge       Badge
	Scheduled   bool
	OpenWork    bool
	PriorityErr error
	LogsErr     error
}

// Err joins both fetch errors, nil when the id synchronised cleanly.
func (r Result) Err() error {
	return errors.Join(r.PriorityErr, r.LogsErr)
}

// Snapshot holds freshly built lookup maps covering every requested id.
// The maps are new values and are not shared with any earlier snapshot.
type Snapshot struct {
	Health    map[string]Badge
	Scheduled map[string]bool
	OpenWork  map[string]bool
	Failures  map[string]error
}

// Synchronizer fans out per-item priority and log fetches.
type Synchronizer struct {
	src    Source
	limit  int
	logger zerolog.Logger
}

// NewSynchronizer creates a synchronizer running at most limit fetches at
// once; limit <= 0 means unbounded.
func NewSynchronizer(src Source, limit int, logger zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		src:    src,
		limit:  limit,
		logger: logger.With().Str("component", "synchronizer").Logger(),
	}
}

// Sync issues one priority and one logs fetch per id, all concurrently,
// and waits for every one of them to settle.
func (s *Synchronizer) Sync(ctx context.Context, ids []string) Snapshot {
	results := make([]Result, len(ids))

	var g errgroup.Group
	if s.limit > 0 {
		g.SetLimit(s.limit)
	}
	for i, id := range ids {
		g.Go(func() error {
			results[i].Badge, results[i].PriorityErr = s.fetchBadge(ctx, id)
			return nil
		})
		g.Go(func() error {
			results[i].Scheduled, results[i].OpenWork, results[i].LogsErr = s.fetchSchedule(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	snap := Snapshot{
		Health:    make(map[string]Badge, len(ids)),
		Scheduled: make(map[string]bool, len(ids)),
		OpenWork:  make(map[string]bool, len(ids)),
		Failures:  make(map[string]error),
	}
	for i, id := range ids {
		r := results[i]
		snap.Health[id] = r.Badge
		snap.Scheduled[id] = r.Scheduled
		snap.OpenWork[id] = r.OpenWork
		if err := r.Err(); err != nil {
			snap.Failures[id] = err
		}
	}

	if len(snap.Failures) > 0 {
		s.logger.Warn().Int("items", len(ids)).Int("degraded", len(snap.Failures)).Msg("synchronised with partial failures")
	} else {
		s.logger.Debug().Int("items", len(ids)).Msg("synchronised")
	}
	return snap
}

// SyncOne refreshes a single equipment id.
func (s *Synchronizer) SyncOne(ctx context.Context, id string) Result {
	var r Result
	var g errgroup.Group
	g.Go(func() error {
		r.Badge, r.PriorityErr = s.fetchBadge(ctx, id)
		return nil
	})
	g.Go(func() error {
		r.Scheduled, r.OpenWork, r.LogsErr = s.fetchSchedule(ctx, id)
		return nil
	})
	_ = g.Wait()
	return r
}

func (s *Synchronizer) fetchBadge(ctx context.Context, id string) (Badge, error) {
	p, err := s.src.Priority(ctx, id)
	if err != nil {
		s.logger.Debug().Err(err).Str("equipment_id", id).Msg("priority fetch failed")
		return unknownBadge, err
	}
	return Classify(p), nil
}

// fetchSchedule fails closed: an unreadable log list is never "scheduled".
func (s *Synchronizer) fetchSchedule(ctx context.Context, id string) (scheduled, openWork bool, err error) {
	logs, err := s.src.LogsByEquipment(ctx, id)
	if err != nil {
		s.logger.Debug().Err(err).Str("equipment_id", id).Msg("logs fetch failed")
		return false, false, err
	}
	return HasScheduled(logs), HasOpenWork(logs), nil
}
