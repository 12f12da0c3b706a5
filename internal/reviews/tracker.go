package reviews

import (
	"context"

	"github.com/rs/zerolog"

	"equipment-maintenance-dashboard/internal/backend"
	"equipment-maintenance-dashboard/internal/session"
)

// Fetcher reads the pending-review queue.
type Fetcher interface {
	PendingReviews(ctx context.Context) ([]backend.PendingReview, error)
}

// Tracker returns completed-but-unreviewed maintenance entries for roles
// allowed to review them.
type Tracker struct {
	src    Fetcher
	logger zerolog.Logger
}

func NewTracker(src Fetcher, logger zerolog.Logger) *Tracker {
	return &Tracker{src: src, logger: logger.With().Str("component", "reviews").Logger()}
}

// Fetch never fails: roles without review authority get an empty list
// without a backend call, and a failed fetch degrades to an empty list.
func (t *Tracker) Fetch(ctx context.Context, role session.Role) []backend.PendingReview {
	if !role.CanReview() {
		return []backend.PendingReview{}
	}
	list, err := t.src.PendingReviews(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("pending reviews unavailable")
		return []backend.PendingReview{}
	}
	if list == nil {
		return []backend.PendingReview{}
	}
	return list
}

// Summary condenses the queue for alerting.
type Summary struct {
	Count        int      `json:"count"`
	EquipmentIDs []string `json:"equipment_ids"`
}

// Summarize counts entries and lists the affected equipment once each, in
// queue order.
func Summarize(list []backend.PendingReview) Summary {
	seen := make(map[string]bool, len(list))
	ids := make([]string, 0, len(list))
	for _, r := range list {
		if seen[r.EquipmentID] {
			continue
		}
		seen[r.EquipmentID] = true
		ids = append(ids, r.EquipmentID)
	}
	return Summary{Count: len(list), EquipmentIDs: ids}
}

// Find returns the entry for a maintenance id.
func Find(list []backend.PendingReview, maintenanceID string) (backend.PendingReview, bool) {
	for _, r := range list {
		if r.MaintenanceID == maintenanceID {
			return r, true
		}
	}
	return backend.PendingReview{}, false
}
