package dashboard

import (
	"maps"
	"slices"
	"strings"
	"time"

	"equipment-maintenance-dashboard/internal/backend"
	"equipment-maintenance-dashboard/internal/health"
	"equipment-maintenance-dashboard/internal/reviews"
	"equipment-maintenance-dashboard/internal/session"
)

// State is one published picture of the dashboard. A State is never
// modified after it is published; updates build a new one, copying any
// map they change.
type State struct {
	Version          uint64                  `json:"version"`
	SyncedAt         time.Time               `json:"synced_at"`
	Role             session.Role            `json:"role"`
	Profile          *backend.Profile        `json:"profile,omitempty"`
	Equipment        []backend.Equipment     `json:"equipment"`
	Health           map[string]health.Badge `json:"health"`
	Scheduled        map[string]bool         `json:"scheduled"`
	OpenWork         map[string]bool         `json:"open_work"`
	PendingReviews   []backend.PendingReview `json:"pending_reviews"`
	Users            []backend.User          `json:"users,omitempty"`
	MaintenanceTypes []string                `json:"maintenance_types"`
	// Degraded counts items whose last synchronisation partly failed.
	Degraded int `json:"degraded"`
}

func emptyState(role session.Role) *State {
	return &State{
		Role:             role,
		Equipment:        []backend.Equipment{},
		Health:           map[string]health.Badge{},
		Scheduled:        map[string]bool{},
		OpenWork:         map[string]bool{},
		PendingReviews:   []backend.PendingReview{},
		MaintenanceTypes: slices.Clone(backend.DefaultMaintenanceTypes),
	}
}

// Badge returns the health badge for id, Loading if it was never synced.
func (s State) Badge(id string) health.Badge {
	if b, ok := s.Health[id]; ok {
		return b
	}
	return health.Loading()
}

// IsScheduled reports whether id has an open scheduled maintenance log.
func (s State) IsScheduled(id string) bool {
	return s.Scheduled[id]
}

// Reviews summarises the pending-review list.
func (s State) Reviews() reviews.Summary {
	return reviews.Summarize(s.PendingReviews)
}

// Item looks up one equipment item by id.
func (s State) Item(id string) (backend.Equipment, bool) {
	for _, e := range s.Equipment {
		if e.ID == id {
			return e, true
		}
	}
	return backend.Equipment{}, false
}

// MaintenanceTypeOptions is the list offered when scheduling, ending
// with the free-text option.
func (s State) MaintenanceTypeOptions() []string {
	out := slices.Clone(s.MaintenanceTypes)
	for _, t := range out {
		if strings.EqualFold(t, OtherMaintenanceType) {
			return out
		}
	}
	return append(out, OtherMaintenanceType)
}

// Filter narrows the equipment list. Empty fields match everything.
type Filter struct {
	Type     string       `form:"type"`
	Location string       `form:"location"`
	Health   health.Label `form:"health"`
}

// Apply returns the items in s matching f, in list order.
func (f Filter) Apply(s State) []backend.Equipment {
	out := make([]backend.Equipment, 0, len(s.Equipment))
	for _, e := range s.Equipment {
		if f.Type != "" && !strings.EqualFold(e.Type, f.Type) {
			continue
		}
		if f.Location != "" && !strings.EqualFold(e.Location, f.Location) {
			continue
		}
		if f.Health != "" && !strings.EqualFold(string(s.Badge(e.ID).Label), string(f.Health)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Types lists the distinct equipment types, sorted.
func (s State) Types() []string {
	return distinct(s.Equipment, func(e backend.Equipment) string { return e.Type })
}

// Locations lists the distinct equipment locations, sorted.
func (s State) Locations() []string {
	return distinct(s.Equipment, func(e backend.Equipment) string { return e.Location })
}

func distinct(items []backend.Equipment, key func(backend.Equipment) string) []string {
	seen := make(map[string]struct{}, len(items))
	for _, e := range items {
		if k := key(e); k != "" {
			seen[k] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// withKey returns a copy of m with k set to v.
func withKey[K comparable, V any](m map[K]V, k K, v V) map[K]V {
	out := make(map[K]V, len(m)+1)
	maps.Copy(out, m)
	out[k] = v
	return out
}
