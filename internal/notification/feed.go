package notification

import (
	"sort"
	"time"

	"github.com/patrickmn/go-cache"
)

// Feed keeps the currently visible notices. Each one expires after the
// feed's TTL, which is what makes notices auto-dismiss.
type Feed struct {
	items *cache.Cache
}

// NewFeed creates a feed whose notices live for ttl.
func NewFeed(ttl time.Duration) *Feed {
	if ttl <= 0 {
		ttl = 4 * time.Second
	}
	return &Feed{items: cache.New(ttl, ttl)}
}

func (f *Feed) Add(n Notice) {
	f.items.Set(n.ID, n, cache.DefaultExpiration)
}

// Dismiss removes a notice before it expires.
func (f *Feed) Dismiss(id string) {
	f.items.Delete(id)
}

// Active lists unexpired notices, oldest first.
func (f *Feed) Active() []Notice {
	items := f.items.Items()
	out := make([]Notice, 0, len(items))
	for _, item := range items {
		if n, ok := item.Object.(Notice); ok {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
