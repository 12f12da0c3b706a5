package reviews

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"equipment-maintenance-dashboard/internal/backend"
	"equipment-maintenance-dashboard/internal/session"
)

type mockFetcher struct {
	calls int
	list  []backend.PendingReview
	err   error
}

func (m *mockFetcher) PendingReviews(ctx context.Context) ([]backend.PendingReview, error) {
	m.calls++
	return m.list, m.err
}

func TestTracker_Fetch(t *testing.T) {
	queue := []backend.PendingReview{
		{MaintenanceID: "M1", EquipmentID: "EQ-1"},
		{MaintenanceID: "M2", EquipmentID: "EQ-2"},
	}

	testCases := []struct {
		name          string
		role          session.Role
		fetcher       *mockFetcher
		expectedCalls int
		expectedLen   int
	}{
		{"admin reads queue", session.RoleAdmin, &mockFetcher{list: queue}, 1, 2},
		{"biomedical reads queue", session.RoleBiomedical, &mockFetcher{list: queue}, 1, 2},
		{"technician never calls", session.RoleTechnician, &mockFetcher{list: queue}, 0, 0},
		{"unknown role never calls", session.RoleUnknown, &mockFetcher{list: queue}, 0, 0},
		{"failure degrades to empty", session.RoleBiomedical, &mockFetcher{err: errors.New("boom")}, 1, 0},
		{"null list is empty", session.RoleAdmin, &mockFetcher{}, 1, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tracker := NewTracker(tc.fetcher, zerolog.Nop())
			got := tracker.Fetch(context.Background(), tc.role)
			assert.NotNil(t, got)
			assert.Len(t, got, tc.expectedLen)
			assert.Equal(t, tc.expectedCalls, tc.fetcher.calls)
		})
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]backend.PendingReview{
		{MaintenanceID: "M1", EquipmentID: "EQ-2"},
		{MaintenanceID: "M2", EquipmentID: "EQ-1"},
		{MaintenanceID: "M3", EquipmentID: "EQ-2"},
	})
	assert.Equal(t, 3, s.Count)
	assert.Equal(t, []string{"EQ-2", "EQ-1"}, s.EquipmentIDs)

	empty := Summarize(nil)
	assert.Zero(t, empty.Count)
	assert.Empty(t, empty.EquipmentIDs)
}

func TestFind(t *testing.T) {
	list := []backend.PendingReview{{MaintenanceID: "M1", EquipmentID: "EQ-1"}}
	r, ok := Find(list, "M1")
	assert.True(t, ok)
	assert.Equal(t, "EQ-1", r.EquipmentID)
	_, ok = Find(list, "M9")
	assert.False(t, ok)
}
