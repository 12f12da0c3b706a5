package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"equipment-maintenance-dashboard/internal/model"
)

// ErrNotFound is returned when a subscription does not exist.
var ErrNotFound = errors.New("subscription not found")

// Store defines the persistence operations of the daemon. Only the
// daemon's own push subscriptions are stored; backend entities never are.
type Store interface {
	SaveSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionsFor(ctx context.Context, role string) ([]model.PushSubscription, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// SaveSubscription creates a subscription or replaces the keys and scope
// of an existing one with the same endpoint.
func (s *gormStore) SaveSubscription(ctx context.Context, sub *model.PushSubscription) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "role", "personnel_id"}),
	}).Create(sub).Error
	if err != nil {
		return fmt.Errorf("failed to save subscription %s: %w", sub.Endpoint, err)
	}
	return nil
}

func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).Where("endpoint = ?", endpoint).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscription %s: %w", endpoint, err)
	}
	return &sub, nil
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Where("endpoint = ?", endpoint).Delete(&model.PushSubscription{}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription %s: %w", endpoint, err)
	}
	return nil
}

// SubscriptionsFor returns the subscriptions scoped to role plus the
// unscoped ones. An empty role returns every subscription.
func (s *gormStore) SubscriptionsFor(ctx context.Context, role string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	q := s.db.WithContext(ctx)
	if role != "" {
		q = q.Where("role = ? OR role = ?", role, "")
	}
	if err := q.Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for role %q: %w", role, err)
	}
	return subs, nil
}
