package notification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"equipment-maintenance-dashboard/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// SubscriptionStore is the part of the store the push workers need.
type SubscriptionStore interface {
	SubscriptionsFor(ctx context.Context, role string) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// pushPayload is what the service worker in the browser receives.
type pushPayload struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Level Level  `json:"level"`
	Kind  Kind   `json:"kind"`
}

// WorkerPool delivers notices to push subscriptions in the background.
type WorkerPool struct {
	size    int
	jobs    chan Notice
	store   SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
	logger  zerolog.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, store SubscriptionStore, webpushOptions *webpush.Options, logger zerolog.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Notice, size*16),
		store:   store,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger.With().Str("component", "push").Logger(),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Debug().Int("worker", id).Msg("push worker started")
	for {
		select {
		case n := <-wp.jobs:
			wp.deliver(ctx, n)
		case <-ctx.Done():
			wp.logger.Debug().Int("worker", id).Msg("push worker shutting down")
			return
		}
	}
}

// Dispatch queues a notice. It never blocks the caller: when the queue is
// full the notice is dropped and false is returned.
func (wp *WorkerPool) Dispatch(n Notice) bool {
	select {
	case wp.jobs <- n:
		return true
	default:
		wp.logger.Warn().Str("notice", n.ID).Msg("push queue full, notice dropped")
		return false
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Notice {
	return wp.jobs
}

// deliver sends one notice to every subscription in its audience.
func (wp *WorkerPool) deliver(ctx context.Context, n Notice) {
	subscriptions, err := wp.store.SubscriptionsFor(ctx, n.Audience)
	if err != nil {
		wp.logger.Error().Err(err).Str("notice", n.ID).Msg("error fetching subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(pushPayload{
		ID:    n.ID,
		Title: "Equipment maintenance",
		Body:  n.Message,
		Level: n.Level,
		Kind:  n.Kind,
	})
	if err != nil {
		wp.logger.Error().Err(err).Msg("failed to encode push payload")
		return
	}

	wp.logger.Debug().Int("subscriptions", len(subscriptions)).Str("notice", n.ID).Msg("sending push notifications")
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

// sendNotification sends a single web push notification and forgets
// subscriptions the push service reports as gone.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.Warn().Err(err).Str("endpoint", sub.Endpoint).Msg("error sending notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		wp.logger.Info().Str("endpoint", sub.Endpoint).Msg("subscription expired, deleting")
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.logger.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to delete expired subscription")
		}
	}
}
