package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"equipment-maintenance-dashboard/internal/dashboard"
	"equipment-maintenance-dashboard/internal/notification"
	"equipment-maintenance-dashboard/internal/session"
	"equipment-maintenance-dashboard/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	view    *dashboard.View
	session *session.Session
	store   store.Store
	feed    *notification.Feed
	live    *LiveHub
	webpush *webpush.Options
	logger  zerolog.Logger
}

// Deps lists what the handlers need. Store, Live and WebPush may be nil;
// the routes they back then answer 503.
type Deps struct {
	View    *dashboard.View
	Session *session.Session
	Store   store.Store
	Feed    *notification.Feed
	Live    *LiveHub
	WebPush *webpush.Options
	Logger  zerolog.Logger
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	return &Handler{
		view:    d.View,
		session: d.Session,
		store:   d.Store,
		feed:    d.Feed,
		live:    d.Live,
		webpush: d.WebPush,
		logger:  d.Logger.With().Str("component", "api").Logger(),
	}
}
