package notification

import (
	"github.com/rs/zerolog"
)

// Broadcaster pushes live events to connected dashboard clients.
type Broadcaster interface {
	Broadcast(event string, data any)
}

// ChatPoster posts a plain-text message to a team channel.
type ChatPoster interface {
	SendMessage(text string)
}

// Hub fans one notice out to every configured sink. Delivery is best
// effort and never reported back to the caller.
type Hub struct {
	feed   *Feed
	push   *WorkerPool
	chat   ChatPoster
	live   Broadcaster
	logger zerolog.Logger
}

// NewHub wires the sinks; push, chat and live may be nil.
func NewHub(feed *Feed, push *WorkerPool, chat ChatPoster, live Broadcaster, logger zerolog.Logger) *Hub {
	return &Hub{
		feed:   feed,
		push:   push,
		chat:   chat,
		live:   live,
		logger: logger.With().Str("component", "notifications").Logger(),
	}
}

// Notify shows the notice on the dashboard and, for outbound kinds,
// forwards it to push subscribers and chat.
func (h *Hub) Notify(n Notice) {
	h.logger.Info().Str("level", string(n.Level)).Str("kind", string(n.Kind)).Msg(n.Message)

	if h.feed != nil {
		h.feed.Add(n)
	}
	if h.live != nil {
		h.live.Broadcast("notice", n)
	}
	if !n.Outbound() {
		return
	}
	if h.push != nil {
		h.push.Dispatch(n)
	}
	if h.chat != nil {
		h.chat.SendMessage(n.Message)
	}
}

// Feed returns the dashboard feed.
func (h *Hub) Feed() *Feed {
	return h.feed
}
