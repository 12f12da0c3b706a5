package slack

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
)

const (
	defaultBackoff = time.Minute
	queueSize      = 32
)

// Client posts dashboard notices to one Slack channel. A nil *Client is
// valid and silently drops messages, so callers need no feature checks.
//
// SendMessage only queues; a worker started with Start does the posting,
// so a slow Slack API never holds up the caller.
type Client struct {
	api          *slack.Client
	channelID    string
	queue        chan string
	mu           sync.Mutex
	backoffUntil time.Time
	now          func() time.Time
	logger       zerolog.Logger
}

// NewClient returns nil when the token or channel is not configured.
func NewClient(token, channelID string, logger zerolog.Logger, opts ...slack.Option) *Client {
	logger = logger.With().Str("component", "slack").Logger()
	if token == "" || channelID == "" {
		logger.Info().Msg("slack token or channel not configured, chat notices disabled")
		return nil
	}
	opts = append([]slack.Option{slack.OptionHTTPClient(&http.Client{Timeout: 10 * time.Second})}, opts...)
	return &Client{
		api:       slack.New(token, opts...),
		channelID: channelID,
		queue:     make(chan string, queueSize),
		now:       time.Now,
		logger:    logger,
	}
}

// Start launches the posting worker. It stops when ctx is done; queued
// messages left at that point are dropped.
func (c *Client) Start(ctx context.Context) {
	if c == nil {
		return
	}
	go c.worker(ctx)
}

func (c *Client) worker(ctx context.Context) {
	for {
		select {
		case text := <-c.queue:
			c.post(ctx, text)
		case <-ctx.Done():
			c.logger.Debug().Int("dropped", len(c.queue)).Msg("slack worker stopped")
			return
		}
	}
}

// SendMessage queues text for the channel. It never blocks: messages are
// dropped while a rate-limit backoff runs or when the queue is full.
func (c *Client) SendMessage(text string) {
	if c == nil || c.api == nil {
		return
	}
	if c.IsRateLimited() {
		c.logger.Debug().Msg("skipping slack message during rate limit backoff")
		return
	}
	select {
	case c.queue <- text:
	default:
		c.logger.Warn().Msg("slack queue full, dropping message")
	}
}

func (c *Client) post(ctx context.Context, text string) {
	if c.IsRateLimited() {
		c.logger.Debug().Msg("skipping slack message during rate limit backoff")
		return
	}

	_, _, err := c.api.PostMessageContext(ctx, c.channelID,
		slack.MsgOptionText(text, false),
		slack.MsgOptionUsername("Equipment Maintenance"),
	)
	if err == nil {
		return
	}

	var rateErr *slack.RateLimitedError
	if errors.As(err, &rateErr) {
		wait := rateErr.RetryAfter
		if wait <= 0 {
			wait = defaultBackoff
		}
		c.mu.Lock()
		c.backoffUntil = c.now().Add(wait)
		c.mu.Unlock()
		c.logger.Warn().Dur("backoff", wait).Msg("slack rate limit hit, suppressing messages")
		return
	}
	if ctx.Err() != nil {
		return
	}
	c.logger.Warn().Err(err).Msg("failed to send slack message")
}

// IsRateLimited reports whether messages are currently suppressed.
func (c *Client) IsRateLimited() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Before(c.backoffUntil)
}
