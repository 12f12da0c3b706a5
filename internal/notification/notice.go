package notification

import (
	"time"

	"github.com/google/uuid"
)

// Level is the severity of a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Kind says what a notice is about. Status notices only reach the
// dashboard; the others are also pushed to browsers and chat.
type Kind string

const (
	KindStatus  Kind = "status"
	KindNewWork Kind = "new_work"
	KindReview  Kind = "review"
)

// Notice is one transient, auto-dismissing user notification.
type Notice struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Audience  string    `json:"audience,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewNotice creates a status notice.
func NewNotice(level Level, message string) Notice {
	return Notice{
		ID:        uuid.NewString(),
		Level:     level,
		Kind:      KindStatus,
		Message:   message,
		CreatedAt: time.Now(),
	}
}

// About marks the notice as relevant beyond the dashboard, addressed to
// one role (empty for everyone).
func (n Notice) About(kind Kind, audience string) Notice {
	n.Kind = kind
	n.Audience = audience
	return n
}

// Outbound reports whether the notice leaves the dashboard.
func (n Notice) Outbound() bool {
	return n.Kind != "" && n.Kind != KindStatus
}
