package model

import "time"

// PushSubscription holds the information for a browser push subscription.
// Role scopes which notices the browser receives; empty means every notice.
type PushSubscription struct {
	Endpoint    string    `gorm:"primaryKey" json:"endpoint"`
	P256DH      string    `gorm:"column:p256dh;not null" json:"p256dh"`
	Auth        string    `gorm:"not null" json:"auth"`
	Role        string    `gorm:"index;not null" json:"role"`
	PersonnelID string    `gorm:"index" json:"personnel_id,omitempty"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
}
