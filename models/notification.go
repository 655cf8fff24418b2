package models

import "time"

const (
	NotificationPending = "pending"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

// Notification is a reminder push scheduled for a visitor who left
// their name in the App Clip.
type Notification struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	DeviceToken string    `json:"-"`
	VisitorName string    `json:"visitorName"`
	SendAt      time.Time `json:"sendAt"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NotificationReceiver holds the request body of POST /api/notification.
type NotificationReceiver struct {
	OwnerID     string `json:"ownerId"`
	DeviceToken string `json:"deviceToken"`
	VisitorName string `json:"visitorName"`
}
