package models

import "time"

// Event is one recorded visitor action, as returned by the API.
type Event struct {
	ID          string            `json:"id"`
	Action      string            `json:"action"`
	VisitorName string            `json:"visitorName"`
	DeviceID    string            `json:"deviceId"`
	Timestamp   time.Time         `json:"timestamp"`
	Meta        map[string]string `json:"meta"`
}

// EventReceiver holds the request body of POST /api/event.
type EventReceiver struct {
	OwnerID     string            `json:"ownerId"`
	DeviceID    string            `json:"deviceId"`
	Action      string            `json:"action"`
	VisitorName string            `json:"visitorName"`
	Meta        map[string]string `json:"meta"`
}

type EventsPageResponse struct {
	Events []Event `json:"events"`
	// NextCursor is null when the returned page came back short of
	// pageSize, i.e. the log is exhausted.
	NextCursor *string `json:"nextCursor"`
}
