package models

import "time"

// Stats is the per-owner aggregate pair maintained by the ledger.
// totalActions counts every event ever recorded for the owner;
// uniqueVisitors counts distinct device ids.
type Stats struct {
	UniqueVisitors int64 `json:"uniqueVisitors"`
	TotalActions   int64 `json:"totalActions"`
}

// VisitorDevice marks the first time a device id was seen for an
// owner. Its existence is the sole "already counted" signal.
type VisitorDevice struct {
	OwnerID   string    `json:"ownerId"`
	DeviceID  string    `json:"deviceId"`
	FirstSeen time.Time `json:"firstSeen"`
}

type DashboardResponse struct {
	Stats  Stats   `json:"stats"`
	Events []Event `json:"events"`
}
