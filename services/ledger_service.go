package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/mvavassori/portfolio-pulse/models"
)

const (
	RecentEventsLimit = 200
	DefaultPageSize   = 50
	MinPageSize       = 10
	MaxPageSize       = 100
)

// Ledger is the visit analytics ledger: an append-only event log per
// owner plus the two derived counters.
type Ledger interface {
	RecordEvent(ctx context.Context, ownerID, deviceID, action, visitorName string, meta map[string]string) error
	Dashboard(ctx context.Context, ownerID string) (models.Stats, []models.Event, error)
	EventsPage(ctx context.Context, ownerID, startAfterID string, pageSize int) ([]models.Event, string, error)
	Clear(ctx context.Context, ownerID string) error
}

type LedgerService struct {
	DB *sql.DB
}

func NewLedgerService(db *sql.DB) *LedgerService {
	return &LedgerService{DB: db}
}

// RecordEvent appends one event and maintains the counters in a single
// transaction. The visitor_devices primary key arbitrates the "new
// unique visitor" decision, so two concurrent first-time events from
// the same device can't both bump uniqueVisitors: the second insert
// waits on the first and lands on the conflict path.
func (s *LedgerService) RecordEvent(ctx context.Context, ownerID, deviceID, action, visitorName string, meta map[string]string) error {
	if meta == nil {
		meta = map[string]string{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	eventID := ulid.MustNewDefault(now).String()

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO visitor_devices (owner_id, device_id, first_seen)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id, device_id) DO NOTHING
	`, ownerID, deviceID, now)
	if err != nil {
		return err
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return err
	}
	newVisitor := int64(0)
	if inserted == 1 {
		newVisitor = 1
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO events (id, owner_id, action, visitor_name, device_id, timestamp, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, eventID, ownerID, action, visitorName, deviceID, now, metaJSON)
	if err != nil {
		return err
	}

	// Merge semantics: only the two counters are touched on conflict.
	_, err = tx.ExecContext(ctx, `
		INSERT INTO portfolio_stats (owner_id, unique_visitors, total_actions, updated_at)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (owner_id) DO UPDATE
		SET unique_visitors = portfolio_stats.unique_visitors + EXCLUDED.unique_visitors,
		    total_actions = portfolio_stats.total_actions + 1,
		    updated_at = EXCLUDED.updated_at
	`, ownerID, newVisitor, now)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Dashboard returns the owner's counters (zeros when nothing has been
// recorded yet) and the most recent events, newest first.
func (s *LedgerService) Dashboard(ctx context.Context, ownerID string) (models.Stats, []models.Event, error) {
	var stats models.Stats
	err := s.DB.QueryRowContext(ctx, `
		SELECT unique_visitors, total_actions FROM portfolio_stats WHERE owner_id = $1
	`, ownerID).Scan(&stats.UniqueVisitors, &stats.TotalActions)
	if err != nil && err != sql.ErrNoRows {
		return models.Stats{}, nil, err
	}

	events, err := s.queryEvents(ctx, ownerID, "", RecentEventsLimit)
	if err != nil {
		return models.Stats{}, nil, err
	}

	return stats, events, nil
}

// EventsPage returns up to pageSize events strictly older than the
// event identified by startAfterID, newest first, plus the cursor to
// resume from. A cursor that no longer identifies an event (cleared in
// the meantime, or garbage) is ignored and the page starts from the
// newest event instead of failing.
func (s *LedgerService) EventsPage(ctx context.Context, ownerID, startAfterID string, pageSize int) ([]models.Event, string, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize < MinPageSize {
		pageSize = MinPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	if startAfterID != "" {
		var exists bool
		err := s.DB.QueryRowContext(ctx, `
			SELECT EXISTS(SELECT 1 FROM events WHERE owner_id = $1 AND id = $2)
		`, ownerID, startAfterID).Scan(&exists)
		if err != nil {
			return nil, "", err
		}
		if !exists {
			startAfterID = ""
		}
	}

	events, err := s.queryEvents(ctx, ownerID, startAfterID, pageSize)
	if err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(events) == pageSize {
		nextCursor = events[len(events)-1].ID
	}

	return events, nextCursor, nil
}

// queryEvents walks the (owner_id, id DESC) index. Event ids are ULIDs
// minted at write time, so id order is creation order.
func (s *LedgerService) queryEvents(ctx context.Context, ownerID, beforeID string, limit int) ([]models.Event, error) {
	var rows *sql.Rows
	var err error
	if beforeID == "" {
		rows, err = s.DB.QueryContext(ctx, `
			SELECT id, action, visitor_name, device_id, timestamp, meta
			FROM events
			WHERE owner_id = $1
			ORDER BY id DESC
			LIMIT $2
		`, ownerID, limit)
	} else {
		rows, err = s.DB.QueryContext(ctx, `
			SELECT id, action, visitor_name, device_id, timestamp, meta
			FROM events
			WHERE owner_id = $1 AND id < $2
			ORDER BY id DESC
			LIMIT $3
		`, ownerID, beforeID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]models.Event, 0)
	for rows.Next() {
		var event models.Event
		var metaJSON []byte
		err := rows.Scan(&event.ID, &event.Action, &event.VisitorName, &event.DeviceID, &event.Timestamp, &metaJSON)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(metaJSON, &event.Meta); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// Clear wipes the owner's log and devices and zeroes the counters in
// one transaction. The stats row stays (reset, not deleted).
func (s *LedgerService) Clear(ctx context.Context, ownerID string) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE owner_id = $1`, ownerID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM visitor_devices WHERE owner_id = $1`, ownerID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE portfolio_stats
		SET unique_visitors = 0, total_actions = 0, updated_at = $2
		WHERE owner_id = $1
	`, ownerID, time.Now().UTC()); err != nil {
		return err
	}

	return tx.Commit()
}
