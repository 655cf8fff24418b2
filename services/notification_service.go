package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/mvavassori/portfolio-pulse/models"
)

type Notifications interface {
	Schedule(ctx context.Context, ownerID, deviceToken, visitorName string, sendAt time.Time) (models.Notification, error)
	DuePending(ctx context.Context, now time.Time, limit int) ([]models.Notification, error)
	MarkStatus(ctx context.Context, id, status string) error
}

type NotificationService struct {
	DB *sql.DB
}

func NewNotificationService(db *sql.DB) *NotificationService {
	return &NotificationService{DB: db}
}

func (s *NotificationService) Schedule(ctx context.Context, ownerID, deviceToken, visitorName string, sendAt time.Time) (models.Notification, error) {
	notification := models.Notification{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		DeviceToken: deviceToken,
		VisitorName: visitorName,
		SendAt:      sendAt,
		Status:      models.NotificationPending,
		CreatedAt:   time.Now().UTC(),
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO scheduled_notifications (id, owner_id, device_token, visitor_name, send_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, notification.ID, notification.OwnerID, notification.DeviceToken, notification.VisitorName,
		notification.SendAt, notification.Status, notification.CreatedAt)
	if err != nil {
		return models.Notification{}, err
	}

	return notification, nil
}

func (s *NotificationService) DuePending(ctx context.Context, now time.Time, limit int) ([]models.Notification, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, owner_id, device_token, visitor_name, send_at, status, created_at
		FROM scheduled_notifications
		WHERE status = 'pending' AND send_at <= $1
		ORDER BY send_at
		LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(&n.ID, &n.OwnerID, &n.DeviceToken, &n.VisitorName, &n.SendAt, &n.Status, &n.CreatedAt)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

func (s *NotificationService) MarkStatus(ctx context.Context, id, status string) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE scheduled_notifications SET status = $2 WHERE id = $1
	`, id, status)
	return err
}
