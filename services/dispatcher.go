package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mvavassori/portfolio-pulse/models"
)

const dispatchBatchSize = 25

// Dispatcher polls for due reminder notifications and hands them to
// the push sender. Deliveries are fire-and-forget: a failed push is
// marked failed and never retried, matching the ingestion policy.
type Dispatcher struct {
	Notifications Notifications
	Sender        PushSender
	Interval      time.Duration
}

func NewDispatcher(notifications Notifications, sender PushSender, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Dispatcher{
		Notifications: notifications,
		Sender:        sender,
		Interval:      interval,
	}
}

// Start runs the polling loop until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(d.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.dispatchDue(ctx)
			}
		}
	}()
}

func (d *Dispatcher) dispatchDue(ctx context.Context) {
	due, err := d.Notifications.DuePending(ctx, time.Now().UTC(), dispatchBatchSize)
	if err != nil {
		log.Println("Error fetching due notifications:", err)
		return
	}

	for _, notification := range due {
		title := "Someone visited your portfolio"
		body := fmt.Sprintf("%s viewed your portfolio. Say hi!", notification.VisitorName)

		status := models.NotificationSent
		if err := d.Sender.Send(ctx, notification.DeviceToken, title, body); err != nil {
			log.Printf("Error sending notification %s: %v", notification.ID, err)
			status = models.NotificationFailed
		}

		if err := d.Notifications.MarkStatus(ctx, notification.ID, status); err != nil {
			log.Printf("Error marking notification %s as %s: %v", notification.ID, status, err)
		}
	}
}
