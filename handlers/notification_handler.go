package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mvavassori/portfolio-pulse/models"
	"github.com/mvavassori/portfolio-pulse/services"
	"github.com/mvavassori/portfolio-pulse/utils"
)

// ScheduleNotification stores a delayed reminder push for a visitor
// who left their name. The delay is server-side configuration, not
// client input.
func ScheduleNotification(notifications services.Notifications, delay time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var receiver models.NotificationReceiver
		err := json.NewDecoder(r.Body).Decode(&receiver)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Invalid JSON format")
			return
		}

		ownerID := strings.TrimSpace(receiver.OwnerID)
		deviceToken := strings.TrimSpace(receiver.DeviceToken)
		if ownerID == "" || deviceToken == "" {
			utils.WriteError(w, http.StatusBadRequest, "ownerId and deviceToken are required")
			return
		}

		visitorName := strings.TrimSpace(receiver.VisitorName)
		if visitorName == "" {
			visitorName = "anonymous"
		}

		sendAt := time.Now().UTC().Add(delay)
		notification, err := notifications.Schedule(r.Context(), ownerID, deviceToken, visitorName, sendAt)
		if err != nil {
			log.Println("Error scheduling notification:", err)
			utils.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"ok":     true,
			"id":     notification.ID,
			"sendAt": notification.SendAt,
		})
	}
}
