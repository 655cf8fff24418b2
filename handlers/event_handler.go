package handlers

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/mileusna/useragent"
	"github.com/oschwald/geoip2-golang"

	"github.com/mvavassori/portfolio-pulse/models"
	"github.com/mvavassori/portfolio-pulse/services"
	"github.com/mvavassori/portfolio-pulse/utils"
)

// RecordEvent ingests one visitor action from the App Clip. The caller
// treats this as fire-and-forget, so failures are never surfaced to
// the visitor beyond the status code.
func RecordEvent(ledger services.Ledger, geoipDB *geoip2.Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var eventReceiver models.EventReceiver
		err := json.NewDecoder(r.Body).Decode(&eventReceiver)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Invalid JSON format")
			return
		}

		ownerID := strings.TrimSpace(eventReceiver.OwnerID)
		deviceID := strings.TrimSpace(eventReceiver.DeviceID)
		action := strings.TrimSpace(eventReceiver.Action)
		if ownerID == "" || deviceID == "" || action == "" {
			utils.WriteError(w, http.StatusBadRequest, "ownerId, deviceId and action are required")
			return
		}

		visitorName := strings.TrimSpace(eventReceiver.VisitorName)
		if visitorName == "" {
			visitorName = "anonymous"
		}

		meta := eventReceiver.Meta
		if meta == nil {
			meta = map[string]string{}
		}
		enrichMeta(meta, r, geoipDB)

		err = ledger.RecordEvent(r.Context(), ownerID, deviceID, action, visitorName, meta)
		if err != nil {
			log.Println("Error recording event:", err)
			utils.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		utils.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

// enrichMeta adds device and location context the way the full
// analytics pipeline does, without ever overriding what the client
// sent and without failing the request.
func enrichMeta(meta map[string]string, r *http.Request, geoipDB *geoip2.Reader) {
	if uaHeader := r.Header.Get("User-Agent"); uaHeader != "" {
		ua := useragent.Parse(uaHeader)
		setIfAbsent(meta, "deviceType", utils.GetDeviceType(&ua))
		setIfAbsent(meta, "os", ua.OS)
		setIfAbsent(meta, "browser", ua.Name)
	}

	if geoipDB == nil {
		return
	}
	parsedIP := net.ParseIP(utils.GetIPAddress(r))
	if parsedIP == nil {
		return
	}
	record, err := geoipDB.City(parsedIP)
	if err != nil {
		log.Printf("Error retrieving location for IP %v: %v", parsedIP, err)
		return
	}
	location := utils.GetLocationInfo(record)
	setIfAbsent(meta, "country", location.Country)
	setIfAbsent(meta, "region", location.Region)
}

func setIfAbsent(meta map[string]string, key, value string) {
	if value == "" {
		return
	}
	if _, ok := meta[key]; !ok {
		meta[key] = value
	}
}

// GetDashboard returns the owner's counters and the 200 most recent
// events, newest first.
func GetDashboard(ledger services.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := strings.TrimSpace(r.URL.Query().Get("ownerId"))
		if ownerID == "" {
			utils.WriteError(w, http.StatusBadRequest, "ownerId is required")
			return
		}

		stats, events, err := ledger.Dashboard(r.Context(), ownerID)
		if err != nil {
			log.Println("Error querying dashboard:", err)
			utils.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		utils.WriteJSON(w, http.StatusOK, models.DashboardResponse{
			Stats:  stats,
			Events: events,
		})
	}
}

// GetEventsPage walks the owner's event log with a cursor. The cursor
// is the id of the last event of the previous page.
func GetEventsPage(ledger services.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := strings.TrimSpace(r.URL.Query().Get("ownerId"))
		if ownerID == "" {
			utils.WriteError(w, http.StatusBadRequest, "ownerId is required")
			return
		}

		pageSize := 0
		if pageSizeStr := r.URL.Query().Get("pageSize"); pageSizeStr != "" {
			parsed, err := strconv.Atoi(pageSizeStr)
			if err != nil {
				utils.WriteError(w, http.StatusBadRequest, "pageSize must be a number")
				return
			}
			pageSize = parsed
		}

		startAfterID := r.URL.Query().Get("startAfterId")

		events, nextCursor, err := ledger.EventsPage(r.Context(), ownerID, startAfterID, pageSize)
		if err != nil {
			log.Println("Error querying events page:", err)
			utils.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		response := models.EventsPageResponse{Events: events}
		if nextCursor != "" {
			response.NextCursor = &nextCursor
		}

		utils.WriteJSON(w, http.StatusOK, response)
	}
}

// ClearAnalytics wipes everything the ledger holds for an owner. Admin
// only; meant as a reset tool, not part of the visitor flow.
func ClearAnalytics(ledger services.Ledger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			OwnerID string `json:"ownerId"`
		}
		err := json.NewDecoder(r.Body).Decode(&body)
		if err != nil {
			utils.WriteError(w, http.StatusBadRequest, "Invalid JSON format")
			return
		}

		ownerID := strings.TrimSpace(body.OwnerID)
		if ownerID == "" {
			utils.WriteError(w, http.StatusBadRequest, "ownerId is required")
			return
		}

		err = ledger.Clear(r.Context(), ownerID)
		if err != nil {
			log.Println("Error clearing analytics:", err)
			utils.WriteError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"ok":      true,
			"message": "analytics cleared for owner " + ownerID,
		})
	}
}
