package utils

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/mileusna/useragent"
)

// WriteError writes the API error shape {"error": "..."} shared by all
// handlers. Internal detail never goes into msg; log it instead.
func WriteError(w http.ResponseWriter, statusCode int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	jsonResponse, err := json.Marshal(v)
	if err != nil {
		log.Println("Error encoding JSON:", err)
		WriteError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(jsonResponse)
}

func GetDeviceType(ua *useragent.UserAgent) string {
	if ua.Mobile {
		return "Mobile"
	} else if ua.Tablet {
		return "Tablet"
	} else if ua.Desktop {
		return "Desktop"
	} else if ua.Bot {
		return "Bot"
	} else {
		return "Unknown"
	}
}
