package main

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/oschwald/geoip2-golang"

	"github.com/mvavassori/portfolio-pulse/handlers"
	"github.com/mvavassori/portfolio-pulse/middleware"
	"github.com/mvavassori/portfolio-pulse/services"
)

func SetupRouter(ledger services.Ledger, portfolios services.Portfolios, notifications services.Notifications, geoipDB *geoip2.Reader, notificationDelay time.Duration) *mux.Router {

	router := mux.NewRouter()

	// analytics ledger routes
	router.HandleFunc("/api/event", handlers.RecordEvent(ledger, geoipDB)).Methods("POST")
	router.HandleFunc("/api/dashboard", handlers.GetDashboard(ledger)).Methods("GET")
	router.HandleFunc("/api/events", handlers.GetEventsPage(ledger)).Methods("GET")
	router.Handle("/api/analytics/clear", middleware.AdminMiddleware(handlers.ClearAnalytics(ledger))).Methods("POST")

	// portfolio routes
	router.HandleFunc("/api/portfolio/{ownerId}", handlers.GetPortfolio(portfolios)).Methods("GET")
	router.Handle("/api/portfolio/{ownerId}", middleware.AdminMiddleware(handlers.UpdatePortfolio(portfolios))).Methods("PUT")

	// visitor reminder route
	router.HandleFunc("/api/notification", handlers.ScheduleNotification(notifications, notificationDelay)).Methods("POST")

	// admin auth route
	router.HandleFunc("/api/admin/login", handlers.AdminLogin()).Methods("POST")

	router.HandleFunc("/api/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	return router
}
