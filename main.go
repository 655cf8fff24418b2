package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/joho/godotenv"

	"github.com/mvavassori/portfolio-pulse/db"
	"github.com/mvavassori/portfolio-pulse/services"
)

const defaultNotificationDelay = 60 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env: %v", err)
	}

	// db initialization
	postgresDB, err := db.CreatePostgresConnection()
	if err != nil {
		log.Fatal(err)
	}
	defer postgresDB.Close()

	if err := db.InitSchema(postgresDB); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	// GeoIP is optional: without it events simply aren't geo-enriched.
	geoipDB, err := db.CreateGeoIPConnection()
	if err != nil {
		log.Printf("GeoIP unavailable, events won't be geo-enriched: %v", err)
	} else {
		defer geoipDB.Close()
	}

	ledger := services.NewLedgerService(postgresDB)
	portfolios := services.NewPortfolioService(postgresDB)
	notifications := services.NewNotificationService(postgresDB)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Reminder pushes are optional too: without APNs credentials the
	// scheduling endpoint still works, rows just stay pending.
	if apnsClient, err := services.NewAPNSClientFromEnv(); err != nil {
		log.Printf("APNs unavailable, reminder pushes disabled: %v", err)
	} else {
		dispatcher := services.NewDispatcher(notifications, apnsClient, 15*time.Second)
		dispatcher.Start(ctx)
		log.Println("Notification dispatcher started")
	}

	router := SetupRouter(ledger, portfolios, notifications, geoipDB, notificationDelay())

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		if parsed, err := strconv.Atoi(portStr); err == nil {
			port = parsed
		}
	}

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", port),
		Handler: handlers.CORS( // cors config
			handlers.AllowedOrigins([]string{"*"}),
			handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		)(router),
	}

	go func() {
		log.Printf("Server is listening on port %d...\n", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v\n", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
}

func notificationDelay() time.Duration {
	if delayStr := os.Getenv("NOTIFICATION_DELAY_SECONDS"); delayStr != "" {
		if seconds, err := strconv.Atoi(delayStr); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultNotificationDelay
}
