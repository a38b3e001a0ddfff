package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EmanuelRealGamboa/clinica-camsa/internal/config"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/database"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/handlers"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/models"
	"github.com/EmanuelRealGamboa/clinica-camsa/internal/websocket"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-Migrate Schema
	log.Println("🚀 Synchronizing database schema...")
	err = db.AutoMigrate(
		&models.StaffUser{},

		// Catalog
		&models.ProductCategory{},
		&models.Product{},

		// Clinic
		&models.Room{},
		&models.Patient{},
		&models.Device{},
		&models.PatientAssignment{},

		// Inventory ledger
		&models.InventoryBalance{},
		&models.InventoryMovement{},

		// Orders
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusEvent{},

		&models.Feedback{},
	)
	if err != nil {
		log.Printf("⚠️ Migration warning: %v\n", err)
	} else {
		log.Println("✅ Schema synchronized successfully")
	}

	// 4. Start the realtime hub
	hub := websocket.NewHub()
	go hub.Run()

	// 5. Set up HTTP router
	router := handlers.NewRouter(db, cfg, hub)

	// 6. Start server with graceful shutdown
	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Room service API starting on port %s [%s]\n", cfg.Port, cfg.NodeEnv)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	// Create context with timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Close database (this also stops embedded PostgreSQL)
	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
