package main

import (
	"context"
	"log"

	"design-sandbox-be/internal/bootstrap"
	"design-sandbox-be/internal/config"
	"design-sandbox-be/internal/server"
	"design-sandbox-be/internal/tracer"
	"design-sandbox-be/pkg/database"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database
	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start the notification bridge (bus + NATS -> websocket hub)
	if err := container.NotifyHandler.Start(context.Background()); err != nil {
		log.Printf("[WARN] Notification bridge failed to start: %v", err)
	}

	// 5. Initialize & Run Server
	srv := server.New(cfg, container)
	log.Fatal(srv.Run())
}
