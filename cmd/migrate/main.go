package main

import (
	"log"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/ff-draft-sim/pkg/config"
	"github.com/stitts-dev/ff-draft-sim/pkg/database"
	"github.com/stitts-dev/ff-draft-sim/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate [up|down]")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	migrateLog := logger.WithComponent("migrate")

	db, err := database.NewConnection(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		migrateLog.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	command := os.Args[1]

	switch command {
	case "up":
		if err := db.Migrate(); err != nil {
			migrateLog.Fatalf("Failed to run migrations: %v", err)
		}
		migrateLog.Info("Migrations completed successfully")

	case "down":
		if err := db.DropAll(); err != nil {
			migrateLog.Fatalf("Failed to drop tables: %v", err)
		}
		migrateLog.Info("Tables dropped successfully")

	default:
		log.Fatalf("Unknown command: %s", command)
	}
}
