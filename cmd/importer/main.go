package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/stitts-dev/ff-draft-sim/internal/directory"
	"github.com/stitts-dev/ff-draft-sim/internal/models"
	"github.com/stitts-dev/ff-draft-sim/internal/providers"
	"github.com/stitts-dev/ff-draft-sim/internal/snapshot"
	"github.com/stitts-dev/ff-draft-sim/pkg/config"
	"github.com/stitts-dev/ff-draft-sim/pkg/database"
	"github.com/stitts-dev/ff-draft-sim/pkg/logger"
)

// importer loads the player universe, weekly stat lines and sweep projection
// tables into the database. Players go in first so stat lines can reference
// them.
func main() {
	playersFile := pflag.String("players", "", "JSON array of players to upsert")
	statsFile := pflag.String("stats", "", "JSON array of stat lines to append")
	poolFile := pflag.String("pool", "", "projection table CSV, such as 1000iter_sim_all_players.csv")
	label := pflag.String("label", "", "snapshot label for --pool (defaults to the file name without extension)")
	pflag.Parse()

	if *playersFile == "" && *statsFile == "" && *poolFile == "" {
		pflag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	importLog := logger.WithComponent("importer")

	db, err := database.NewConnection(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		importLog.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		importLog.Fatalf("Failed to migrate database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *playersFile != "" {
		var players []models.Player
		if err := readJSON(*playersFile, &players); err != nil {
			importLog.Fatalf("Failed to read players: %v", err)
		}
		if err := directory.NewDBDirectory(db.DB).Upsert(ctx, players); err != nil {
			importLog.Fatalf("Failed to import players: %v", err)
		}
		importLog.WithField("players", len(players)).Info("Imported players")
	}

	if *statsFile != "" {
		var lines []models.StatLine
		if err := readJSON(*statsFile, &lines); err != nil {
			importLog.Fatalf("Failed to read stat lines: %v", err)
		}
		if err := providers.NewDBStatsProvider(db.DB, log).SaveLines(ctx, lines); err != nil {
			importLog.Fatalf("Failed to import stat lines: %v", err)
		}
		importLog.WithField("lines", len(lines)).Info("Imported stat lines")
	}

	if *poolFile != "" {
		pool, err := snapshot.LoadFile(*poolFile)
		if err != nil {
			importLog.Fatalf("Failed to read projection table: %v", err)
		}
		if len(pool) == 0 {
			importLog.Fatalf("Projection table %s has no players", *poolFile)
		}
		name := *label
		if name == "" {
			name = strings.TrimSuffix(filepath.Base(*poolFile), filepath.Ext(*poolFile))
		}
		if err := snapshot.NewStore(db.DB, log).Save(ctx, name, pool); err != nil {
			importLog.Fatalf("Failed to store projection table: %v", err)
		}
		importLog.WithFields(logrus.Fields{
			"label":   name,
			"players": len(pool),
		}).Info("Imported projection table")
	}
}

func readJSON(path string, dest interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("invalid JSON in %s: %w", path, err)
	}
	return nil
}
