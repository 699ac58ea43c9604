package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"ev-dashboard/internal/config"
	"ev-dashboard/internal/repository"
	"ev-dashboard/pkg/database"
	"ev-dashboard/pkg/logging"
	"ev-dashboard/pkg/metrics"
)

const migrationName = "001_create_ev_registrations"

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	dir := flag.String("dir", "migrations", "Directory containing migration files")
	flag.Parse()

	if *direction != "up" && *direction != "down" {
		fmt.Fprintf(os.Stderr, "Invalid direction %q, expected up or down\n", *direction)
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("ev-migrate", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
	metricsCollector := metrics.NewCollector("ev_migrate", prometheus.NewRegistry())

	ctx := context.Background()
	db, err := database.NewPostgresDB(ctx, cfg.Database.Connection(), logger, metricsCollector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	migrationFile := filepath.Join(*dir, fmt.Sprintf("%s.%s.sql", migrationName, *direction))
	content, err := os.ReadFile(migrationFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read migration file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Running migration: %s\n", migrationFile)

	if _, err := db.ExecContext(ctx, "migrate_"+*direction, string(content)); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to execute migration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Migration completed successfully")

	if *direction == "down" {
		return
	}

	repo, err := repository.NewVehicleSourceRepository(db, cfg.Dataset.Table, logger, metricsCollector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Skipping row count: %v\n", err)
		return
	}
	count, err := repo.CountRows(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to count rows in %s: %v\n", cfg.Dataset.Table, err)
		return
	}
	fmt.Printf("Table %s holds %d rows\n", cfg.Dataset.Table, count)
}
