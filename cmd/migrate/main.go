// Package main provides a CLI tool for running database migrations.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/agent-diff/internal/config"
	"github.com/agent-diff/internal/storage"
)

func main() {
	action := flag.String("action", "up", "Migration action: up, down, version")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := runBaselineMigrations(cfg, *action); err != nil {
		log.Fatalf("Baseline migration failed: %v", err)
	}
}

func runBaselineMigrations(cfg *config.Config, action string) error {
	databaseURL := cfg.Postgres.URL()

	switch action {
	case "up":
		log.Println("Running baseline migrations...")
		if err := storage.RunBaselineMigrations(databaseURL); err != nil {
			return err
		}
		log.Println("Baseline migrations completed successfully")

	case "down":
		log.Println("Rolling back baseline migration...")
		if err := storage.RollbackBaselineMigration(databaseURL); err != nil {
			return err
		}
		log.Println("Baseline migration rolled back successfully")

	case "version":
		version, dirty, err := storage.BaselineMigrationVersion(databaseURL)
		if err != nil {
			return err
		}
		log.Printf("Current baseline schema version: %d (dirty: %v)", version, dirty)

	default:
		return fmt.Errorf("unknown action: %s", action)
	}

	return nil
}
