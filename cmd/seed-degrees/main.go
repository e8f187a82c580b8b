package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/stemsi/degree-audit-backend/internal/catalog"
	"github.com/stemsi/degree-audit-backend/internal/config"
	"github.com/stemsi/degree-audit-backend/internal/database"
	"github.com/stemsi/degree-audit-backend/internal/logger"
	"github.com/stemsi/degree-audit-backend/internal/model"
	"github.com/stemsi/degree-audit-backend/internal/repository"
	"github.com/stemsi/degree-audit-backend/internal/service"
)

func main() {
	var (
		file   string
		dryRun bool
	)
	flag.StringVar(&file, "file", "", "Requirement table (.csv or .xlsx)")
	flag.BoolVar(&dryRun, "dry-run", false, "Validate the file without writing")
	flag.Parse()

	if file == "" {
		fmt.Fprintln(os.Stderr, "Usage: seed-degrees -file requirements.xlsx [-dry-run]")
		os.Exit(2)
	}

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// ─── Parse and validate ────────────────────────────────────────────
	records, err := catalog.LoadFile(file)
	if err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("Failed to read requirement table")
	}
	table, err := catalog.Build(records)
	if err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("Invalid requirement table")
	}

	fmt.Printf("=== %d degree(s) in %s ===\n", len(table), file)
	for _, r := range records {
		d := table[r.Key]
		fmt.Printf("  %-12s %-30s %3d credits, %d prescribed group(s)\n", d.Key, d.MajorName, d.TotalCredits, len(d.Prescribed))
	}
	if dryRun {
		fmt.Println("Dry run, nothing written")
		return
	}

	// ─── Write ─────────────────────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	degrees := make([]*model.Degree, 0, len(records))
	for _, r := range records {
		degrees = append(degrees, service.ModelFromRecord(r))
	}

	repo := repository.NewDegreeRepository(pool)
	if err := repo.UpsertAll(ctx, degrees); err != nil {
		log.Fatal().Err(err).Msg("Failed to upsert degrees")
	}

	fmt.Printf("\nSuccess! Upserted %d degree(s). Reload running servers via POST /api/v1/admin/degrees/reload\n", len(degrees))
}
