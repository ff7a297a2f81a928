package main

import (
	"context"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/dvloznov/tradebook-sync/internal/config"
	"github.com/dvloznov/tradebook-sync/internal/decrypt"
	"github.com/dvloznov/tradebook-sync/internal/extract"
	"github.com/dvloznov/tradebook-sync/internal/gapcheck"
	"github.com/dvloznov/tradebook-sync/internal/ledger"
	"github.com/dvloznov/tradebook-sync/internal/logger"
	"github.com/dvloznov/tradebook-sync/internal/mailfetch"
	"github.com/dvloznov/tradebook-sync/internal/pipeline"
	"github.com/dvloznov/tradebook-sync/internal/sheet"
	"github.com/dvloznov/tradebook-sync/internal/tracker"
)

func main() {
	_ = godotenv.Load()

	log := logger.WithRun(logger.New(), uuid.NewString())

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// One backfill run must finish well before the next scheduled one: runs
	// may not overlap.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	sheetClient, err := sheet.NewClient(ctx, cfg.CredentialsJSON, cfg.SpreadsheetID, cfg.SheetID, cfg.SheetName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sheet client")
	}

	store := tracker.NewStore(cfg.TrackerPath)
	appender := ledger.NewAppender(sheetClient, store, cfg.FormulaColumns)

	dates, err := missingDates(ctx, cfg, sheetClient, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to compute missing dates")
	}
	if len(dates) == 0 {
		log.Info().Msg("No missing days, ledger is up to date")
		return
	}
	log.Info().Int("dates", len(dates)).Str("first", gapcheck.Display(dates[0])).Msg("Starting backfill")

	orchestrator := pipeline.NewOrchestrator(
		mailfetch.New(),
		decrypt.New(),
		extract.New(),
		appender,
		cfg.Accounts,
		cfg.WorkDir,
		cfg.SummaryPath,
	)

	report := orchestrator.Run(ctx, dates)
	log.Info().
		Int("appended", report.Appended).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("Backfill finished")

	if err := report.Err(); err != nil {
		log.Error().Err(err).Msg("Backfill completed with failures")
		os.Exit(1)
	}
}

// missingDates returns the dates to process: the explicit target date when
// configured, otherwise the gap between the ledger's last recorded date and
// today.
func missingDates(ctx context.Context, cfg *config.Config, sheetClient *sheet.Client, store *tracker.Store) ([]civil.Date, error) {
	if !cfg.TargetDate.IsZero() {
		return []civil.Date{cfg.TargetDate}, nil
	}

	lastRow, err := ledger.ResolveLastRow(ctx, sheetClient, store)
	if err != nil {
		return nil, err
	}
	cell, err := ledger.LastDateCell(ctx, sheetClient, lastRow)
	if err != nil {
		return nil, err
	}
	return gapcheck.Missing(cell, civil.DateOf(time.Now()))
}
