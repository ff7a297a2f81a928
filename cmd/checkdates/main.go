package main

import (
	"context"
	"flag"
	"time"

	"cloud.google.com/go/civil"
	"github.com/joho/godotenv"

	"github.com/dvloznov/tradebook-sync/internal/config"
	"github.com/dvloznov/tradebook-sync/internal/gapcheck"
	"github.com/dvloznov/tradebook-sync/internal/ledger"
	"github.com/dvloznov/tradebook-sync/internal/logger"
	"github.com/dvloznov/tradebook-sync/internal/sheet"
	"github.com/dvloznov/tradebook-sync/internal/tracker"
)

func main() {
	_ = godotenv.Load()

	log := logger.New()

	gapFile := flag.String("gap-file", "", "optional path to write the missing dates as a work queue")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	sheetClient, err := sheet.NewClient(ctx, cfg.CredentialsJSON, cfg.SpreadsheetID, cfg.SheetID, cfg.SheetName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create sheet client")
	}
	store := tracker.NewStore(cfg.TrackerPath)

	lastRow, err := ledger.ResolveLastRow(ctx, sheetClient, store)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve last ledger row")
	}

	cell, err := ledger.LastDateCell(ctx, sheetClient, lastRow)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read last ledger date")
	}

	lastDate, err := gapcheck.ParseLedgerDate(cell)
	if err != nil {
		log.Fatal().Err(err).Int("row", lastRow).Msg("No usable date in ledger")
	}

	today := civil.DateOf(time.Now())
	log.Info().
		Int("row", lastRow).
		Str("last_date", gapcheck.Display(lastDate)).
		Str("last_date_iso", gapcheck.ISO(lastDate)).
		Str("today", gapcheck.Display(today)).
		Msg("Last updated date in sheet")

	dates, err := gapcheck.Missing(cell, today)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to compute missing dates")
	}

	if len(dates) == 0 {
		log.Info().Msg("No missing days")
	} else {
		for _, d := range dates {
			log.Info().Str("date", gapcheck.Display(d)).Msg("Missing from ledger")
		}
	}

	if *gapFile != "" {
		if err := gapcheck.WriteGapFile(*gapFile, dates, today); err != nil {
			log.Fatal().Err(err).Msg("Failed to write gap file")
		}
		log.Info().Str("path", *gapFile).Msg("Gap file written")
	}
}
