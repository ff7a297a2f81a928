package main

import (
	"context"
	"flag"
	"time"

	"github.com/dvloznov/tradebook-sync/internal/domain"
	"github.com/dvloznov/tradebook-sync/internal/extract"
	"github.com/dvloznov/tradebook-sync/internal/logger"
)

// parse-reports runs the extraction step on its own: it scans a directory of
// already-decrypted contract notes and writes the merged daily summary.
// Useful for re-processing a date by hand without touching mail or the ledger.
func main() {
	log := logger.New()

	dir := flag.String("dir", "data", "directory holding *_decrypted.pdf reports")
	out := flag.String("out", "daily_summary.json", "path to write the merged summary")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	summary, err := extract.New().BuildSummary(ctx, *dir)
	if err != nil {
		log.Fatal().Err(err).Msg("Extraction failed")
	}
	if summary.Empty() {
		log.Warn().Str("dir", *dir).Msg("No decrypted reports found")
	}

	if err := domain.SaveSummary(*out, summary); err != nil {
		log.Fatal().Err(err).Msg("Failed to write summary")
	}

	log.Info().
		Str("path", *out).
		Int("accounts", len(summary.IndividualAccount)).
		Float64("total_payin_payout", summary.Total.PayinPayoutObligation).
		Float64("total_net_brokerage", summary.Total.NetBrokerage).
		Msg("Merged summary saved")
}
