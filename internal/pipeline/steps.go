package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/tradebook-sync/internal/config"
	"github.com/dvloznov/tradebook-sync/internal/decrypt"
	"github.com/dvloznov/tradebook-sync/internal/domain"
	"github.com/dvloznov/tradebook-sync/internal/ledger"
	"github.com/dvloznov/tradebook-sync/internal/logger"
)

// Step represents a single step of the per-date ingestion pipeline.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// Report is one fetched attachment together with the account it belongs to,
// so the decrypt step knows which secret unlocks it.
type Report struct {
	Path    string
	Account config.Account
}

// State holds the shared state across all pipeline steps for one date.
type State struct {
	Date    civil.Date
	WorkDir string

	Fetched   []Report
	Decrypted []string
	Summary   *domain.DailySummary

	// Skipped marks the date as done-without-append. Remaining steps are
	// not executed.
	Skipped    bool
	SkipReason string

	AppendedRow int
}

func (s *State) skip(reason string) {
	s.Skipped = true
	s.SkipReason = reason
}

// Step 1: ResetWorkdirStep deletes and recreates the working area. Leftover
// artifacts from another date would otherwise become part of this date's
// extraction input.
type ResetWorkdirStep struct{}

func (s *ResetWorkdirStep) Execute(ctx context.Context, state *State) error {
	if err := os.RemoveAll(state.WorkDir); err != nil {
		return fmt.Errorf("resetting working area %q: %w", state.WorkDir, err)
	}
	if err := os.MkdirAll(state.WorkDir, 0o755); err != nil {
		return fmt.Errorf("creating working area %q: %w", state.WorkDir, err)
	}
	return nil
}

// Step 2: FetchMailStep pulls the date's report attachments for every
// account. Accounts are processed one after another; a failing account is
// logged and must not block its siblings.
type FetchMailStep struct {
	Fetcher  MailFetcher
	Accounts []config.Account
}

func (s *FetchMailStep) Execute(ctx context.Context, state *State) error {
	log := logger.FromContext(ctx)

	for _, account := range s.Accounts {
		paths, err := s.Fetcher.FetchReports(ctx, account, state.Date, state.WorkDir)
		if err != nil {
			log.Error().Err(err).Str("email", account.Email).Msg("Fetch failed for account")
			continue
		}
		for _, p := range paths {
			state.Fetched = append(state.Fetched, Report{Path: p, Account: account})
		}
	}

	log.Info().Int("attachments", len(state.Fetched)).Msg("Fetch stage finished")
	return nil
}

// Step 3: DecryptStep unlocks every fetched attachment with its account's
// secret. A failed decryption drops that attachment only. When nothing
// decrypts, the date is skipped: there is no input for extraction.
type DecryptStep struct {
	Decryptor Decryptor
}

func (s *DecryptStep) Execute(ctx context.Context, state *State) error {
	log := logger.FromContext(ctx)

	for _, report := range state.Fetched {
		out := decrypt.OutputPath(report.Path)
		if err := s.Decryptor.Decrypt(ctx, report.Path, out, report.Account.PDFPassword); err != nil {
			log.Warn().Err(err).Str("file", report.Path).Msg("Decryption failed, attachment dropped")
			continue
		}
		state.Decrypted = append(state.Decrypted, out)
	}

	log.Info().Int("decrypted", len(state.Decrypted)).Msg("Decrypt stage finished")

	if len(state.Decrypted) == 0 {
		state.skip("no decrypted artifacts")
	}
	return nil
}

// Step 4: ExtractStep merges the decrypted reports into the date's summary
// and persists the summary artifact for inspection.
type ExtractStep struct {
	Builder SummaryBuilder

	// SummaryPath, when set, is where the merged summary is written. The
	// file survives the working-area cleanup and always shows the last
	// extracted date.
	SummaryPath string
}

func (s *ExtractStep) Execute(ctx context.Context, state *State) error {
	log := logger.FromContext(ctx)

	summary, err := s.Builder.BuildSummary(ctx, state.WorkDir)
	if err != nil {
		return fmt.Errorf("extracting summary: %w", err)
	}
	state.Summary = summary

	if s.SummaryPath != "" {
		if err := domain.SaveSummary(s.SummaryPath, summary); err != nil {
			log.Warn().Err(err).Msg("Failed to persist summary artifact")
		}
	}

	log.Info().
		Int("accounts", len(summary.IndividualAccount)).
		Msg("Extracted daily summary")
	return nil
}

// Step 5: AppendStep writes the ledger row. A duplicate date or an empty
// summary is a skip for this date, not a failure.
type AppendStep struct {
	Appender   LedgerAppender
	AccountIDs []string
}

func (s *AppendStep) Execute(ctx context.Context, state *State) error {
	row, err := s.Appender.AppendRow(ctx, state.Date, state.Summary, s.AccountIDs)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateDate) || errors.Is(err, ledger.ErrEmptySummary) {
			state.skip(err.Error())
			return nil
		}
		return fmt.Errorf("appending ledger row: %w", err)
	}
	state.AppendedRow = row

	log := logger.FromContext(ctx)
	log.Info().Int("row", row).Msg("Appended ledger row")
	return nil
}
