// Package pipeline drives the per-date ingestion sequence: reset working
// area, fetch mail, decrypt, extract, append, clean up. Dates are processed
// strictly in order and failures are contained per date.
package pipeline

import (
	"context"
	"fmt"
	"os"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/tradebook-sync/internal/config"
	"github.com/dvloznov/tradebook-sync/internal/gapcheck"
	"github.com/dvloznov/tradebook-sync/internal/logger"
)

// Pipeline executes a sequence of steps in order for one date.
type Pipeline struct {
	steps []Step
}

// NewPipeline creates a pipeline with the given steps.
func NewPipeline(steps ...Step) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs the steps sequentially. A step marking the state skipped ends
// the pipeline early without error.
func (p *Pipeline) Execute(ctx context.Context, state *State) error {
	for i, step := range p.steps {
		if state.Skipped {
			return nil
		}
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Orchestrator runs the backfill pipeline for each missing date.
type Orchestrator struct {
	pipeline *Pipeline
	workDir  string
}

// NewOrchestrator wires the standard five-step backfill pipeline.
// summaryPath may be empty to skip persisting the summary artifact.
func NewOrchestrator(fetcher MailFetcher, decryptor Decryptor, builder SummaryBuilder, appender LedgerAppender, accounts []config.Account, workDir, summaryPath string) *Orchestrator {
	ids := make([]string, len(accounts))
	for i, a := range accounts {
		ids[i] = a.AccountID
	}
	return &Orchestrator{
		workDir: workDir,
		pipeline: NewPipeline(
			&ResetWorkdirStep{},
			&FetchMailStep{Fetcher: fetcher, Accounts: accounts},
			&DecryptStep{Decryptor: decryptor},
			&ExtractStep{Builder: builder, SummaryPath: summaryPath},
			&AppendStep{Appender: appender, AccountIDs: ids},
		),
	}
}

// RunReport summarizes a backfill run.
type RunReport struct {
	Appended int
	Skipped  int
	Failed   int
}

// Err returns a run-level error when any date failed.
func (r RunReport) Err() error {
	if r.Failed > 0 {
		return fmt.Errorf("pipeline: %d of %d dates failed", r.Failed, r.Appended+r.Skipped+r.Failed)
	}
	return nil
}

// Run processes the dates in order. A failure on one date is logged and does
// not prevent the following dates from being attempted. The working area is
// removed on every exit path before the next date starts.
func (o *Orchestrator) Run(ctx context.Context, dates []civil.Date) RunReport {
	log := logger.FromContext(ctx)

	var report RunReport
	for _, d := range dates {
		dateLog := log.With().Str("date", gapcheck.Display(d)).Logger()
		dateCtx := logger.WithContext(ctx, dateLog)

		state := &State{Date: d, WorkDir: o.workDir}
		err := o.pipeline.Execute(dateCtx, state)

		if cleanErr := os.RemoveAll(o.workDir); cleanErr != nil {
			dateLog.Warn().Err(cleanErr).Msg("Failed to clean working area")
		}

		switch {
		case err != nil:
			report.Failed++
			dateLog.Error().Err(err).Msg("Date failed")
		case state.Skipped:
			report.Skipped++
			dateLog.Info().Str("reason", state.SkipReason).Msg("Date skipped")
		default:
			report.Appended++
			dateLog.Info().Int("row", state.AppendedRow).Msg("Date recorded")
		}
	}
	return report
}
