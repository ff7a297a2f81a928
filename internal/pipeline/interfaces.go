package pipeline

import (
	"context"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/tradebook-sync/internal/config"
	"github.com/dvloznov/tradebook-sync/internal/domain"
)

// MailFetcher retrieves report attachments for one account and date into the
// working area.
type MailFetcher interface {
	FetchReports(ctx context.Context, account config.Account, d civil.Date, dir string) ([]string, error)
}

// Decryptor produces a password-free copy of an encrypted attachment.
type Decryptor interface {
	Decrypt(ctx context.Context, inputPath, outputPath, password string) error
}

// SummaryBuilder merges every decrypted report in the working area into one
// daily summary.
type SummaryBuilder interface {
	BuildSummary(ctx context.Context, dir string) (*domain.DailySummary, error)
}

// LedgerAppender writes one ledger row for the target date.
type LedgerAppender interface {
	AppendRow(ctx context.Context, targetDate civil.Date, summary *domain.DailySummary, accountIDs []string) (int, error)
}
