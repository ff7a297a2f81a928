// Package extract pulls the daily settlement figures out of decrypted
// contract note PDFs and merges them into one summary per date.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/tradebook-sync/internal/decrypt"
	"github.com/dvloznov/tradebook-sync/internal/domain"
	"github.com/dvloznov/tradebook-sync/internal/logger"
)

// ErrPatternMismatch means the settlement line was not found in the report
// text. The artifact contributes nothing; the caller decides whether that is
// fatal for the date.
var ErrPatternMismatch = errors.New("extract: NSE FNO settlement line not matched")

// settlementLine matches the NSE FNO row of the contract note's settlement
// table: eleven numeric columns, of which the 7th and 8th may be negative.
var settlementLine = regexp.MustCompile(
	`NSE\s*FNO(?:\s*-\s*\w+)?\s+(\d+\.\d+)\s+(\d+\.\d+)\s+(\d+\.\d+)\s+(\d+\.\d+)\s+(\d+\.\d+)\s+(\d+\.\d+)\s+(-?\d+\.\d+)\s+(-?\d+\.\d+)\s+(\d+\.\d+)\s+(\d+\.\d+)\s+(\d+\.\d+)`)

// Figures holds the three figures of one report, kept as decimals until they
// are written so per-account sums never accumulate float error.
type Figures struct {
	PayinPayoutObligation decimal.Decimal
	FinalNet              decimal.Decimal
	NetBrokerage          decimal.Decimal
}

// ParseFigures extracts the settlement figures from report text.
func ParseFigures(text string) (Figures, error) {
	m := settlementLine.FindStringSubmatch(text)
	if m == nil {
		return Figures{}, ErrPatternMismatch
	}

	// Columns: 8 = payin/payout obligation, 7 = final net, 10 = net brokerage.
	payin, err := decimal.NewFromString(m[8])
	if err != nil {
		return Figures{}, fmt.Errorf("extract: parsing payin %q: %w", m[8], err)
	}
	finalNet, err := decimal.NewFromString(m[7])
	if err != nil {
		return Figures{}, fmt.Errorf("extract: parsing final net %q: %w", m[7], err)
	}
	brokerage, err := decimal.NewFromString(m[10])
	if err != nil {
		return Figures{}, fmt.Errorf("extract: parsing brokerage %q: %w", m[10], err)
	}

	return Figures{
		PayinPayoutObligation: payin,
		FinalNet:              finalNet,
		NetBrokerage:          brokerage,
	}, nil
}

// TextFromPDF returns the plain text of a PDF file.
func TextFromPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("extract: opening pdf %q: %w", path, err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract: reading pdf text %q: %w", path, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", fmt.Errorf("extract: reading pdf text %q: %w", path, err)
	}
	return buf.String(), nil
}

// Extractor builds the per-date summary from a working area of decrypted
// reports.
type Extractor struct{}

// New returns an extractor.
func New() *Extractor {
	return &Extractor{}
}

// BuildSummary extracts figures from every decrypted report in dir and merges
// them. An artifact whose text does not match the settlement pattern is
// logged and contributes nothing; it never poisons the totals. The returned
// summary may be empty if nothing matched.
func (e *Extractor) BuildSummary(ctx context.Context, dir string) (*domain.DailySummary, error) {
	log := logger.FromContext(ctx)

	files, err := filepath.Glob(filepath.Join(dir, "*"+decrypt.DecryptedSuffix))
	if err != nil {
		return nil, fmt.Errorf("extract: scanning %q: %w", dir, err)
	}

	summary := &domain.DailySummary{}
	totalPayin, totalFinalNet, totalBrokerage := decimal.Zero, decimal.Zero, decimal.Zero

	for _, file := range files {
		text, err := TextFromPDF(file)
		if err != nil {
			log.Error().Err(err).Str("file", file).Msg("Unreadable report dropped")
			continue
		}

		figures, err := ParseFigures(text)
		if err != nil {
			log.Warn().Err(err).Str("file", file).Msg("Report contributes nothing")
			continue
		}

		account := strings.TrimSuffix(filepath.Base(file), ".pdf")
		summary.IndividualAccount = append(summary.IndividualAccount, domain.AccountFinancials{
			Account:               account,
			PayinPayoutObligation: figures.PayinPayoutObligation.InexactFloat64(),
			FinalNet:              figures.FinalNet.InexactFloat64(),
			NetBrokerage:          figures.NetBrokerage.InexactFloat64(),
		})

		totalPayin = totalPayin.Add(figures.PayinPayoutObligation)
		totalFinalNet = totalFinalNet.Add(figures.FinalNet)
		totalBrokerage = totalBrokerage.Add(figures.NetBrokerage)

		log.Info().Str("file", filepath.Base(file)).Msg("Extracted settlement figures")
	}

	summary.Total = domain.AccountFinancials{
		PayinPayoutObligation: totalPayin.InexactFloat64(),
		FinalNet:              totalFinalNet.InexactFloat64(),
		NetBrokerage:          totalBrokerage.InexactFloat64(),
	}
	return summary, nil
}
