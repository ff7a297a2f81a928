package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/tradebook-sync/internal/config"
	"github.com/dvloznov/tradebook-sync/internal/domain"
	"github.com/dvloznov/tradebook-sync/internal/ledger"
	"github.com/dvloznov/tradebook-sync/internal/pipeline"
)

// MockMailFetcher is a mock implementation of MailFetcher for testing.
type MockMailFetcher struct {
	FetchReportsFunc func(ctx context.Context, account config.Account, d civil.Date, dir string) ([]string, error)
}

func (m *MockMailFetcher) FetchReports(ctx context.Context, account config.Account, d civil.Date, dir string) ([]string, error) {
	if m.FetchReportsFunc != nil {
		return m.FetchReportsFunc(ctx, account, d, dir)
	}
	return nil, nil
}

// MockDecryptor is a mock implementation of Decryptor for testing.
type MockDecryptor struct {
	DecryptFunc func(ctx context.Context, inputPath, outputPath, password string) error
}

func (m *MockDecryptor) Decrypt(ctx context.Context, inputPath, outputPath, password string) error {
	if m.DecryptFunc != nil {
		return m.DecryptFunc(ctx, inputPath, outputPath, password)
	}
	return nil
}

// MockSummaryBuilder is a mock implementation of SummaryBuilder for testing.
type MockSummaryBuilder struct {
	BuildSummaryFunc func(ctx context.Context, dir string) (*domain.DailySummary, error)
}

func (m *MockSummaryBuilder) BuildSummary(ctx context.Context, dir string) (*domain.DailySummary, error) {
	if m.BuildSummaryFunc != nil {
		return m.BuildSummaryFunc(ctx, dir)
	}
	return &domain.DailySummary{}, nil
}

// MockLedgerAppender is a mock implementation of LedgerAppender for testing.
type MockLedgerAppender struct {
	AppendRowFunc func(ctx context.Context, targetDate civil.Date, summary *domain.DailySummary, accountIDs []string) (int, error)
	calls         int
}

func (m *MockLedgerAppender) AppendRow(ctx context.Context, targetDate civil.Date, summary *domain.DailySummary, accountIDs []string) (int, error) {
	m.calls++
	if m.AppendRowFunc != nil {
		return m.AppendRowFunc(ctx, targetDate, summary, accountIDs)
	}
	return 0, nil
}

func testAccounts() []config.Account {
	return []config.Account{
		{Email: "a@gmail.com", Password: "pw", AccountID: "ACC1", PDFPassword: "s1"},
	}
}

func testSummary() *domain.DailySummary {
	return &domain.DailySummary{
		IndividualAccount: []domain.AccountFinancials{
			{Account: "ACC1", PayinPayoutObligation: 100.5, FinalNet: 98.2, NetBrokerage: 2.3},
		},
	}
}

// fetcherSaving writes one fake attachment into the working area, the way the
// real IMAP fetcher does.
func fetcherSaving(name string) *MockMailFetcher {
	return &MockMailFetcher{
		FetchReportsFunc: func(ctx context.Context, account config.Account, d civil.Date, dir string) ([]string, error) {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte("encrypted"), 0o644); err != nil {
				return nil, err
			}
			return []string{path}, nil
		},
	}
}

func june(day int) civil.Date {
	return civil.Date{Year: 2024, Month: time.June, Day: day}
}

func TestRun_AppendsEachDate(t *testing.T) {
	workDir := filepath.Join(t.TempDir(), "data")
	appender := &MockLedgerAppender{
		AppendRowFunc: func(ctx context.Context, targetDate civil.Date, summary *domain.DailySummary, accountIDs []string) (int, error) {
			return 20 + targetDate.Day - 14, nil
		},
	}
	builder := &MockSummaryBuilder{
		BuildSummaryFunc: func(ctx context.Context, dir string) (*domain.DailySummary, error) {
			return testSummary(), nil
		},
	}

	o := pipeline.NewOrchestrator(fetcherSaving("ACC1_note.pdf"), &MockDecryptor{}, builder, appender, testAccounts(), workDir, "")
	report := o.Run(context.Background(), []civil.Date{june(15), june(16)})

	if report.Appended != 2 || report.Skipped != 0 || report.Failed != 0 {
		t.Errorf("expected 2 appends, got %+v", report)
	}
	if appender.calls != 2 {
		t.Errorf("expected 2 appender calls, got %d", appender.calls)
	}
	if report.Err() != nil {
		t.Errorf("expected no run error, got %v", report.Err())
	}
	// Working area is cleaned on every exit path.
	if _, err := os.Stat(workDir); !os.IsNotExist(err) {
		t.Errorf("expected working area removed, stat err = %v", err)
	}
}

func TestRun_PersistsSummaryArtifact(t *testing.T) {
	tmp := t.TempDir()
	workDir := filepath.Join(tmp, "data")
	summaryPath := filepath.Join(tmp, "daily_summary.json")

	appender := &MockLedgerAppender{
		AppendRowFunc: func(ctx context.Context, targetDate civil.Date, summary *domain.DailySummary, accountIDs []string) (int, error) {
			return 21, nil
		},
	}
	builder := &MockSummaryBuilder{
		BuildSummaryFunc: func(ctx context.Context, dir string) (*domain.DailySummary, error) {
			return testSummary(), nil
		},
	}

	o := pipeline.NewOrchestrator(fetcherSaving("ACC1_note.pdf"), &MockDecryptor{}, builder, appender, testAccounts(), workDir, summaryPath)
	o.Run(context.Background(), []civil.Date{june(15)})

	loaded, err := domain.LoadSummary(summaryPath)
	if err != nil {
		t.Fatalf("expected summary artifact, got %v", err)
	}
	entry, ok := loaded.FindAccount("ACC1")
	if !ok {
		t.Fatal("expected ACC1 entry in persisted summary")
	}
	if entry.PayinPayoutObligation != 100.5 || entry.NetBrokerage != 2.3 {
		t.Errorf("unexpected figures in persisted summary: %+v", entry)
	}
}

func TestRun_DecryptFailureSkipsDate(t *testing.T) {
	workDir := filepath.Join(t.TempDir(), "data")
	decryptor := &MockDecryptor{
		DecryptFunc: func(ctx context.Context, inputPath, outputPath, password string) error {
			return errors.New("wrong password")
		},
	}
	appender := &MockLedgerAppender{}

	o := pipeline.NewOrchestrator(fetcherSaving("ACC1_note.pdf"), decryptor, &MockSummaryBuilder{}, appender, testAccounts(), workDir, "")
	report := o.Run(context.Background(), []civil.Date{june(15)})

	if report.Skipped != 1 || report.Failed != 0 || report.Appended != 0 {
		t.Errorf("expected 1 skip, got %+v", report)
	}
	if appender.calls != 0 {
		t.Errorf("ledger must not be touched on a skipped date, got %d calls", appender.calls)
	}
}

func TestRun_NoAttachmentsSkipsDate(t *testing.T) {
	workDir := filepath.Join(t.TempDir(), "data")
	appender := &MockLedgerAppender{}

	o := pipeline.NewOrchestrator(&MockMailFetcher{}, &MockDecryptor{}, &MockSummaryBuilder{}, appender, testAccounts(), workDir, "")
	report := o.Run(context.Background(), []civil.Date{june(15)})

	if report.Skipped != 1 {
		t.Errorf("expected 1 skip, got %+v", report)
	}
	if appender.calls != 0 {
		t.Errorf("expected no appender call, got %d", appender.calls)
	}
}

func TestRun_DuplicateDateIsSkipNotFailure(t *testing.T) {
	workDir := filepath.Join(t.TempDir(), "data")
	appender := &MockLedgerAppender{
		AppendRowFunc: func(ctx context.Context, targetDate civil.Date, summary *domain.DailySummary, accountIDs []string) (int, error) {
			return 0, fmt.Errorf("%w: 15 Jun 24 at row 21", ledger.ErrDuplicateDate)
		},
	}
	builder := &MockSummaryBuilder{
		BuildSummaryFunc: func(ctx context.Context, dir string) (*domain.DailySummary, error) {
			return testSummary(), nil
		},
	}

	o := pipeline.NewOrchestrator(fetcherSaving("ACC1_note.pdf"), &MockDecryptor{}, builder, appender, testAccounts(), workDir, "")
	report := o.Run(context.Background(), []civil.Date{june(15)})

	if report.Skipped != 1 || report.Failed != 0 {
		t.Errorf("expected duplicate to skip, got %+v", report)
	}
	if report.Err() != nil {
		t.Errorf("expected no run error, got %v", report.Err())
	}
}

func TestRun_FailureDoesNotBlockLaterDates(t *testing.T) {
	workDir := filepath.Join(t.TempDir(), "data")
	appender := &MockLedgerAppender{
		AppendRowFunc: func(ctx context.Context, targetDate civil.Date, summary *domain.DailySummary, accountIDs []string) (int, error) {
			if targetDate.Day == 15 {
				return 0, errors.New("spreadsheet backend unavailable")
			}
			return 22, nil
		},
	}
	builder := &MockSummaryBuilder{
		BuildSummaryFunc: func(ctx context.Context, dir string) (*domain.DailySummary, error) {
			return testSummary(), nil
		},
	}

	o := pipeline.NewOrchestrator(fetcherSaving("ACC1_note.pdf"), &MockDecryptor{}, builder, appender, testAccounts(), workDir, "")
	report := o.Run(context.Background(), []civil.Date{june(15), june(16)})

	if report.Failed != 1 || report.Appended != 1 {
		t.Errorf("expected 1 failure and 1 append, got %+v", report)
	}
	if report.Err() == nil {
		t.Error("expected run-level error when a date failed")
	}
}

func TestRun_DatesProcessedInOrder(t *testing.T) {
	workDir := filepath.Join(t.TempDir(), "data")
	var seen []string
	fetcher := &MockMailFetcher{
		FetchReportsFunc: func(ctx context.Context, account config.Account, d civil.Date, dir string) ([]string, error) {
			seen = append(seen, d.String())
			return nil, nil
		},
	}

	o := pipeline.NewOrchestrator(fetcher, &MockDecryptor{}, &MockSummaryBuilder{}, &MockLedgerAppender{}, testAccounts(), workDir, "")
	o.Run(context.Background(), []civil.Date{june(15), june(16), june(17)})

	want := []string{"2024-06-15", "2024-06-16", "2024-06-17"}
	if len(seen) != len(want) {
		t.Fatalf("expected %d fetches, got %d", len(want), len(seen))
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("fetch %d: expected %s, got %s", i, want[i], seen[i])
		}
	}
}

func TestRun_PerAccountFetchIsolation(t *testing.T) {
	workDir := filepath.Join(t.TempDir(), "data")
	accounts := []config.Account{
		{Email: "a@gmail.com", Password: "pw", AccountID: "ACC1", PDFPassword: "s1"},
		{Email: "b@gmail.com", Password: "pw", AccountID: "ACC2", PDFPassword: "s2"},
	}

	fetcher := &MockMailFetcher{
		FetchReportsFunc: func(ctx context.Context, account config.Account, d civil.Date, dir string) ([]string, error) {
			if account.AccountID == "ACC1" {
				return nil, errors.New("auth failure")
			}
			path := filepath.Join(dir, "ACC2_note.pdf")
			if err := os.WriteFile(path, []byte("encrypted"), 0o644); err != nil {
				return nil, err
			}
			return []string{path}, nil
		},
	}
	builder := &MockSummaryBuilder{
		BuildSummaryFunc: func(ctx context.Context, dir string) (*domain.DailySummary, error) {
			return testSummary(), nil
		},
	}
	appender := &MockLedgerAppender{
		AppendRowFunc: func(ctx context.Context, targetDate civil.Date, summary *domain.DailySummary, accountIDs []string) (int, error) {
			return 21, nil
		},
	}

	o := pipeline.NewOrchestrator(fetcher, &MockDecryptor{}, builder, appender, accounts, workDir, "")
	report := o.Run(context.Background(), []civil.Date{june(15)})

	if report.Appended != 1 {
		t.Errorf("one failing account must not block the date, got %+v", report)
	}
}
