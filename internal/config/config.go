package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"

	"cloud.google.com/go/civil"
)

// Account bundles the per-account settings that the original deployment kept
// in four parallel env lists. Zipping them into one record at load time means
// an index mismatch is impossible past this point.
type Account struct {
	// Email is the Gmail address the contract note is delivered to.
	Email string

	// Password is the IMAP app password for Email.
	Password string

	// AccountID is the broker account identifier. It appears in the mail
	// subject and drives the ledger column order.
	AccountID string

	// PDFPassword unlocks the encrypted contract note attachment.
	PDFPassword string
}

// Config holds everything the backfill run needs. It is read once at process
// start, before any network call.
type Config struct {
	// CredentialsJSON is the decoded service-account key for the
	// spreadsheet backend.
	CredentialsJSON []byte

	SpreadsheetID string
	SheetID       int64 // numeric grid id, needed for copy-paste requests
	SheetName     string

	Accounts []Account

	// WorkDir is the working area the fetch/decrypt/extract steps share.
	// It is recreated per processed date.
	WorkDir string

	// TrackerPath is the row tracker JSON file.
	TrackerPath string

	// SummaryPath is where the merged daily summary artifact is written.
	SummaryPath string

	// FormulaColumns is the width of the trailing formula block copied
	// forward from the previous ledger row.
	FormulaColumns int

	// TargetDate, when set, pins a single-date run instead of backfilling
	// the whole gap. Zero value means "derive dates from the ledger".
	TargetDate civil.Date
}

// AccountIDs returns the configured account identifiers in order. The ledger
// column layout follows this order, not the order accounts report in.
func (c *Config) AccountIDs() []string {
	ids := make([]string, len(c.Accounts))
	for i, a := range c.Accounts {
		ids[i] = a.AccountID
	}
	return ids
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return parse(os.Getenv)
}

func parse(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		SpreadsheetID:  getenv("GOOGLE_SHEET_ID"),
		SheetName:      getenv("SHEET_NAME"),
		WorkDir:        getenv("WORK_DIR"),
		TrackerPath:    getenv("TRACKER_FILE"),
		SummaryPath:    getenv("SUMMARY_FILE"),
		FormulaColumns: 6,
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = "data"
	}
	if cfg.TrackerPath == "" {
		cfg.TrackerPath = "row_tracker.json"
	}
	if cfg.SummaryPath == "" {
		cfg.SummaryPath = "daily_summary.json"
	}

	raw := getenv("GOOGLE_CREDENTIALS")
	if raw == "" {
		return nil, fmt.Errorf("config: GOOGLE_CREDENTIALS is required")
	}
	creds, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("config: decoding GOOGLE_CREDENTIALS: %w", err)
	}
	cfg.CredentialsJSON = creds

	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("config: GOOGLE_SHEET_ID is required")
	}
	if cfg.SheetName == "" {
		return nil, fmt.Errorf("config: SHEET_NAME is required")
	}

	sheetID := getenv("SHEET_ID")
	if sheetID == "" {
		return nil, fmt.Errorf("config: SHEET_ID is required")
	}
	cfg.SheetID, err = strconv.ParseInt(sheetID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("config: SHEET_ID %q is not numeric: %w", sheetID, err)
	}

	if v := getenv("FORMULA_COLUMNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("config: invalid FORMULA_COLUMNS %q", v)
		}
		cfg.FormulaColumns = n
	}

	cfg.Accounts, err = zipAccounts(
		getenv("EMAILS"),
		getenv("PASSWORDS"),
		getenv("ACCOUNT_IDS"),
		getenv("PDF_PASSWORDS"),
	)
	if err != nil {
		return nil, err
	}

	if v := getenv("TARGET_DATE"); v != "" {
		d, err := civil.ParseDate(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid TARGET_DATE %q: %w", v, err)
		}
		cfg.TargetDate = d
	}

	return cfg, nil
}

// zipAccounts validates the four comma-separated lists for equal length and
// combines them into Account records.
func zipAccounts(emails, passwords, accountIDs, pdfPasswords string) ([]Account, error) {
	if emails == "" {
		return nil, fmt.Errorf("config: EMAILS is required")
	}

	es := splitList(emails)
	ps := splitList(passwords)
	ids := splitList(accountIDs)
	pps := splitList(pdfPasswords)

	if len(es) != len(ps) || len(es) != len(ids) || len(es) != len(pps) {
		return nil, fmt.Errorf(
			"config: EMAILS, PASSWORDS, ACCOUNT_IDS and PDF_PASSWORDS must have the same length (got %d/%d/%d/%d)",
			len(es), len(ps), len(ids), len(pps))
	}

	accounts := make([]Account, len(es))
	for i := range es {
		if es[i] == "" || ps[i] == "" || ids[i] == "" {
			return nil, fmt.Errorf("config: account %d has an empty field", i)
		}
		accounts[i] = Account{
			Email:       es[i],
			Password:    ps[i],
			AccountID:   ids[i],
			PDFPassword: pps[i],
		}
	}
	return accounts, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
