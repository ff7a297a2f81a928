package domain

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// AccountFinancials holds the three figures extracted from one account's
// contract note. Field names follow the daily_summary.json artifact.
type AccountFinancials struct {
	Account               string  `json:"account"`
	PayinPayoutObligation float64 `json:"payin_payout_obligation"`
	FinalNet              float64 `json:"final_net"`
	NetBrokerage          float64 `json:"net_brokerage"`
}

// DailySummary is the per-date aggregate produced by the extraction step and
// consumed exactly once by the ledger append.
type DailySummary struct {
	IndividualAccount []AccountFinancials `json:"individual_account"`
	Total             AccountFinancials   `json:"total"`
}

// Empty reports whether the summary carries no account entries. An empty
// summary must never reach the ledger.
func (s *DailySummary) Empty() bool {
	return len(s.IndividualAccount) == 0
}

// FindAccount returns the entry matching the given account identifier, by
// exact match or substring containment of the id in the extracted account
// name. The extracted name is derived from the attachment filename, so the
// configured id normally appears somewhere inside it.
func (s *DailySummary) FindAccount(id string) (AccountFinancials, bool) {
	for _, a := range s.IndividualAccount {
		if a.Account == id || strings.Contains(a.Account, id) {
			return a, true
		}
	}
	return AccountFinancials{}, false
}

// SaveSummary writes the summary artifact as indented JSON.
func SaveSummary(path string, s *DailySummary) error {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("domain: encoding summary: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("domain: writing summary %q: %w", path, err)
	}
	return nil
}

// LoadSummary reads a summary artifact written by SaveSummary or by the
// standalone parse-reports tool.
func LoadSummary(path string) (*DailySummary, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("domain: reading summary %q: %w", path, err)
	}
	var s DailySummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("domain: parsing summary %q: %w", path, err)
	}
	return &s, nil
}
