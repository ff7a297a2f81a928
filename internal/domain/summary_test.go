package domain

import "testing"

func TestFindAccount(t *testing.T) {
	summary := &DailySummary{
		IndividualAccount: []AccountFinancials{
			{Account: "trader_one_gmail_com_ACC1_note_decrypted", PayinPayoutObligation: 100.5},
			{Account: "ACC2", NetBrokerage: 2.3},
		},
	}

	tests := []struct {
		name      string
		id        string
		wantFound bool
		wantPayin float64
	}{
		{
			name:      "substring match on filename-derived name",
			id:        "ACC1",
			wantFound: true,
			wantPayin: 100.5,
		},
		{
			name:      "exact match",
			id:        "ACC2",
			wantFound: true,
		},
		{
			name:      "unknown account",
			id:        "ACC3",
			wantFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, found := summary.FindAccount(tt.id)
			if found != tt.wantFound {
				t.Fatalf("expected found=%v, got %v", tt.wantFound, found)
			}
			if found && entry.PayinPayoutObligation != tt.wantPayin {
				t.Errorf("expected payin %v, got %v", tt.wantPayin, entry.PayinPayoutObligation)
			}
		})
	}
}

func TestEmpty(t *testing.T) {
	if !(&DailySummary{}).Empty() {
		t.Error("summary with no entries must be empty")
	}
	s := &DailySummary{IndividualAccount: []AccountFinancials{{Account: "ACC1"}}}
	if s.Empty() {
		t.Error("summary with entries must not be empty")
	}
}
