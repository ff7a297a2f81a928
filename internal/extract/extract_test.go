package extract

import (
	"errors"
	"testing"
)

const sampleReport = `
Settlement Summary
NSE FNO - F 12.00 13.50 0.00 1.25 0.10 0.05 -120.75 345.60 2.00 4.35 0.55
Other segment lines follow
`

func TestParseFigures(t *testing.T) {
	figures, err := ParseFigures(sampleReport)
	if err != nil {
		t.Fatalf("ParseFigures failed: %v", err)
	}

	if got := figures.PayinPayoutObligation.String(); got != "345.6" {
		t.Errorf("payin: expected 345.6, got %s", got)
	}
	if got := figures.FinalNet.String(); got != "-120.75" {
		t.Errorf("final net: expected -120.75, got %s", got)
	}
	if got := figures.NetBrokerage.String(); got != "4.35" {
		t.Errorf("brokerage: expected 4.35, got %s", got)
	}
}

func TestParseFigures_PlainSegmentName(t *testing.T) {
	text := "NSE FNO 1.00 2.00 3.00 4.00 5.00 6.00 7.00 8.00 9.00 10.00 11.00"

	figures, err := ParseFigures(text)
	if err != nil {
		t.Fatalf("ParseFigures failed: %v", err)
	}
	if got := figures.PayinPayoutObligation.String(); got != "8" {
		t.Errorf("payin: expected 8, got %s", got)
	}
}

func TestParseFigures_Mismatch(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty text", ""},
		{"different segment", "BSE EQ 1.00 2.00 3.00 4.00 5.00 6.00 7.00 8.00 9.00 10.00 11.00"},
		{"too few columns", "NSE FNO 1.00 2.00 3.00"},
		{"integers instead of decimals", "NSE FNO 1 2 3 4 5 6 7 8 9 10 11"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFigures(tt.text); !errors.Is(err, ErrPatternMismatch) {
				t.Errorf("expected ErrPatternMismatch, got %v", err)
			}
		})
	}
}
