package mailfetch

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
)

func TestSubject(t *testing.T) {
	d := civil.Date{Year: 2024, Month: time.June, Day: 5}

	got := Subject("ACC1", d)
	want := "Combined Contract Note for ACC1 05-06-2024"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestAttachmentFileName(t *testing.T) {
	got := attachmentFileName("trader.one@gmail.com", "ACC1_CombinedContractNote.pdf")
	want := "trader_one_gmail_com_ACC1_CombinedContractNote.pdf"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
