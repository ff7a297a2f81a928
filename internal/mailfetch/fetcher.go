// Package mailfetch pulls contract note attachments for one date out of a
// Gmail inbox over IMAP.
package mailfetch

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"github.com/dvloznov/tradebook-sync/internal/config"
	"github.com/dvloznov/tradebook-sync/internal/logger"
)

const gmailIMAPAddr = "imap.gmail.com:993"

// Fetcher retrieves report attachments over IMAP. Accounts are fetched one
// at a time: each owns an exclusive session that must not be shared.
type Fetcher struct {
	addr string
}

// New returns a fetcher for Gmail.
func New() *Fetcher {
	return &Fetcher{addr: gmailIMAPAddr}
}

// Subject builds the exact subject line the broker sends a contract note
// under for the given account and date.
func Subject(accountID string, d civil.Date) string {
	return fmt.Sprintf("Combined Contract Note for %s %s", accountID, d.In(time.UTC).Format("02-01-2006"))
}

// attachmentFileName prefixes the attachment name with the sanitized account
// email, so reports from different inboxes cannot collide in the working area.
func attachmentFileName(email, filename string) string {
	sanitized := strings.NewReplacer("@", "_", ".", "_").Replace(email)
	return sanitized + "_" + filename
}

// FetchReports searches account's inbox for the contract note of the target
// date and saves every PDF attachment into dir. It returns the saved paths;
// zero matches is not an error.
func (f *Fetcher) FetchReports(ctx context.Context, account config.Account, d civil.Date, dir string) ([]string, error) {
	log := logger.FromContext(ctx)

	c, err := client.DialTLS(f.addr, nil)
	if err != nil {
		return nil, fmt.Errorf("mailfetch: connecting to %s: %w", f.addr, err)
	}
	defer c.Logout()

	if deadline, ok := ctx.Deadline(); ok {
		c.Timeout = time.Until(deadline)
	}

	if err := c.Login(account.Email, account.Password); err != nil {
		return nil, fmt.Errorf("mailfetch: login %s: %w", account.Email, err)
	}

	if _, err := c.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("mailfetch: selecting inbox for %s: %w", account.Email, err)
	}

	subject := Subject(account.AccountID, d)
	criteria := imap.NewSearchCriteria()
	criteria.Since = d.In(time.UTC)
	criteria.Header.Add("Subject", subject)

	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("mailfetch: searching inbox for %s: %w", account.Email, err)
	}
	if len(ids) == 0 {
		log.Info().Str("email", account.Email).Str("subject", subject).Msg("No matching emails")
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, []imap.FetchItem{section.FetchItem()}, messages)
	}()

	var saved []string
	for msg := range messages {
		body := msg.GetBody(section)
		if body == nil {
			continue
		}
		paths, err := saveAttachments(body, account.Email, dir)
		if err != nil {
			log.Error().Err(err).Str("email", account.Email).Msg("Failed to read message attachments")
			continue
		}
		saved = append(saved, paths...)
	}

	if err := <-done; err != nil {
		return saved, fmt.Errorf("mailfetch: fetching messages for %s: %w", account.Email, err)
	}

	log.Info().Str("email", account.Email).Int("attachments", len(saved)).Msg("Fetched report attachments")
	return saved, nil
}

// saveAttachments writes every PDF attachment of one message into dir.
func saveAttachments(body io.Reader, email, dir string) ([]string, error) {
	mr, err := mail.CreateReader(body)
	if err != nil {
		return nil, fmt.Errorf("parsing message: %w", err)
	}

	var saved []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return saved, fmt.Errorf("reading message part: %w", err)
		}

		h, ok := p.Header.(*mail.AttachmentHeader)
		if !ok {
			continue
		}
		filename, err := h.Filename()
		if err != nil || !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
			continue
		}

		data, err := io.ReadAll(p.Body)
		if err != nil {
			return saved, fmt.Errorf("reading attachment %q: %w", filename, err)
		}

		path := filepath.Join(dir, attachmentFileName(email, filename))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return saved, fmt.Errorf("saving attachment %q: %w", path, err)
		}
		saved = append(saved, path)
	}
	return saved, nil
}
