package mail

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	imap "github.com/BrianLeishman/go-imap"
	"golang.org/x/time/rate"

	"bookingsync_backend/platform/logger"
)

// IMAPConfig is the subset of application config the IMAP source needs.
type IMAPConfig interface {
	GetIMAPHost() string
	GetIMAPPort() int
	GetIMAPUsername() string
	GetIMAPPassword() string
	GetIMAPFolder() string
	GetIMAPFetchPerSecond() float64
}

// IMAPSource reads a single folder over IMAP. The connection is dialed
// lazily on first use and reused; fetches are rate limited so a backfill
// does not trip provider throttling.
type IMAPSource struct {
	cfg     IMAPConfig
	log     *logger.Logger
	limiter *rate.Limiter

	mu     sync.Mutex
	dialer *imap.Dialer
}

// NewIMAPSource creates an IMAP-backed Source.
func NewIMAPSource(cfg IMAPConfig, log *logger.Logger) *IMAPSource {
	perSec := cfg.GetIMAPFetchPerSecond()
	if perSec <= 0 {
		perSec = 5
	}
	return &IMAPSource{
		cfg:     cfg,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(perSec), 1),
	}
}

// conn returns the shared dialer, connecting and selecting the folder on
// first use. Callers must hold s.mu.
func (s *IMAPSource) conn() (*imap.Dialer, error) {
	if s.dialer != nil {
		return s.dialer, nil
	}

	d, err := imap.New(s.cfg.GetIMAPUsername(), s.cfg.GetIMAPPassword(), s.cfg.GetIMAPHost(), s.cfg.GetIMAPPort())
	if err != nil {
		return nil, fmt.Errorf("imap connect: %w", err)
	}

	folder := s.cfg.GetIMAPFolder()
	if folder == "" {
		folder = "INBOX"
	}
	if err := d.SelectFolder(folder); err != nil {
		d.Close()
		return nil, fmt.Errorf("imap select %s: %w", folder, err)
	}

	s.dialer = d
	return d, nil
}

// reset drops the cached connection after a transport error so the next call
// redials. Callers must hold s.mu.
func (s *IMAPSource) reset() {
	if s.dialer != nil {
		s.dialer.Close()
		s.dialer = nil
	}
}

// List enumerates the folder newest first. IMAP reports the full matching UID
// set up front, so the size estimate is exact and pagination is an offset
// into that set.
func (s *IMAPSource) List(ctx context.Context, q ListQuery) (MessagePage, error) {
	if err := ctx.Err(); err != nil {
		return MessagePage{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.conn()
	if err != nil {
		return MessagePage{}, err
	}

	uids, err := d.GetUIDs(searchCriteria(q))
	if err != nil {
		s.reset()
		return MessagePage{}, fmt.Errorf("imap search: %w", err)
	}

	// Newest first: IMAP returns ascending UIDs and UID order tracks arrival
	// order within a folder.
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}

	offset := 0
	if q.PageToken != "" {
		offset, err = strconv.Atoi(q.PageToken)
		if err != nil || offset < 0 {
			return MessagePage{}, fmt.Errorf("imap list: bad page token %q", q.PageToken)
		}
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	page := MessagePage{
		TotalSizeEstimate: len(uids),
		EstimateExact:     true,
	}
	if offset >= len(uids) {
		return page, nil
	}

	end := offset + pageSize
	if end > len(uids) {
		end = len(uids)
	}

	for _, uid := range uids[offset:end] {
		if err := s.limiter.Wait(ctx); err != nil {
			return MessagePage{}, err
		}
		emails, err := d.GetOverviews(uid)
		if err != nil {
			s.reset()
			return MessagePage{}, fmt.Errorf("imap overview uid %d: %w", uid, err)
		}
		e, ok := emails[uid]
		if !ok {
			continue
		}
		page.Messages = append(page.Messages, MessageRef{
			ExternalID: strconv.Itoa(uid),
			ReceivedAt: receivedAt(e),
		})
	}

	if end < len(uids) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

// Get fetches one message by UID.
func (s *IMAPSource) Get(ctx context.Context, externalID string) (Payload, error) {
	uid, err := strconv.Atoi(externalID)
	if err != nil {
		return Payload{}, fmt.Errorf("imap get: bad message id %q: %w", externalID, err)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return Payload{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.conn()
	if err != nil {
		return Payload{}, err
	}

	emails, err := d.GetEmails(uid)
	if err != nil {
		s.reset()
		return Payload{}, fmt.Errorf("imap fetch uid %d: %w", uid, err)
	}
	e, ok := emails[uid]
	if !ok {
		return Payload{}, ErrMessageNotFound
	}

	return Payload{
		ExternalID: externalID,
		ThreadID:   e.MessageID,
		Subject:    e.Subject,
		Snippet:    snippet(e.Text, 200),
		Headers: map[string]string{
			"From":       e.From.String(),
			"To":         e.To.String(),
			"Date":       e.Sent.Format(time.RFC1123Z),
			"Message-ID": e.MessageID,
		},
		TextBody:   e.Text,
		HTMLBody:   e.HTML,
		ReceivedAt: receivedAt(e),
	}, nil
}

// searchCriteria translates the query bounds to an IMAP SEARCH string. IMAP
// date searches have day granularity; exact bounds are re-checked downstream.
func searchCriteria(q ListQuery) string {
	var parts []string
	if !q.After.IsZero() {
		parts = append(parts, "SINCE \""+q.After.Format("2-Jan-2006")+"\"")
	}
	if !q.Before.IsZero() {
		parts = append(parts, "BEFORE \""+q.Before.AddDate(0, 0, 1).Format("2-Jan-2006")+"\"")
	}
	if len(parts) == 0 {
		return "ALL"
	}
	return strings.Join(parts, " ")
}

func receivedAt(e *imap.Email) time.Time {
	if !e.Received.IsZero() {
		return e.Received
	}
	return e.Sent
}

func snippet(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max]
}
