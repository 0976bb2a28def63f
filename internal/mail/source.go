// Package mail abstracts the inbox the ingestion pipeline reads from. The
// production implementation speaks IMAP; tests substitute an in-memory source.
package mail

import (
	"context"
	"errors"
	"time"
)

// ErrMessageNotFound signals a permanent miss: the message id does not exist
// in the mailbox. Transient transport failures return ordinary errors.
var ErrMessageNotFound = errors.New("mail: message not found")

// MessageRef identifies one mailbox message without its content.
type MessageRef struct {
	ExternalID string
	ReceivedAt time.Time
}

// ListQuery selects a page of message references, newest first.
type ListQuery struct {
	// After/Before bound the mailbox receive time; zero means unbounded.
	After  time.Time
	Before time.Time

	PageSize  int
	PageToken string
}

// MessagePage is one page of references plus pagination state.
type MessagePage struct {
	Messages      []MessageRef
	NextPageToken string

	// TotalSizeEstimate is the source's count of matching messages. Exact
	// when the source can enumerate the match set, otherwise a guess.
	TotalSizeEstimate int
	// EstimateExact reports whether TotalSizeEstimate is exact.
	EstimateExact bool
}

// Payload is the full content of one mailbox message.
type Payload struct {
	ExternalID string
	ThreadID   string
	Subject    string
	Snippet    string
	Headers    map[string]string
	TextBody   string
	HTMLBody   string
	ReceivedAt time.Time
}

// Source is the inbox abstraction. List pages newest first; Get fetches one
// message by external id and returns ErrMessageNotFound for permanent misses.
type Source interface {
	List(ctx context.Context, q ListQuery) (MessagePage, error)
	Get(ctx context.Context, externalID string) (Payload, error)
}
