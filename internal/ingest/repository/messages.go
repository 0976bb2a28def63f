package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"bookingsync_backend/internal/ingest/domain"
	"bookingsync_backend/platform/apperr"
)

const messageColumns = `id, external_message_id, thread_id, subject, snippet, headers,
	text_body, html_body, received_at, status, failure_reason, processed_at, created_at, updated_at`

// UpsertMessage inserts the raw message or refreshes its payload fields if the
// external id already exists. Status is deliberately left untouched on
// conflict so a refetch never resets a processed or failed record; the
// returned message carries the stored status for the caller's idempotency
// check.
func (r *Repository) UpsertMessage(ctx context.Context, q Querier, m domain.RawMessage) (domain.RawMessage, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO raw_messages (external_message_id, thread_id, subject, snippet, headers,
			text_body, html_body, received_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending')
		ON CONFLICT (external_message_id) DO UPDATE SET
			thread_id = EXCLUDED.thread_id,
			subject = EXCLUDED.subject,
			snippet = EXCLUDED.snippet,
			headers = EXCLUDED.headers,
			text_body = EXCLUDED.text_body,
			html_body = EXCLUDED.html_body,
			received_at = EXCLUDED.received_at,
			updated_at = now()
		RETURNING `+messageColumns+`
	`, m.ExternalMessageID, m.ThreadID, m.Subject, m.Snippet, m.Headers,
		m.TextBody, m.HTMLBody, m.ReceivedAt)

	return scanMessage(row)
}

// SetMessageStatus records the outcome of a processing attempt. Terminal
// states also stamp processed_at.
func (r *Repository) SetMessageStatus(ctx context.Context, q Querier, id string, status domain.MessageStatus, reason string) error {
	var processedAt *time.Time
	switch status {
	case domain.MessageStatusProcessed, domain.MessageStatusIgnored, domain.MessageStatusFailed:
		now := time.Now().UTC()
		processedAt = &now
	}

	tag, err := q.Exec(ctx, `
		UPDATE raw_messages
		SET status = $2, failure_reason = $3, processed_at = COALESCE($4, processed_at), updated_at = now()
		WHERE id = $1
	`, id, status, reason, processedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("message not found")
	}
	return nil
}

// GetMessageByExternalID fetches a message by its mailbox id.
func (r *Repository) GetMessageByExternalID(ctx context.Context, q Querier, externalID string) (domain.RawMessage, error) {
	row := q.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM raw_messages
		WHERE external_message_id = $1
	`, externalID)

	m, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RawMessage{}, apperr.NotFound("message not found")
	}
	return m, err
}

// GetMessageByID fetches a message by its internal uuid.
func (r *Repository) GetMessageByID(ctx context.Context, q Querier, id string) (domain.RawMessage, error) {
	row := q.QueryRow(ctx, `
		SELECT `+messageColumns+`
		FROM raw_messages
		WHERE id = $1
	`, id)

	m, err := scanMessage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RawMessage{}, apperr.NotFound("message not found")
	}
	return m, err
}

// ListMessages returns messages newest first, optionally filtered by status.
func (r *Repository) ListMessages(ctx context.Context, q Querier, status domain.MessageStatus, limit, offset int) ([]domain.RawMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	rows, err := q.Query(ctx, `
		SELECT `+messageColumns+`
		FROM raw_messages
		WHERE ($1 = '' OR status = $1)
		ORDER BY received_at DESC
		LIMIT $2 OFFSET $3
	`, string(status), limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RawMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListMessageIDsByStatus returns external message ids for a reprocess sweep,
// oldest received first so replays approximate original order.
func (r *Repository) ListMessageIDsByStatus(ctx context.Context, q Querier, statuses []domain.MessageStatus, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 500
	}
	strs := make([]string, len(statuses))
	for i, s := range statuses {
		strs[i] = string(s)
	}

	rows, err := q.Query(ctx, `
		SELECT external_message_id
		FROM raw_messages
		WHERE status = ANY($1)
		ORDER BY received_at ASC
		LIMIT $2
	`, strs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanMessage(row pgx.Row) (domain.RawMessage, error) {
	var m domain.RawMessage
	err := row.Scan(
		&m.ID, &m.ExternalMessageID, &m.ThreadID, &m.Subject, &m.Snippet, &m.Headers,
		&m.TextBody, &m.HTMLBody, &m.ReceivedAt, &m.Status, &m.FailureReason,
		&m.ProcessedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}
