// Package alias provides the product alias resolver: a cached, TTL-bounded
// lookup that maps free-text product labels to canonical product ids, with a
// pending-alias fallback for operator curation.
package alias

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MatchType is how an alias label is compared against a candidate.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchContains MatchType = "contains"
	MatchRegex    MatchType = "regex"
)

// ProductAlias is one label → product mapping row.
type ProductAlias struct {
	ID              int64
	Label           string
	NormalizedLabel string
	ProductID       *uuid.UUID
	MatchType       MatchType
	Priority        int
	IsActive        bool
	HitCount        int64
	LastSeenAt      *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Repository provides data access for product aliases.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new alias repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const aliasColumns = `id, label, normalized_label, product_id, match_type, priority, is_active, hit_count, last_seen_at, created_at, updated_at`

// ListActive returns the active aliases in evaluation order: ascending
// priority, then id. The first alias in this order that matches wins.
func (r *Repository) ListActive(ctx context.Context) ([]ProductAlias, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+aliasColumns+`
		FROM product_aliases
		WHERE is_active = true
		ORDER BY priority ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAliases(rows)
}

// List returns all aliases for the curation API, pending ones included.
func (r *Repository) List(ctx context.Context, limit int) ([]ProductAlias, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+aliasColumns+`
		FROM product_aliases
		ORDER BY priority ASC, id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAliases(rows)
}

// RecordHit bumps the alias hit counter and last-seen timestamp.
func (r *Repository) RecordHit(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE product_aliases
		SET hit_count = hit_count + 1, last_seen_at = now(), updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

// UpsertPending records an unmatched label for later curation. Idempotent:
// at most one pending alias exists per distinct normalized label.
func (r *Repository) UpsertPending(ctx context.Context, label, normalized string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO product_aliases (label, normalized_label, match_type, priority, is_active)
		VALUES ($1, $2, 'contains', 100, false)
		ON CONFLICT (normalized_label) DO NOTHING
	`, label, normalized)
	return err
}

// Create inserts a curated alias.
func (r *Repository) Create(ctx context.Context, a ProductAlias) (ProductAlias, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO product_aliases (label, normalized_label, product_id, match_type, priority, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+aliasColumns+`
	`, a.Label, Normalize(a.Label), a.ProductID, a.MatchType, a.Priority, a.IsActive)
	return scanAlias(row)
}

// Update rebinds an alias (product, match type, priority, active flag).
func (r *Repository) Update(ctx context.Context, a ProductAlias) (ProductAlias, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE product_aliases
		SET label = $2, normalized_label = $3, product_id = $4, match_type = $5,
		    priority = $6, is_active = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+aliasColumns+`
	`, a.ID, a.Label, Normalize(a.Label), a.ProductID, a.MatchType, a.Priority, a.IsActive)
	return scanAlias(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlias(row rowScanner) (ProductAlias, error) {
	var a ProductAlias
	err := row.Scan(
		&a.ID, &a.Label, &a.NormalizedLabel, &a.ProductID, &a.MatchType,
		&a.Priority, &a.IsActive, &a.HitCount, &a.LastSeenAt, &a.CreatedAt, &a.UpdatedAt,
	)
	return a, err
}

func scanAliases(rows interface {
	rowScanner
	Next() bool
	Err() error
}) ([]ProductAlias, error) {
	var aliases []ProductAlias
	for rows.Next() {
		a, err := scanAlias(rows)
		if err != nil {
			return nil, err
		}
		aliases = append(aliases, a)
	}
	return aliases, rows.Err()
}
