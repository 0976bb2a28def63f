package alias

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"bookingsync_backend/platform/logger"
)

// store is the subset of Repository the resolver needs.
type store interface {
	ListActive(ctx context.Context) ([]ProductAlias, error)
	RecordHit(ctx context.Context, id int64) error
	UpsertPending(ctx context.Context, label, normalized string) error
}

// Resolver matches free-text product labels against the curated alias table.
// The active alias list is cached with a TTL so a reconciliation burst does
// not hammer the database; concurrent refreshes collapse via singleflight.
type Resolver struct {
	repo store
	log  *logger.Logger
	ttl  time.Duration
	now  func() time.Time

	mu        sync.RWMutex
	cached    []ProductAlias
	expiresAt time.Time

	group singleflight.Group
}

// NewResolver creates a resolver with the given cache TTL.
func NewResolver(repo *Repository, log *logger.Logger, ttl time.Duration) *Resolver {
	return newResolver(repo, log, ttl, time.Now)
}

func newResolver(repo store, log *logger.Logger, ttl time.Duration, now func() time.Time) *Resolver {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Resolver{repo: repo, log: log, ttl: ttl, now: now}
}

// Normalize lowercases a label and collapses interior whitespace. All alias
// comparisons operate on normalized text except regex, which sees the raw
// candidate.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Resolve finds the product id for the first candidate label that matches an
// active alias. Candidates are tried in the order given; within a candidate,
// aliases are tried in priority order (ascending, then id). A miss across all
// candidates records the first non-empty candidate as a pending alias and
// returns (nil, false, nil).
func (r *Resolver) Resolve(ctx context.Context, candidates ...string) (productID string, matched bool, err error) {
	aliases, err := r.active(ctx)
	if err != nil {
		return "", false, err
	}

	var firstCandidate string
	for _, cand := range candidates {
		norm := Normalize(cand)
		if norm == "" {
			continue
		}
		if firstCandidate == "" {
			firstCandidate = cand
		}
		for i := range aliases {
			a := &aliases[i]
			if a.ProductID == nil {
				continue
			}
			if r.matches(a, cand, norm) {
				if hitErr := r.repo.RecordHit(ctx, a.ID); hitErr != nil {
					r.log.Warn("alias hit count update failed", "alias_id", a.ID, "error", hitErr)
				}
				return a.ProductID.String(), true, nil
			}
		}
	}

	if firstCandidate != "" {
		if upErr := r.repo.UpsertPending(ctx, firstCandidate, Normalize(firstCandidate)); upErr != nil {
			return "", false, upErr
		}
	}
	return "", false, nil
}

func (r *Resolver) matches(a *ProductAlias, raw, normalized string) bool {
	switch a.MatchType {
	case MatchExact:
		return a.NormalizedLabel == normalized
	case MatchContains:
		return strings.Contains(normalized, a.NormalizedLabel)
	case MatchRegex:
		re, err := regexp.Compile("(?i)" + a.Label)
		if err != nil {
			r.log.Warn("alias regex does not compile, skipping", "alias_id", a.ID, "pattern", a.Label, "error", err)
			return false
		}
		return re.MatchString(raw)
	}
	return false
}

// active returns the cached alias list, refreshing it when the TTL elapsed.
func (r *Resolver) active(ctx context.Context) ([]ProductAlias, error) {
	r.mu.RLock()
	if r.now().Before(r.expiresAt) {
		cached := r.cached
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	v, err, _ := r.group.Do("aliases", func() (any, error) {
		aliases, err := r.repo.ListActive(ctx)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cached = aliases
		r.expiresAt = r.now().Add(r.ttl)
		r.mu.Unlock()
		return aliases, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]ProductAlias), nil
}

// Invalidate drops the cached alias list. Called after curation writes so the
// next resolve sees the change immediately.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	r.expiresAt = time.Time{}
	r.mu.Unlock()
}
