package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"bookingsync_backend/internal/ingest/domain"
	"bookingsync_backend/internal/mail"
	"bookingsync_backend/platform/logger"
)

// fakeSource serves a fixed newest-first message list in pages.
type fakeSource struct {
	refs     []mail.MessageRef // newest first
	pageSize int
}

func (f *fakeSource) List(ctx context.Context, q mail.ListQuery) (mail.MessagePage, error) {
	offset := 0
	if q.PageToken != "" {
		offset, _ = strconv.Atoi(q.PageToken)
	}
	size := q.PageSize
	if f.pageSize > 0 {
		size = f.pageSize
	}

	page := mail.MessagePage{TotalSizeEstimate: len(f.refs), EstimateExact: true}
	if offset >= len(f.refs) {
		return page, nil
	}
	end := offset + size
	if end > len(f.refs) {
		end = len(f.refs)
	}
	page.Messages = f.refs[offset:end]
	if end < len(f.refs) {
		page.NextPageToken = strconv.Itoa(end)
	}
	return page, nil
}

func (f *fakeSource) Get(ctx context.Context, externalID string) (mail.Payload, error) {
	return mail.Payload{}, mail.ErrMessageNotFound
}

func refsNewestFirst(base time.Time, n int) []mail.MessageRef {
	refs := make([]mail.MessageRef, n)
	for i := 0; i < n; i++ {
		refs[i] = mail.MessageRef{
			ExternalID: strconv.Itoa(n - i), // "5","4",...,"1"
			ReceivedAt: base.Add(-time.Duration(i) * time.Hour),
		}
	}
	return refs
}

func TestRunBackfillProcessesOldestFirstWithinPage(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{refs: refsNewestFirst(base, 4), pageSize: 4}

	var order []string
	proc := func(ctx context.Context, id string) (domain.MessageStatus, error) {
		order = append(order, id)
		return domain.MessageStatusProcessed, nil
	}

	prog, err := runBackfill(context.Background(), src, proc, BackfillOptions{PageSize: 4}, nil, logger.New("test"))
	if err != nil {
		t.Fatalf("runBackfill: %v", err)
	}

	want := []string{"1", "2", "3", "4"}
	if len(order) != len(want) {
		t.Fatalf("processed %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("processed %v, want %v", order, want)
		}
	}
	if prog.Processed != 4 || prog.Percent != 100 {
		t.Errorf("progress = %+v", prog)
	}
}

func TestRunBackfillStopsBelowLowerBound(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// 6 messages, one hour apart, paged in twos. The lower bound excludes the
	// oldest three; pagination must stop once a page dips below the bound.
	src := &fakeSource{refs: refsNewestFirst(base, 6), pageSize: 2}
	after := base.Add(-2*time.Hour - time.Minute)

	var calls int
	proc := func(ctx context.Context, id string) (domain.MessageStatus, error) {
		calls++
		return domain.MessageStatusProcessed, nil
	}

	prog, err := runBackfill(context.Background(), src, proc, BackfillOptions{After: after, PageSize: 2}, nil, logger.New("test"))
	if err != nil {
		t.Fatalf("runBackfill: %v", err)
	}

	if calls != 3 {
		t.Errorf("processed %d messages, want 3 inside the bound", calls)
	}
	if prog.Skipped == 0 {
		t.Error("expected at least one skipped message at the boundary page")
	}
	// The third page (oldest two messages) must never be requested.
	if prog.Page != 2 {
		t.Errorf("pages fetched = %d, want 2", prog.Page)
	}
}

func TestRunBackfillTalliesOutcomes(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{refs: refsNewestFirst(base, 3), pageSize: 3}

	proc := func(ctx context.Context, id string) (domain.MessageStatus, error) {
		switch id {
		case "1":
			return domain.MessageStatusIgnored, nil
		case "2":
			return domain.MessageStatusFailed, context.DeadlineExceeded
		default:
			return domain.MessageStatusProcessed, nil
		}
	}

	var reports []Progress
	prog, err := runBackfill(context.Background(), src, proc, BackfillOptions{PageSize: 3}, func(p Progress) {
		reports = append(reports, p)
	}, logger.New("test"))
	if err != nil {
		t.Fatalf("runBackfill: %v", err)
	}

	if prog.Processed != 1 || prog.Ignored != 1 || prog.Failed != 1 {
		t.Errorf("progress = %+v, want one of each outcome", prog)
	}
	if len(reports) != 1 || !reports[0].Exact {
		t.Errorf("onProgress reports = %+v, want one exact report", reports)
	}
}

func TestRunBackfillRespectsCancellation(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	src := &fakeSource{refs: refsNewestFirst(base, 4), pageSize: 2}

	ctx, cancel := context.WithCancel(context.Background())
	proc := func(ctx context.Context, id string) (domain.MessageStatus, error) {
		cancel() // cancel mid-page; the loop must stop before the next page
		return domain.MessageStatusProcessed, nil
	}

	_, err := runBackfill(ctx, src, proc, BackfillOptions{PageSize: 2}, nil, logger.New("test"))
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
}
