package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"bookingsync_backend/internal/channelmap"
	"bookingsync_backend/internal/events"
	"bookingsync_backend/internal/ingest/domain"
	"bookingsync_backend/internal/ingest/parse"
	"bookingsync_backend/internal/ingest/repository"
	"bookingsync_backend/platform/apperr"
	platformevents "bookingsync_backend/platform/events"
	"bookingsync_backend/platform/logger"
)

// fakeStore is an in-memory Store. It mirrors the Postgres schema's cascade:
// deleting a booking removes its events and addon lines.
type fakeStore struct {
	mu       sync.Mutex
	messages map[string]domain.RawMessage // keyed by external id
	bookings map[string]domain.Booking    // keyed by booking uuid
	bkevents []domain.BookingEvent
	addons   map[string][]domain.AddonLine // keyed by booking uuid
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		messages: make(map[string]domain.RawMessage),
		bookings: make(map[string]domain.Booking),
		addons:   make(map[string][]domain.AddonLine),
	}
}

func (f *fakeStore) Pool() repository.Querier { return nil }

func (f *fakeStore) WithTx(ctx context.Context, fn func(q repository.Querier) error) error {
	return fn(nil)
}

func (f *fakeStore) Ping(ctx context.Context) error { return nil }

func (f *fakeStore) UpsertMessage(ctx context.Context, q repository.Querier, m domain.RawMessage) (domain.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if prev, ok := f.messages[m.ExternalMessageID]; ok {
		m.ID = prev.ID
		m.Status = prev.Status
		m.FailureReason = prev.FailureReason
		m.ProcessedAt = prev.ProcessedAt
	} else {
		m.ID = uuid.New()
		m.Status = domain.MessageStatusPending
	}
	f.messages[m.ExternalMessageID] = m
	return m, nil
}

func (f *fakeStore) SetMessageStatus(ctx context.Context, q repository.Querier, id string, status domain.MessageStatus, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ext, m := range f.messages {
		if m.ID.String() != id {
			continue
		}
		m.Status = status
		m.FailureReason = reason
		switch status {
		case domain.MessageStatusProcessed, domain.MessageStatusIgnored, domain.MessageStatusFailed:
			now := time.Now().UTC()
			m.ProcessedAt = &now
		}
		f.messages[ext] = m
		return nil
	}
	return apperr.NotFound("message not found")
}

func (f *fakeStore) GetMessageByExternalID(ctx context.Context, q repository.Querier, externalID string) (domain.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.messages[externalID]; ok {
		return m, nil
	}
	return domain.RawMessage{}, apperr.NotFound("message not found")
}

func (f *fakeStore) GetMessageByID(ctx context.Context, q repository.Querier, id string) (domain.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.messages {
		if m.ID.String() == id {
			return m, nil
		}
	}
	return domain.RawMessage{}, apperr.NotFound("message not found")
}

func (f *fakeStore) ListMessages(ctx context.Context, q repository.Querier, status domain.MessageStatus, limit, offset int) ([]domain.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.RawMessage
	for _, m := range f.messages {
		if status == "" || m.Status == status {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReceivedAt.After(out[j].ReceivedAt) })
	return out, nil
}

func (f *fakeStore) ListMessageIDsByStatus(ctx context.Context, q repository.Querier, statuses []domain.MessageStatus, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	want := make(map[domain.MessageStatus]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	var msgs []domain.RawMessage
	for _, m := range f.messages {
		if want[m.Status] {
			msgs = append(msgs, m)
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ReceivedAt.Before(msgs[j].ReceivedAt) })
	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ExternalMessageID)
	}
	return ids, nil
}

func (f *fakeStore) FindBookingByKey(ctx context.Context, q repository.Querier, platform domain.Platform, platformBookingID string) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.Platform == platform && b.PlatformBookingID == platformBookingID {
			return b, nil
		}
	}
	return domain.Booking{}, apperr.NotFound("booking not found")
}

func (f *fakeStore) GetBookingByID(ctx context.Context, q repository.Querier, id string) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.bookings[id]; ok {
		return b, nil
	}
	return domain.Booking{}, apperr.NotFound("booking not found")
}

func (f *fakeStore) FindCrossRefCandidates(ctx context.Context, q repository.Querier, platform domain.Platform, from, to time.Time) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Booking
	for _, b := range f.bookings {
		if b.Platform != platform || b.Status == domain.StatusCancelled || b.ExperienceDate == nil {
			continue
		}
		if b.ExperienceDate.Before(from) || b.ExperienceDate.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeStore) InsertBooking(ctx context.Context, q repository.Querier, b domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookings[b.ID.String()] = b
	return nil
}

func (f *fakeStore) UpdateBooking(ctx context.Context, q repository.Querier, b domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.bookings[b.ID.String()]; !ok {
		return apperr.NotFound("booking not found")
	}
	f.bookings[b.ID.String()] = b
	return nil
}

func (f *fakeStore) DeleteBooking(ctx context.Context, q repository.Querier, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.bookings, id)
	delete(f.addons, id)
	kept := f.bkevents[:0]
	for _, e := range f.bkevents {
		if e.BookingID.String() != id {
			kept = append(kept, e)
		}
	}
	f.bkevents = kept
	return nil
}

func (f *fakeStore) ListBookings(ctx context.Context, q repository.Querier, platform domain.Platform, status domain.BookingStatus, limit, offset int) ([]domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Booking
	for _, b := range f.bookings {
		if platform != "" && b.Platform != platform {
			continue
		}
		if status != "" && b.Status != status {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeStore) InsertBookingEvent(ctx context.Context, q repository.Querier, e domain.BookingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bkevents = append(f.bkevents, e)
	return nil
}

func (f *fakeStore) ListEventsForBooking(ctx context.Context, q repository.Querier, bookingID string) ([]domain.BookingEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.BookingEvent
	for _, e := range f.bkevents {
		if e.BookingID.String() == bookingID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

func (f *fakeStore) FindEventsByMessage(ctx context.Context, q repository.Querier, rawMessageID string) ([]domain.BookingEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.BookingEvent
	for _, e := range f.bkevents {
		if e.RawMessageID.String() == rawMessageID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteEventsByMessage(ctx context.Context, q repository.Querier, rawMessageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.bkevents[:0]
	for _, e := range f.bkevents {
		if e.RawMessageID.String() != rawMessageID {
			kept = append(kept, e)
		}
	}
	f.bkevents = kept
	return nil
}

func (f *fakeStore) CountEventsForBooking(ctx context.Context, q repository.Querier, bookingID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.bkevents {
		if e.BookingID.String() == bookingID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) ListMessageTimelineForBooking(ctx context.Context, q repository.Querier, bookingID string) ([]repository.MessageTimelineEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var entries []repository.MessageTimelineEntry
	for _, e := range f.bkevents {
		if e.BookingID.String() != bookingID || seen[e.RawMessageID] {
			continue
		}
		seen[e.RawMessageID] = true
		for _, m := range f.messages {
			if m.ID == e.RawMessageID {
				entries = append(entries, repository.MessageTimelineEntry{
					ExternalMessageID: m.ExternalMessageID,
					ReceivedAt:        m.ReceivedAt,
				})
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ReceivedAt.Before(entries[j].ReceivedAt) })
	return entries, nil
}

func (f *fakeStore) ReplaceAddons(ctx context.Context, q repository.Querier, bookingID, eventID uuid.UUID, addons []domain.AddonLine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addons[bookingID.String()] = append([]domain.AddonLine(nil), addons...)
	return nil
}

func (f *fakeStore) ListAddons(ctx context.Context, q repository.Querier, bookingID string) ([]domain.AddonLine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.AddonLine(nil), f.addons[bookingID]...), nil
}

var _ Store = (*fakeStore)(nil)

// recordingBus captures publications synchronously.
type recordingBus struct {
	mu        sync.Mutex
	published []platformevents.Event
}

func (b *recordingBus) Publish(ctx context.Context, e platformevents.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, e)
}

func (b *recordingBus) Subscribe(eventName string, h platformevents.Handler) {}

func (b *recordingBus) named(name string) []platformevents.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []platformevents.Event
	for _, e := range b.published {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

func (b *recordingBus) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = nil
}

type staticResolver struct{}

func (staticResolver) Resolve(ctx context.Context, candidates ...string) (string, bool, error) {
	return "", false, nil
}

type noopArchiver struct{}

func (noopArchiver) ArchiveMessageBody(ctx context.Context, externalMessageID, htmlBody string) error {
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeStore, *recordingBus) {
	t.Helper()
	store := newFakeStore()
	bus := &recordingBus{}
	log := logger.New("test")
	svc := New(store, &fakeSource{}, parse.Default(log), staticResolver{}, &channelmap.Map{},
		noopArchiver{}, bus, log, Options{})
	return svc, store, bus
}

func seedEmail(t *testing.T, store *fakeStore, externalID, subject, body string, at time.Time) domain.RawMessage {
	t.Helper()
	msg, err := store.UpsertMessage(context.Background(), nil, domain.RawMessage{
		ExternalMessageID: externalID,
		Subject:           subject,
		Headers: map[string]string{
			"From": "FareHarbor <notifications@fareharbor.com>",
			"Date": at.Format(time.RFC1123Z),
		},
		TextBody:   body,
		ReceivedAt: at,
	})
	if err != nil {
		t.Fatalf("seed %s: %v", externalID, err)
	}
	return msg
}

func mustBooking(t *testing.T, store *fakeStore, platform domain.Platform, platformBookingID string) domain.Booking {
	t.Helper()
	b, err := store.FindBookingByKey(context.Background(), nil, platform, platformBookingID)
	if err != nil {
		t.Fatalf("booking %s/%s: %v", platform, platformBookingID, err)
	}
	return b
}

func TestProcessBookingEmailSecondRunIsNoOp(t *testing.T) {
	svc, store, bus := newTestService(t)
	ctx := context.Background()
	at := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	seedEmail(t, store, "m-1", "New booking confirmed: Booking #500",
		"Name: Ada Lovelace\nGuests: 4 adults\n", at)

	first, err := svc.ProcessBookingEmail(ctx, "m-1", false)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Status != domain.MessageStatusProcessed || len(first.BookingIDs) != 1 {
		t.Fatalf("first run = %+v", first)
	}
	before := mustBooking(t, store, domain.PlatformFareHarbor, "500")
	if before.PartySizeAdults != 4 || before.PartySizeTotal != 4 {
		t.Fatalf("party = %d/%d, want 4/4", before.PartySizeAdults, before.PartySizeTotal)
	}
	busBefore := len(bus.named(events.BookingReconciledName))
	eventsBefore := len(store.bkevents)

	second, err := svc.ProcessBookingEmail(ctx, "m-1", false)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Status != domain.MessageStatusProcessed {
		t.Errorf("second run status = %s", second.Status)
	}
	if len(second.BookingIDs) != 0 {
		t.Errorf("second run touched bookings: %v", second.BookingIDs)
	}

	after := mustBooking(t, store, domain.PlatformFareHarbor, "500")
	if after.PartySizeAdults != before.PartySizeAdults || after.ID != before.ID {
		t.Errorf("aggregate changed on a no-force rerun: %+v vs %+v", after, before)
	}
	if got := len(store.bkevents); got != eventsBefore {
		t.Errorf("audit rows = %d, want %d", got, eventsBefore)
	}
	if got := len(bus.named(events.BookingReconciledName)); got != busBefore {
		t.Errorf("reconciled publications = %d, want %d", got, busBefore)
	}
}

func TestReplayConvergesAcrossArrivalOrders(t *testing.T) {
	t1 := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t1.Add(2 * time.Hour)

	type email struct {
		id, subject, body string
		at                time.Time
	}
	mails := []email{
		{"m-1", "New booking confirmed: Booking #500", "Name: Ada Lovelace\nGuests: 4 adults\n", t1},
		{"m-2", "Booking #500 cancelled", "Name: Ada Lovelace\n", t2},
		{"m-3", "Booking #500 amended", "Email: ada@example.com\n", t3},
	}

	perms := [][]int{
		{0, 1, 2}, {0, 2, 1},
		{1, 0, 2}, {1, 2, 0},
		{2, 0, 1}, {2, 1, 0},
	}

	run := func(order []int) domain.Booking {
		svc, store, _ := newTestService(t)
		ctx := context.Background()
		for _, m := range mails {
			seedEmail(t, store, m.id, m.subject, m.body, m.at)
		}
		for _, i := range order {
			if _, err := svc.ProcessBookingEmail(ctx, mails[i].id, false); err != nil {
				t.Fatalf("order %v, message %s: %v", order, mails[i].id, err)
			}
		}
		return mustBooking(t, store, domain.PlatformFareHarbor, "500")
	}

	want := run(perms[0])
	if want.Status != domain.StatusAmended {
		t.Fatalf("baseline status = %s, want %s", want.Status, domain.StatusAmended)
	}
	if !want.StatusChangedAt.Equal(t3) {
		t.Fatalf("baseline status changed at %s, want %s", want.StatusChangedAt, t3)
	}
	if want.CancelledAt == nil || !want.CancelledAt.Equal(t2) {
		t.Fatalf("baseline cancelledAt = %v, want %s", want.CancelledAt, t2)
	}

	for _, order := range perms[1:] {
		got := run(order)
		if got.Status != want.Status ||
			!got.StatusChangedAt.Equal(want.StatusChangedAt) ||
			got.GuestName != want.GuestName ||
			got.GuestEmail != want.GuestEmail ||
			got.PartySizeAdults != want.PartySizeAdults ||
			got.PartySizeTotal != want.PartySizeTotal {
			t.Errorf("order %v diverged:\n got %+v\nwant %+v", order, got, want)
		}
		switch {
		case (got.CancelledAt == nil) != (want.CancelledAt == nil):
			t.Errorf("order %v cancelledAt = %v, want %v", order, got.CancelledAt, want.CancelledAt)
		case got.CancelledAt != nil && !got.CancelledAt.Equal(*want.CancelledAt):
			t.Errorf("order %v cancelledAt = %v, want %v", order, got.CancelledAt, want.CancelledAt)
		}
	}
}

func TestRebookingMovesBothBookings(t *testing.T) {
	svc, store, bus := newTestService(t)
	ctx := context.Background()
	t1 := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	seedEmail(t, store, "m-1", "New booking confirmed: Booking #1001",
		"Name: Grace Hopper\nGuests: 3 adults\n", t1)
	seedEmail(t, store, "m-2", "Booking #1001 rebooked to #1002",
		"Name: Grace Hopper\nGuests: 3 adults\nDate: 2026-06-20 at 5:00 PM\n", t2)

	if _, err := svc.ProcessBookingEmail(ctx, "m-1", false); err != nil {
		t.Fatalf("confirmation: %v", err)
	}
	bus.reset()

	res, err := svc.ProcessBookingEmail(ctx, "m-2", false)
	if err != nil {
		t.Fatalf("rebooking: %v", err)
	}
	if len(res.BookingIDs) != 2 {
		t.Fatalf("touched %d bookings, want 2", len(res.BookingIDs))
	}

	orig := mustBooking(t, store, domain.PlatformFareHarbor, "1001")
	if orig.Status != domain.StatusRebooked {
		t.Errorf("original status = %s, want %s", orig.Status, domain.StatusRebooked)
	}
	repl := mustBooking(t, store, domain.PlatformFareHarbor, "1002")
	if repl.Status != domain.StatusConfirmed {
		t.Errorf("replacement status = %s, want %s", repl.Status, domain.StatusConfirmed)
	}
	if repl.PartySizeAdults != 3 {
		t.Errorf("replacement adults = %d, want 3", repl.PartySizeAdults)
	}

	if got := len(bus.named(events.BookingReconciledName)); got != 2 {
		t.Errorf("reconciled publications = %d, want one per booking", got)
	}
}

func TestForceReprocessDoesNotReapplyDeltas(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	t1 := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	seedEmail(t, store, "m-1", "New booking confirmed: Booking #600",
		"Name: Ada Lovelace\nGuests: 4 adults\n", t1)
	seedEmail(t, store, "m-2", "Booking #600 amended",
		"Party size change: +2 adults\n", t2)

	if _, err := svc.ProcessBookingEmail(ctx, "m-1", false); err != nil {
		t.Fatalf("confirmation: %v", err)
	}
	if _, err := svc.ProcessBookingEmail(ctx, "m-2", false); err != nil {
		t.Fatalf("amendment: %v", err)
	}
	if b := mustBooking(t, store, domain.PlatformFareHarbor, "600"); b.PartySizeAdults != 6 {
		t.Fatalf("adults after amendment = %d, want 6", b.PartySizeAdults)
	}

	res, err := svc.ProcessBookingEmail(ctx, "m-2", true)
	if err != nil {
		t.Fatalf("force reprocess: %v", err)
	}
	if !res.Rebuilt {
		t.Error("force reprocess of a processed message should replay the timeline")
	}

	b := mustBooking(t, store, domain.PlatformFareHarbor, "600")
	if b.PartySizeAdults != 6 {
		t.Errorf("adults after force reprocess = %d, want 6", b.PartySizeAdults)
	}
	if b.PartySizeTotal != 6 {
		t.Errorf("total after force reprocess = %d, want 6", b.PartySizeTotal)
	}
	if n, _ := store.CountEventsForBooking(ctx, nil, b.ID.String()); n != 2 {
		t.Errorf("audit rows = %d, want 2", n)
	}
}

func TestForceReprocessRebookingRebuildsBothBookings(t *testing.T) {
	svc, store, bus := newTestService(t)
	ctx := context.Background()
	t1 := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	seedEmail(t, store, "m-1", "New booking confirmed: Booking #1001",
		"Name: Grace Hopper\nGuests: 3 adults\n", t1)
	seedEmail(t, store, "m-2", "Booking #1001 rebooked to #1002",
		"Name: Grace Hopper\nGuests: 3 adults\n", t2)

	if _, err := svc.ProcessBookingEmail(ctx, "m-1", false); err != nil {
		t.Fatalf("confirmation: %v", err)
	}
	if _, err := svc.ProcessBookingEmail(ctx, "m-2", false); err != nil {
		t.Fatalf("rebooking: %v", err)
	}
	bus.reset()

	res, err := svc.ProcessBookingEmail(ctx, "m-2", true)
	if err != nil {
		t.Fatalf("force reprocess: %v", err)
	}
	if !res.Rebuilt {
		t.Error("expected a timeline rebuild")
	}
	if len(res.BookingIDs) != 2 {
		t.Fatalf("rebuilt %d bookings, want 2", len(res.BookingIDs))
	}

	orig := mustBooking(t, store, domain.PlatformFareHarbor, "1001")
	if orig.Status != domain.StatusRebooked {
		t.Errorf("original status = %s, want %s", orig.Status, domain.StatusRebooked)
	}
	repl := mustBooking(t, store, domain.PlatformFareHarbor, "1002")
	if repl.Status != domain.StatusConfirmed {
		t.Errorf("replacement status = %s, want %s", repl.Status, domain.StatusConfirmed)
	}

	if got := len(bus.named(events.BookingReconciledName)); got != 2 {
		t.Errorf("reconciled publications = %d, want one per rebuilt booking", got)
	}
}

func TestAmendmentDroppingAddonsClearsStoredLines(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	t1 := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	msg1 := seedEmail(t, store, "m-1", "New booking confirmed: Booking #700", "", t1)
	msg2 := seedEmail(t, store, "m-2", "Booking #700 amended", "", t2)

	created := &domain.ParsedBookingEvent{
		Platform:          domain.PlatformFareHarbor,
		PlatformBookingID: "700",
		Type:              domain.EventCreated,
		Status:            domain.StatusConfirmed,
		OccurredAt:        t1,
		SourceReceivedAt:  t1,
		Addons:            []domain.AddonLine{{Name: "Drink package", Quantity: 4}},
	}
	created.Patch.AddonName = domain.Value("Drink package")
	created.Patch.AddonQuantity = domain.Value(4)
	created.Patch.AddonPerGuest = domain.Value(true)

	if _, err := svc.reconcileMessage(ctx, msg1, created, false); err != nil {
		t.Fatalf("created: %v", err)
	}
	b := mustBooking(t, store, domain.PlatformFareHarbor, "700")
	if lines, _ := store.ListAddons(ctx, nil, b.ID.String()); len(lines) != 1 {
		t.Fatalf("addon lines after creation = %d, want 1", len(lines))
	}

	amended := &domain.ParsedBookingEvent{
		Platform:          domain.PlatformFareHarbor,
		PlatformBookingID: "700",
		Type:              domain.EventAmended,
		Status:            domain.StatusAmended,
		OccurredAt:        t2,
		SourceReceivedAt:  t2,
	}
	amended.Patch.AddonName = domain.Null[string]()
	amended.Patch.AddonQuantity = domain.Value(0)

	if _, err := svc.reconcileMessage(ctx, msg2, amended, false); err != nil {
		t.Fatalf("amended: %v", err)
	}

	b = mustBooking(t, store, domain.PlatformFareHarbor, "700")
	if b.AddonQuantity != 0 || b.AddonName != "" {
		t.Errorf("aggregate addon = %q x%d, want cleared", b.AddonName, b.AddonQuantity)
	}
	if lines, _ := store.ListAddons(ctx, nil, b.ID.String()); len(lines) != 0 {
		t.Errorf("addon lines after clearing amendment = %d, want 0", len(lines))
	}
}
