package appointments

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/internal/timeslot"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

var fixedNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newTestLedger(opts ...LedgerOption) (*Ledger, *InMemoryRepository) {
	repo := NewInMemoryRepository()
	opts = append([]LedgerOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewLedger(repo, repo, logging.Default(), opts...), repo
}

func details(name string) Details {
	return Details{Name: name, Email: "pat@example.com", Phone: "555-123-4567", Message: "first visit"}
}

type recordingNotifier struct {
	mu          sync.Mutex
	booked      []Appointment
	transitions []Status
}

func (n *recordingNotifier) AppointmentBooked(_ context.Context, appt Appointment) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.booked = append(n.booked, appt)
}

func (n *recordingNotifier) StatusChanged(_ context.Context, appt Appointment, previous Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transitions = append(n.transitions, previous, appt.Status)
}

func TestLedger_BookCreatesPending(t *testing.T) {
	notifier := &recordingNotifier{}
	ledger, _ := newTestLedger(WithNotifier(notifier))

	appt, err := ledger.Book(context.Background(), timeslot.MustDate("2024-06-03"), timeslot.MustTimeOfDay("09:30"),
		Details{Name: "  Pat Doe ", Email: " PAT@Example.com", Phone: "(555) 123-4567"})
	require.NoError(t, err)

	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, StatusPending, appt.Status)
	assert.Equal(t, "Pat Doe", appt.Name)
	assert.Equal(t, "pat@example.com", appt.Email)
	assert.Equal(t, fixedNow, appt.CreatedAt)
	require.Len(t, notifier.booked, 1)
	assert.Equal(t, appt.ID, notifier.booked[0].ID)
}

func TestLedger_BookValidation(t *testing.T) {
	ledger, _ := newTestLedger()
	date := timeslot.MustDate("2024-06-03")
	at := timeslot.MustTimeOfDay("09:00")

	cases := []struct {
		name    string
		details Details
		want    error
	}{
		{"missing name", Details{Email: "a@b.co", Phone: "5551234567"}, ErrNameRequired},
		{"missing email", Details{Name: "A", Phone: "5551234567"}, ErrEmailRequired},
		{"bad email", Details{Name: "A", Email: "not-an-email", Phone: "5551234567"}, ErrInvalidEmail},
		{"missing phone", Details{Name: "A", Email: "a@b.co"}, ErrPhoneRequired},
		{"bad phone", Details{Name: "A", Email: "a@b.co", Phone: "call me"}, ErrInvalidPhone},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ledger.Book(context.Background(), date, at, tc.details)
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, 400, apperr.HTTPStatus(err))
		})
	}

	_, err := ledger.Book(context.Background(), timeslot.Date{}, at, details("A"))
	require.ErrorIs(t, err, apperr.ErrValidation)
}

func TestLedger_DoubleBookRejected(t *testing.T) {
	ledger, _ := newTestLedger()
	date := timeslot.MustDate("2024-06-03")
	at := timeslot.MustTimeOfDay("10:00")

	_, err := ledger.Book(context.Background(), date, at, details("First"))
	require.NoError(t, err)

	_, err = ledger.Book(context.Background(), date, at, details("Second"))
	require.ErrorIs(t, err, ErrSlotTaken)
	assert.Equal(t, 409, apperr.HTTPStatus(err))
	assert.Equal(t, "this time slot is no longer available", err.Error())
}

func TestLedger_ConcurrentBookingsExactlyOneWins(t *testing.T) {
	ledger, repo := newTestLedger()
	date := timeslot.MustDate("2024-06-03")
	at := timeslot.MustTimeOfDay("11:00")

	const callers = 32
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		conflicts atomic.Int32
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := ledger.Book(context.Background(), date, at, details("Racer"))
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, ErrSlotTaken):
				conflicts.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, successes.Load())
	assert.EqualValues(t, callers-1, conflicts.Load())

	active, err := repo.ActiveOn(context.Background(), date)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestLedger_CancelledSlotCanBeRebooked(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	date := timeslot.MustDate("2024-06-03")
	at := timeslot.MustTimeOfDay("14:00")

	first, err := ledger.Book(ctx, date, at, details("First"))
	require.NoError(t, err)
	_, err = ledger.UpdateStatus(ctx, first.ID, StatusCancelled)
	require.NoError(t, err)

	second, err := ledger.Book(ctx, date, at, details("Second"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	active, err := ledger.ActiveOn(ctx, date)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)
}

func TestLedger_StatusTransitions(t *testing.T) {
	cases := []struct {
		path []Status
		ok   bool
	}{
		{[]Status{StatusConfirmed}, true},
		{[]Status{StatusCancelled}, true},
		{[]Status{StatusConfirmed, StatusCompleted}, true},
		{[]Status{StatusCompleted}, false},
		{[]Status{StatusPending}, false},
		{[]Status{StatusConfirmed, StatusCancelled}, false},
		{[]Status{StatusConfirmed, StatusPending}, false},
		{[]Status{StatusCancelled, StatusPending}, false},
		{[]Status{StatusCancelled, StatusConfirmed}, false},
		{[]Status{StatusConfirmed, StatusCompleted, StatusCancelled}, false},
	}
	for i, tc := range cases {
		ledger, _ := newTestLedger()
		ctx := context.Background()
		appt, err := ledger.Book(ctx, timeslot.MustDate("2024-06-03"), timeslot.TimeOfDay(540+i*30), details("Pat"))
		require.NoError(t, err)

		var lastErr error
		for _, next := range tc.path {
			_, lastErr = ledger.UpdateStatus(ctx, appt.ID, next)
			if lastErr != nil {
				break
			}
		}
		if tc.ok {
			require.NoError(t, lastErr, "path %v", tc.path)
			continue
		}
		require.Error(t, lastErr, "path %v", tc.path)
		assert.ErrorIs(t, lastErr, apperr.ErrInvalidTransition)
		assert.Equal(t, 409, apperr.HTTPStatus(lastErr))
	}
}

func TestLedger_UpdateStatusMessageAndNotFound(t *testing.T) {
	notifier := &recordingNotifier{}
	ledger, _ := newTestLedger(WithNotifier(notifier))
	ctx := context.Background()

	appt, err := ledger.Book(ctx, timeslot.MustDate("2024-06-03"), timeslot.MustTimeOfDay("09:00"), details("Pat"))
	require.NoError(t, err)

	_, err = ledger.UpdateStatus(ctx, appt.ID, StatusCompleted)
	require.Error(t, err)
	assert.Equal(t, "cannot change status from pending to completed", err.Error())

	updated, err := ledger.UpdateStatus(ctx, appt.ID, StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, updated.Status)
	assert.Equal(t, []Status{StatusPending, StatusConfirmed}, notifier.transitions)

	_, err = ledger.UpdateStatus(ctx, "missing", StatusConfirmed)
	require.ErrorIs(t, err, ErrAppointmentNotFound)
	assert.Equal(t, 404, apperr.HTTPStatus(err))
}

// racingRepository moves the row to a competing status the first time a
// compare-and-set is attempted, simulating a concurrent writer.
type racingRepository struct {
	*InMemoryRepository
	competing Status
	raced     bool
}

func (r *racingRepository) CompareAndSetStatus(ctx context.Context, id string, from, to Status, updatedAt time.Time) (*Appointment, error) {
	if !r.raced {
		r.raced = true
		if _, err := r.InMemoryRepository.CompareAndSetStatus(ctx, id, from, r.competing, updatedAt); err != nil {
			return nil, err
		}
	}
	return r.InMemoryRepository.CompareAndSetStatus(ctx, id, from, to, updatedAt)
}

func TestLedger_UpdateStatusRevalidatesAfterLostRace(t *testing.T) {
	ctx := context.Background()

	t.Run("competing change makes request invalid", func(t *testing.T) {
		inner := NewInMemoryRepository()
		repo := &racingRepository{InMemoryRepository: inner, competing: StatusCancelled}
		ledger := NewLedger(repo, inner, logging.Default())

		appt, err := ledger.Book(ctx, timeslot.MustDate("2024-06-03"), timeslot.MustTimeOfDay("09:00"), details("Pat"))
		require.NoError(t, err)

		_, err = ledger.UpdateStatus(ctx, appt.ID, StatusConfirmed)
		require.ErrorIs(t, err, apperr.ErrInvalidTransition)
		assert.Equal(t, "cannot change status from cancelled to confirmed", err.Error())

		got, err := ledger.Get(ctx, appt.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, got.Status)
	})

	t.Run("competing change still allows request", func(t *testing.T) {
		inner := NewInMemoryRepository()
		repo := &racingRepository{InMemoryRepository: inner, competing: StatusConfirmed}
		ledger := NewLedger(repo, inner, logging.Default())

		appt, err := ledger.Book(ctx, timeslot.MustDate("2024-06-03"), timeslot.MustTimeOfDay("09:00"), details("Pat"))
		require.NoError(t, err)
		_, err = ledger.UpdateStatus(ctx, appt.ID, StatusConfirmed)
		require.ErrorIs(t, err, apperr.ErrInvalidTransition)

		done, err := ledger.UpdateStatus(ctx, appt.ID, StatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, done.Status)
	})
}

func TestLedger_ConcurrentTransitionsSingleWinner(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()
	appt, err := ledger.Book(ctx, timeslot.MustDate("2024-06-03"), timeslot.MustTimeOfDay("09:00"), details("Pat"))
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		confirms atomic.Int32
		cancels  atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		next := StatusConfirmed
		counter := &confirms
		if i%2 == 1 {
			next, counter = StatusCancelled, &cancels
		}
		go func() {
			defer wg.Done()
			if _, err := ledger.UpdateStatus(ctx, appt.ID, next); err == nil {
				counter.Add(1)
			}
		}()
	}
	wg.Wait()

	// Exactly one of the two exits from pending can ever win.
	assert.EqualValues(t, 1, confirms.Load()+cancels.Load())
}

func TestLedger_QueryAndStats(t *testing.T) {
	ledger, _ := newTestLedger()
	ctx := context.Background()

	book := func(date, at, name string) *Appointment {
		t.Helper()
		d := details(name)
		d.Email = name + "@example.com"
		appt, err := ledger.Book(ctx, timeslot.MustDate(date), timeslot.MustTimeOfDay(at), d)
		require.NoError(t, err)
		return appt
	}

	a := book("2024-06-04", "09:00", "alice")
	b := book("2024-06-03", "15:00", "bob")
	c := book("2024-06-03", "09:00", "carol")
	book("2024-06-05", "09:00", "dave")

	_, err := ledger.UpdateStatus(ctx, a.ID, StatusConfirmed)
	require.NoError(t, err)
	_, err = ledger.UpdateStatus(ctx, b.ID, StatusCancelled)
	require.NoError(t, err)

	res, err := ledger.Query(ctx, Filter{}, PageRequest{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	require.Len(t, res.Appointments, 2)
	assert.Equal(t, c.ID, res.Appointments[0].ID)
	assert.Equal(t, b.ID, res.Appointments[1].ID)

	res, err = ledger.Query(ctx, Filter{}, PageRequest{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, res.Appointments, 2)
	assert.Equal(t, a.ID, res.Appointments[0].ID)

	res, err = ledger.Query(ctx, Filter{}, PageRequest{Page: 9, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, res.Appointments)
	assert.Equal(t, 4, res.Total)

	res, err = ledger.Query(ctx, Filter{Search: "ALI"}, PageRequest{})
	require.NoError(t, err)
	require.Len(t, res.Appointments, 1)
	assert.Equal(t, a.ID, res.Appointments[0].ID)
	assert.Equal(t, DefaultPageSize, res.Page.PageSize)

	res, err = ledger.Query(ctx, Filter{Statuses: []Status{StatusPending, StatusCancelled}}, PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)

	from, to := timeslot.MustDate("2024-06-04"), timeslot.MustDate("2024-06-05")
	res, err = ledger.Query(ctx, Filter{DateFrom: &from, DateTo: &to}, PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)

	_, err = ledger.Query(ctx, Filter{DateFrom: &to, DateTo: &from}, PageRequest{})
	require.ErrorIs(t, err, apperr.ErrValidation)

	stats, err := ledger.Stats(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 4, Pending: 2, Confirmed: 1, Cancelled: 1}, *stats)
	assert.Equal(t, stats.Total, stats.Pending+stats.Confirmed+stats.Completed+stats.Cancelled)

	// Status and search filters do not narrow stats.
	stats, err = ledger.Stats(ctx, Filter{Statuses: []Status{StatusConfirmed}, Search: "zzz", DateFrom: &from})
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 2, Pending: 1, Confirmed: 1}, *stats)
}

func TestPageRequestNormalize(t *testing.T) {
	assert.Equal(t, PageRequest{Page: 1, PageSize: DefaultPageSize}, PageRequest{}.Normalize())
	assert.Equal(t, PageRequest{Page: 3, PageSize: MaxPageSize}, PageRequest{Page: 3, PageSize: 1000}.Normalize())
	assert.Equal(t, 40, PageRequest{Page: 3, PageSize: 20}.Offset())
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" Confirmed ")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, s)

	_, err = ParseStatus("archived")
	require.ErrorIs(t, err, apperr.ErrValidation)

	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
}
