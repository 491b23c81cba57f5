package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/internal/timeslot"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

var ledgerTracer = otel.Tracer("clinic.internal.appointments")

// maxStatusAttempts bounds re-reads after losing a compare-and-set race.
const maxStatusAttempts = 3

// Notifier is told about committed ledger changes. Implementations must not
// block for long; failures are theirs to log.
type Notifier interface {
	AppointmentBooked(ctx context.Context, appt Appointment)
	StatusChanged(ctx context.Context, appt Appointment, previous Status)
}

type nopNotifier struct{}

func (nopNotifier) AppointmentBooked(context.Context, Appointment) {}
func (nopNotifier) StatusChanged(context.Context, Appointment, Status) {}

// Ledger owns the appointment lifecycle.
type Ledger struct {
	repo     Repository
	reports  Reporter
	notifier Notifier
	metrics  *metrics.SchedulingMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// LedgerOption customizes a Ledger.
type LedgerOption func(*Ledger)

// WithNotifier registers a post-commit notifier.
func WithNotifier(n Notifier) LedgerOption {
	return func(l *Ledger) {
		if n != nil {
			l.notifier = n
		}
	}
}

// WithMetrics records booking and transition counters.
func WithMetrics(m *metrics.SchedulingMetrics) LedgerOption {
	return func(l *Ledger) { l.metrics = m }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) LedgerOption {
	return func(l *Ledger) { l.now = now }
}

// NewLedger constructs a ledger over a write repository and a read reporter.
func NewLedger(repo Repository, reports Reporter, logger *logging.Logger, opts ...LedgerOption) *Ledger {
	if repo == nil || reports == nil {
		panic("appointments: repository and reporter required")
	}
	l := &Ledger{
		repo:     repo,
		reports:  reports,
		notifier: nopNotifier{},
		logger:   logging.OrDefault(logger),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Book records a pending appointment at (date, t). It fails with ErrSlotTaken
// when a non-cancelled appointment already holds that slot.
func (l *Ledger) Book(ctx context.Context, date timeslot.Date, t timeslot.TimeOfDay, details Details) (*Appointment, error) {
	ctx, span := ledgerTracer.Start(ctx, "appointments.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.appointment.date", date.String()),
		attribute.String("clinic.appointment.time", t.String()),
	)

	if err := details.Validate(); err != nil {
		return nil, err
	}
	if date.IsZero() {
		return nil, apperr.Validation("date is required")
	}
	if !t.Valid() {
		return nil, apperr.Validation("time must be between 00:00 and 23:59")
	}

	now := l.now().UTC()
	appt := &Appointment{
		ID:        uuid.New().String(),
		Name:      details.Name,
		Email:     details.Email,
		Phone:     details.Phone,
		Date:      date,
		Time:      t,
		Message:   details.Message,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.repo.Insert(ctx, appt); err != nil {
		if errors.Is(err, ErrSlotTaken) {
			l.metrics.ObserveBooking("slot_unavailable")
			l.logger.Info("booking rejected, slot taken", "date", date.String(), "time", t.String())
			return nil, err
		}
		l.metrics.ObserveBooking("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, err
	}

	span.SetAttributes(attribute.String("clinic.appointment.id", appt.ID))
	l.metrics.ObserveBooking("created")
	l.logger.Info("appointment booked", "appointment_id", appt.ID, "date", date.String(), "time", t.String())
	l.notifier.AppointmentBooked(ctx, *appt)
	return appt, nil
}

// UpdateStatus moves an appointment along its lifecycle. The transition is
// checked against the row's current status and applied with a conditional
// update; a concurrent change forces a re-read and a fresh check.
func (l *Ledger) UpdateStatus(ctx context.Context, id string, next Status) (*Appointment, error) {
	ctx, span := ledgerTracer.Start(ctx, "appointments.update_status")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.appointment.id", id),
		attribute.String("clinic.appointment.status", string(next)),
	)

	for attempt := 0; attempt < maxStatusAttempts; attempt++ {
		current, err := l.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !current.Status.CanTransitionTo(next) {
			return nil, apperr.New(apperr.ErrInvalidTransition,
				fmt.Sprintf("cannot change status from %s to %s", current.Status, next))
		}

		updated, err := l.repo.CompareAndSetStatus(ctx, id, current.Status, next, l.now().UTC())
		if errors.Is(err, errStatusChanged) {
			l.logger.Warn("status changed concurrently, retrying", "appointment_id", id, "attempt", attempt+1)
			continue
		}
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		l.metrics.ObserveTransition(string(current.Status), string(next))
		l.logger.Info("appointment status updated", "appointment_id", id, "from", current.Status, "to", next)
		l.notifier.StatusChanged(ctx, *updated, current.Status)
		return updated, nil
	}
	return nil, errStatusChanged
}

// Get returns one appointment.
func (l *Ledger) Get(ctx context.Context, id string) (*Appointment, error) {
	return l.repo.Get(ctx, id)
}

// ActiveOn lists non-cancelled appointments on date.
func (l *Ledger) ActiveOn(ctx context.Context, date timeslot.Date) ([]Appointment, error) {
	return l.repo.ActiveOn(ctx, date)
}

// Query returns a page of appointments matching filter, ordered by date then time.
func (l *Ledger) Query(ctx context.Context, filter Filter, page PageRequest) (*QueryResult, error) {
	page = page.Normalize()
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(filter.DateTo.Time) {
		return nil, apperr.Validation("date_from must not be after date_to")
	}
	list, total, err := l.reports.Query(ctx, filter, page)
	if err != nil {
		return nil, err
	}
	return &QueryResult{Appointments: list, Total: total, Page: page}, nil
}

// Stats counts appointments by status within the filter's date range.
func (l *Ledger) Stats(ctx context.Context, filter Filter) (*Stats, error) {
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateFrom.After(filter.DateTo.Time) {
		return nil, apperr.Validation("date_from must not be after date_to")
	}
	return l.reports.Stats(ctx, filter)
}
