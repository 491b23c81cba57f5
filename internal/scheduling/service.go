// Package scheduling answers "which slots are open on this date" and books a
// slot only after checking it lies on the generated grid.
package scheduling

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/internal/appointments"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/internal/slots"
	"github.com/wolfman30/clinic-scheduler/internal/timeslot"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

var tracer = otel.Tracer("clinic.internal.scheduling")

var (
	// ErrOffGrid is returned when the requested time is not the start of a generated slot.
	ErrOffGrid = apperr.New(apperr.ErrInvalidSlot, "the selected time is not an available slot")

	// ErrSlotInPast is returned for slots that have already started in the clinic's timezone.
	ErrSlotInPast = apperr.New(apperr.ErrInvalidSlot, "the selected time is in the past")

	// ErrTooManyBookings is returned when a contact exceeds the booking velocity limit.
	ErrTooManyBookings = apperr.New(apperr.ErrRateLimited, "too many booking attempts, please try again later")
)

// SlotSource produces the slot grid for a date.
type SlotSource interface {
	Generate(ctx context.Context, date timeslot.Date) ([]slots.Slot, error)
}

// Ledger is the part of the booking ledger the service needs.
type Ledger interface {
	Book(ctx context.Context, date timeslot.Date, t timeslot.TimeOfDay, details appointments.Details) (*appointments.Appointment, error)
	ActiveOn(ctx context.Context, date timeslot.Date) ([]appointments.Appointment, error)
}

// Limiter throttles booking attempts per contact.
type Limiter interface {
	Allow(ctx context.Context, email string) (*VelocityResult, error)
}

// Service joins generated slots with the ledger.
type Service struct {
	slots    SlotSource
	ledger   Ledger
	limiter  Limiter
	location *time.Location
	metrics  *metrics.SchedulingMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithLimiter enables per-contact booking velocity checks.
func WithLimiter(l Limiter) Option {
	return func(s *Service) { s.limiter = l }
}

// WithLocation sets the clinic timezone used to reject past slots.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithMetrics records rejected bookings.
func WithMetrics(m *metrics.SchedulingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires the query service.
func NewService(source SlotSource, ledger Ledger, logger *logging.Logger, opts ...Option) *Service {
	s := &Service{
		slots:    source,
		ledger:   ledger,
		location: time.UTC,
		logger:   logging.OrDefault(logger),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AvailableSlots returns the grid for date with booked slots marked
// unavailable and carrying the booking's id.
func (s *Service) AvailableSlots(ctx context.Context, date timeslot.Date) ([]slots.Slot, error) {
	ctx, span := tracer.Start(ctx, "scheduling.available_slots")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.date", date.String()))

	if date.IsZero() {
		return nil, apperr.Validation("date is required")
	}

	grid, err := s.slots.Generate(ctx, date)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed")
		return nil, err
	}
	booked, err := s.ledger.ActiveOn(ctx, date)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ledger lookup failed")
		return nil, err
	}

	byStart := make(map[timeslot.TimeOfDay]string, len(booked))
	for _, appt := range booked {
		byStart[appt.Time] = appt.ID
	}
	for i := range grid {
		if id, ok := byStart[grid[i].StartTime]; ok {
			grid[i].IsAvailable = false
			grid[i].AppointmentID = id
		}
	}
	span.SetAttributes(
		attribute.Int("clinic.slots.total", len(grid)),
		attribute.Int("clinic.slots.booked", len(booked)),
	)
	return grid, nil
}

// ValidateAndBook books req only if its time starts a slot on the generated
// grid, the slot has not already started, and the contact is under the
// velocity limit. The ledger enforces that the slot is free.
func (s *Service) ValidateAndBook(ctx context.Context, req appointments.BookRequest) (*appointments.Appointment, error) {
	ctx, span := tracer.Start(ctx, "scheduling.validate_and_book")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.appointment.date", req.Date.String()),
		attribute.String("clinic.appointment.time", req.Time.String()),
	)

	if err := req.Details.Validate(); err != nil {
		return nil, err
	}
	if req.Date.IsZero() {
		return nil, apperr.Validation("date is required")
	}
	if !req.Time.Valid() {
		return nil, apperr.Validation("time must be between 00:00 and 23:59")
	}

	grid, err := s.slots.Generate(ctx, req.Date)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate failed")
		return nil, err
	}
	if !onGrid(grid, req.Time) {
		s.metrics.ObserveBooking("invalid_slot")
		s.logger.Info("booking rejected, off grid", "date", req.Date.String(), "time", req.Time.String())
		return nil, ErrOffGrid
	}
	if req.Date.At(req.Time, s.location).Before(s.now()) {
		s.metrics.ObserveBooking("invalid_slot")
		return nil, ErrSlotInPast
	}

	if s.limiter != nil {
		result, err := s.limiter.Allow(ctx, req.Email)
		if err != nil {
			s.logger.Warn("velocity limiter error", "error", err)
		} else if !result.Allowed {
			s.metrics.ObserveBooking("rate_limited")
			span.SetAttributes(attribute.Bool("clinic.booking.rate_limited", true))
			return nil, ErrTooManyBookings
		}
	}

	appt, err := s.ledger.Book(ctx, req.Date, req.Time, req.Details)
	if err != nil {
		if !errors.Is(err, appointments.ErrSlotTaken) && apperr.HTTPStatus(err) >= 500 {
			span.RecordError(err)
			span.SetStatus(codes.Error, "book failed")
		}
		return nil, err
	}
	return appt, nil
}

func onGrid(grid []slots.Slot, t timeslot.TimeOfDay) bool {
	for _, slot := range grid {
		if slot.StartTime == t {
			return true
		}
	}
	return false
}
