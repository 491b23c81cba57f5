package availability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-scheduler/internal/timeslot"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// Store validates rule edits and resolves which rules apply to a date.
type Store struct {
	repo   Repository
	logger *logging.Logger
	now    func() time.Time
}

// NewStore wraps a repository.
func NewStore(repo Repository, logger *logging.Logger) *Store {
	if repo == nil {
		panic("availability: repository required")
	}
	return &Store{
		repo:   repo,
		logger: logging.OrDefault(logger),
		now:    time.Now,
	}
}

// CreateRecurringAvailability adds a weekly availability window.
func (s *Store) CreateRecurringAvailability(ctx context.Context, dayOfWeek int, start, end timeslot.TimeOfDay, slotMinutes int) (*Availability, error) {
	return s.CreateAvailability(ctx, &CreateAvailabilityRequest{
		IsRecurring:         true,
		DayOfWeek:           dayOfWeek,
		StartTime:           start,
		EndTime:             end,
		SlotDurationMinutes: slotMinutes,
	})
}

// CreateDateAvailability adds an availability window that overrides the weekly rules on date.
func (s *Store) CreateDateAvailability(ctx context.Context, date timeslot.Date, start, end timeslot.TimeOfDay, slotMinutes int) (*Availability, error) {
	return s.CreateAvailability(ctx, &CreateAvailabilityRequest{
		Date:                &date,
		StartTime:           start,
		EndTime:             end,
		SlotDurationMinutes: slotMinutes,
	})
}

// CreateRecurringBlock blocks a range every week on dayOfWeek.
func (s *Store) CreateRecurringBlock(ctx context.Context, dayOfWeek int, start, end timeslot.TimeOfDay, reason string) (*Block, error) {
	return s.CreateBlock(ctx, &CreateBlockRequest{
		IsRecurring: true,
		DayOfWeek:   dayOfWeek,
		StartTime:   start,
		EndTime:     end,
		Reason:      reason,
	})
}

// CreateDateBlock blocks a range on date only.
func (s *Store) CreateDateBlock(ctx context.Context, date timeslot.Date, start, end timeslot.TimeOfDay, reason string) (*Block, error) {
	return s.CreateBlock(ctx, &CreateBlockRequest{
		Date:      &date,
		StartTime: start,
		EndTime:   end,
		Reason:    reason,
	})
}

// CreateAvailability validates and stores an availability rule of either family.
func (s *Store) CreateAvailability(ctx context.Context, req *CreateAvailabilityRequest) (*Availability, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	a := &Availability{
		ID:                  uuid.New().String(),
		IsRecurring:         req.IsRecurring,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		SlotDurationMinutes: req.SlotDurationMinutes,
		CreatedAt:           s.now().UTC(),
	}
	if req.IsRecurring {
		a.DayOfWeek = req.DayOfWeek
	} else {
		d := timeslot.NewDate(req.Date.Time)
		a.Date = &d
	}
	if err := s.repo.InsertAvailability(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info("availability rule created", "id", a.ID, "recurring", a.IsRecurring, "window", a.Window().String())
	return a, nil
}

// CreateBlock validates and stores a block rule of either family.
func (s *Store) CreateBlock(ctx context.Context, req *CreateBlockRequest) (*Block, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	b := &Block{
		ID:          uuid.New().String(),
		IsRecurring: req.IsRecurring,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Reason:      req.Reason,
		CreatedAt:   s.now().UTC(),
	}
	if req.IsRecurring {
		b.DayOfWeek = req.DayOfWeek
	} else {
		d := timeslot.NewDate(req.Date.Time)
		b.Date = &d
	}
	if err := s.repo.InsertBlock(ctx, b); err != nil {
		return nil, err
	}
	s.logger.Info("block rule created", "id", b.ID, "recurring", b.IsRecurring, "window", b.Window().String())
	return b, nil
}

// Delete removes a rule of the given kind. Unknown ids are ErrRuleNotFound.
func (s *Store) Delete(ctx context.Context, kind Kind, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrRuleNotFound
	}
	var err error
	switch kind {
	case KindAvailability:
		err = s.repo.DeleteAvailability(ctx, id)
	case KindBlock:
		err = s.repo.DeleteBlock(ctx, id)
	default:
		return ErrUnknownKind
	}
	if err != nil {
		return err
	}
	s.logger.Info("rule deleted", "kind", string(kind), "id", id)
	return nil
}

// ListAvailability returns every availability rule.
func (s *Store) ListAvailability(ctx context.Context) ([]Availability, error) {
	return s.repo.ListAvailability(ctx)
}

// ListBlocks returns every block rule.
func (s *Store) ListBlocks(ctx context.Context) ([]Block, error) {
	return s.repo.ListBlocks(ctx)
}

// ListForDate resolves the rules for date: date-specific availability replaces
// the weekly rules when any exist, and blocks of both families always apply.
func (s *Store) ListForDate(ctx context.Context, date timeslot.Date) (*DayRules, error) {
	snap, err := s.repo.SnapshotForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	rules := &DayRules{
		Date:         date,
		Version:      snap.Version,
		Availability: snap.RecurringAvailability,
		Blocks:       snap.Blocks,
	}
	if len(snap.DateAvailability) > 0 {
		rules.Availability = snap.DateAvailability
	}
	if rules.Availability == nil {
		rules.Availability = []Availability{}
	}
	if rules.Blocks == nil {
		rules.Blocks = []Block{}
	}
	return rules, nil
}

// Version returns the current rule-set version.
func (s *Store) Version(ctx context.Context) (int64, error) {
	return s.repo.Version(ctx)
}
