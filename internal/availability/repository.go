package availability

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/timeslot"
)

// Repository persists availability and block rules. Every mutation bumps the
// rule-set version atomically with the change.
type Repository interface {
	InsertAvailability(ctx context.Context, a *Availability) error
	InsertBlock(ctx context.Context, b *Block) error
	DeleteAvailability(ctx context.Context, id string) error
	DeleteBlock(ctx context.Context, id string) error
	ListAvailability(ctx context.Context) ([]Availability, error)
	ListBlocks(ctx context.Context) ([]Block, error)
	// SnapshotForDate returns every rule that may apply to date from one consistent read.
	SnapshotForDate(ctx context.Context, date timeslot.Date) (*Snapshot, error)
	Version(ctx context.Context) (int64, error)
}

// InMemoryRepository keeps rules in process memory.
type InMemoryRepository struct {
	mu           sync.RWMutex
	availability map[string]Availability
	blocks       map[string]Block
	version      int64
}

// NewInMemoryRepository creates an empty rule store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		availability: make(map[string]Availability),
		blocks:       make(map[string]Block),
	}
}

func (r *InMemoryRepository) InsertAvailability(ctx context.Context, a *Availability) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.availability[a.ID] = *a
	r.version++
	return nil
}

func (r *InMemoryRepository) InsertBlock(ctx context.Context, b *Block) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks[b.ID] = *b
	r.version++
	return nil
}

func (r *InMemoryRepository) DeleteAvailability(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.availability[id]; !ok {
		return ErrRuleNotFound
	}
	delete(r.availability, id)
	r.version++
	return nil
}

func (r *InMemoryRepository) DeleteBlock(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blocks[id]; !ok {
		return ErrRuleNotFound
	}
	delete(r.blocks, id)
	r.version++
	return nil
}

func (r *InMemoryRepository) ListAvailability(ctx context.Context) ([]Availability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Availability, 0, len(r.availability))
	for _, a := range r.availability {
		out = append(out, a)
	}
	sortAvailability(out)
	return out, nil
}

func (r *InMemoryRepository) ListBlocks(ctx context.Context) ([]Block, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Block, 0, len(r.blocks))
	for _, b := range r.blocks {
		out = append(out, b)
	}
	sortBlocks(out)
	return out, nil
}

func (r *InMemoryRepository) SnapshotForDate(ctx context.Context, date timeslot.Date) (*Snapshot, error) {
	weekday := date.ISOWeekday()

	r.mu.RLock()
	defer r.mu.RUnlock()

	snap := &Snapshot{Version: r.version}
	for _, a := range r.availability {
		switch {
		case a.IsRecurring && a.DayOfWeek == weekday:
			snap.RecurringAvailability = append(snap.RecurringAvailability, a)
		case !a.IsRecurring && a.Date != nil && a.Date.Equal(date.Time):
			snap.DateAvailability = append(snap.DateAvailability, a)
		}
	}
	for _, b := range r.blocks {
		if (b.IsRecurring && b.DayOfWeek == weekday) || (!b.IsRecurring && b.Date != nil && b.Date.Equal(date.Time)) {
			snap.Blocks = append(snap.Blocks, b)
		}
	}
	sortAvailability(snap.RecurringAvailability)
	sortAvailability(snap.DateAvailability)
	sortBlocks(snap.Blocks)
	return snap, nil
}

func (r *InMemoryRepository) Version(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version, nil
}

type ruleKey struct {
	recurring bool
	day       int
	date      time.Time
	start     timeslot.TimeOfDay
	id        string
}

func keyOf(recurring bool, day int, date *timeslot.Date, start timeslot.TimeOfDay, id string) ruleKey {
	k := ruleKey{recurring: recurring, day: day, start: start, id: id}
	if date != nil {
		k.date = date.Time
	}
	return k
}

// Recurring rules sort first by weekday, then date rules by date, each by start time.
func (k ruleKey) less(o ruleKey) bool {
	if k.recurring != o.recurring {
		return k.recurring
	}
	if k.day != o.day {
		return k.day < o.day
	}
	if !k.date.Equal(o.date) {
		return k.date.Before(o.date)
	}
	if k.start != o.start {
		return k.start < o.start
	}
	return k.id < o.id
}

func sortAvailability(rules []Availability) {
	sort.Slice(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		return keyOf(a.IsRecurring, a.DayOfWeek, a.Date, a.StartTime, a.ID).
			less(keyOf(b.IsRecurring, b.DayOfWeek, b.Date, b.StartTime, b.ID))
	})
}

func sortBlocks(rules []Block) {
	sort.Slice(rules, func(i, j int) bool {
		a, b := rules[i], rules[j]
		return keyOf(a.IsRecurring, a.DayOfWeek, a.Date, a.StartTime, a.ID).
			less(keyOf(b.IsRecurring, b.DayOfWeek, b.Date, b.StartTime, b.ID))
	})
}
