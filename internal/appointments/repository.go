package appointments

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/timeslot"
)

// Repository is the write side of the ledger.
type Repository interface {
	// Insert stores a new appointment, failing with ErrSlotTaken if a
	// non-cancelled appointment holds the same (date, time). The check and the
	// write are atomic.
	Insert(ctx context.Context, appt *Appointment) error
	Get(ctx context.Context, id string) (*Appointment, error)
	// CompareAndSetStatus moves id from `from` to `to` only if its current
	// status is still `from`, returning the updated row.
	CompareAndSetStatus(ctx context.Context, id string, from, to Status, updatedAt time.Time) (*Appointment, error)
	// ActiveOn lists non-cancelled appointments on date ordered by time.
	ActiveOn(ctx context.Context, date timeslot.Date) ([]Appointment, error)
}

// Reporter is the read side used by the admin dashboard.
type Reporter interface {
	Query(ctx context.Context, filter Filter, page PageRequest) ([]Appointment, int, error)
	Stats(ctx context.Context, filter Filter) (*Stats, error)
}

type slotKey struct {
	date string
	time timeslot.TimeOfDay
}

// InMemoryRepository implements Repository and Reporter in process memory.
type InMemoryRepository struct {
	mu     sync.RWMutex
	byID   map[string]*Appointment
	active map[slotKey]string
}

// NewInMemoryRepository creates an empty ledger.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:   make(map[string]*Appointment),
		active: make(map[slotKey]string),
	}
}

func keyFor(a *Appointment) slotKey {
	return slotKey{date: a.Date.String(), time: a.Time}
}

func (r *InMemoryRepository) Insert(ctx context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := keyFor(appt)
	if _, taken := r.active[key]; taken {
		return ErrSlotTaken
	}
	stored := *appt
	r.byID[appt.ID] = &stored
	if appt.Status != StatusCancelled {
		r.active[key] = appt.ID
	}
	return nil
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	appt, ok := r.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	out := *appt
	return &out, nil
}

func (r *InMemoryRepository) CompareAndSetStatus(ctx context.Context, id string, from, to Status, updatedAt time.Time) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	if appt.Status != from {
		return nil, errStatusChanged
	}
	appt.Status = to
	appt.UpdatedAt = updatedAt
	if to == StatusCancelled {
		key := keyFor(appt)
		if r.active[key] == id {
			delete(r.active, key)
		}
	}
	out := *appt
	return &out, nil
}

func (r *InMemoryRepository) ActiveOn(ctx context.Context, date timeslot.Date) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []Appointment{}
	day := date.String()
	for key, id := range r.active {
		if key.date == day {
			out = append(out, *r.byID[id])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	return out, nil
}

func (r *InMemoryRepository) Query(ctx context.Context, filter Filter, page PageRequest) ([]Appointment, int, error) {
	page = page.Normalize()
	matched := r.filter(filter)
	sortForListing(matched)

	total := len(matched)
	start := page.Offset()
	if start >= total {
		return []Appointment{}, total, nil
	}
	end := start + page.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *InMemoryRepository) Stats(ctx context.Context, filter Filter) (*Stats, error) {
	filter.Statuses = nil
	filter.Search = ""
	stats := &Stats{}
	for _, appt := range r.filter(filter) {
		stats.add(appt.Status, 1)
	}
	return stats, nil
}

func (r *InMemoryRepository) filter(f Filter) []Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := []Appointment{}
	for _, appt := range r.byID {
		if len(f.Statuses) > 0 && !containsStatus(f.Statuses, appt.Status) {
			continue
		}
		if f.DateFrom != nil && appt.Date.Before(f.DateFrom.Time) {
			continue
		}
		if f.DateTo != nil && appt.Date.After(f.DateTo.Time) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(appt.Name), search) &&
			!strings.Contains(strings.ToLower(appt.Email), search) &&
			!strings.Contains(strings.ToLower(appt.Phone), search) {
			continue
		}
		out = append(out, *appt)
	}
	return out
}

func containsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// sortForListing orders by date, then time, then creation.
func sortForListing(list []Appointment) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.Before(b.Date.Time)
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
