// Package slots turns the resolved availability and block rules for a date into
// the ordered grid of bookable slots.
package slots

import (
	"context"
	"fmt"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/wolfman30/clinic-scheduler/internal/availability"
	"github.com/wolfman30/clinic-scheduler/internal/observability/metrics"
	"github.com/wolfman30/clinic-scheduler/internal/timeslot"
	"github.com/wolfman30/clinic-scheduler/pkg/logging"
)

// Slot is one bookable interval on the grid. It is derived on demand and never stored.
type Slot struct {
	StartTime       timeslot.TimeOfDay `json:"start_time"`
	EndTime         timeslot.TimeOfDay `json:"end_time"`
	SlotTime        string             `json:"slot_time"`
	DurationMinutes int                `json:"duration_minutes"`
	IsAvailable     bool               `json:"is_available"`
	AppointmentID   string             `json:"appointment_id,omitempty"`
}

func newSlot(iv timeslot.Interval) Slot {
	return Slot{
		StartTime:       iv.Start,
		EndTime:         iv.End,
		SlotTime:        iv.Start.String(),
		DurationMinutes: iv.Duration(),
		IsAvailable:     true,
	}
}

// RuleSource resolves the rules for a date. *availability.Store satisfies it.
type RuleSource interface {
	ListForDate(ctx context.Context, date timeslot.Date) (*availability.DayRules, error)
	Version(ctx context.Context) (int64, error)
}

// Build derives the slot grid from a resolved rule set: each availability window
// loses every block, each remaining fragment is cut at the window's own slot
// duration, and the result is sorted by start. Overlapping availability windows
// can yield duplicate or overlapping slots; the earliest-starting (then
// shortest) slot is kept and any slot overlapping a kept one is dropped.
func Build(rules *availability.DayRules) []Slot {
	blocks := make([]timeslot.Interval, 0, len(rules.Blocks))
	for _, b := range rules.Blocks {
		blocks = append(blocks, b.Window())
	}

	var intervals []timeslot.Interval
	for _, a := range rules.Availability {
		for _, frag := range timeslot.SubtractAll(a.Window(), blocks) {
			intervals = append(intervals, timeslot.Partition(frag, a.SlotDurationMinutes)...)
		}
	}

	sort.SliceStable(intervals, func(i, j int) bool {
		if intervals[i].Start != intervals[j].Start {
			return intervals[i].Start < intervals[j].Start
		}
		return intervals[i].End < intervals[j].End
	})

	out := make([]Slot, 0, len(intervals))
	var last timeslot.Interval
	for i, iv := range intervals {
		if i > 0 && timeslot.Overlaps(last, iv) {
			continue
		}
		out = append(out, newSlot(iv))
		last = iv
	}
	return out
}

// Generator produces slot grids, optionally caching them per date and rule-set version.
type Generator struct {
	rules   RuleSource
	cache   *lru.Cache[string, []Slot]
	metrics *metrics.SchedulingMetrics
	logger  *logging.Logger
}

// NewGenerator creates a generator. A cacheSize of zero disables caching.
func NewGenerator(rules RuleSource, cacheSize int, m *metrics.SchedulingMetrics, logger *logging.Logger) (*Generator, error) {
	if rules == nil {
		return nil, fmt.Errorf("slots: rule source required")
	}
	g := &Generator{
		rules:   rules,
		metrics: m,
		logger:  logging.OrDefault(logger),
	}
	if cacheSize > 0 {
		cache, err := lru.New[string, []Slot](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("slots: create cache: %w", err)
		}
		g.cache = cache
	}
	return g, nil
}

// Generate returns the slot grid for date in ascending start order. Every slot
// is marked available; callers join bookings on top.
func (g *Generator) Generate(ctx context.Context, date timeslot.Date) ([]Slot, error) {
	if g.cache != nil {
		version, err := g.rules.Version(ctx)
		if err != nil {
			return nil, fmt.Errorf("slots: rule version: %w", err)
		}
		if cached, ok := g.cache.Get(cacheKey(date, version)); ok {
			g.metrics.ObserveSlotCache(true)
			return cloneSlots(cached), nil
		}
		g.metrics.ObserveSlotCache(false)
	}

	started := time.Now()
	rules, err := g.rules.ListForDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("slots: resolve rules: %w", err)
	}
	out := Build(rules)
	g.metrics.ObserveSlotGeneration(time.Since(started).Seconds())
	g.logger.Debug("slots generated", "date", date.String(), "version", rules.Version, "count", len(out))

	if g.cache != nil {
		// Keyed by the snapshot's own version so a concurrent edit can't pair
		// stale slots with a newer version.
		g.cache.Add(cacheKey(date, rules.Version), cloneSlots(out))
	}
	return out, nil
}

func cacheKey(date timeslot.Date, version int64) string {
	return fmt.Sprintf("%s@%d", date.String(), version)
}

func cloneSlots(in []Slot) []Slot {
	out := make([]Slot, len(in))
	copy(out, in)
	return out
}
