package availability

import (
	"strings"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/internal/timeslot"
)

// Kind selects the rule family a Delete targets.
type Kind string

const (
	KindAvailability Kind = "availability"
	KindBlock        Kind = "block"
)

const maxReasonLength = 255

// Availability is a window during which the doctor accepts bookings. Recurring
// rules apply every week on DayOfWeek; date rules apply on Date only and, when
// present, replace the recurring rules for that date.
type Availability struct {
	ID                  string             `json:"id"`
	IsRecurring         bool               `json:"is_recurring"`
	DayOfWeek           int                `json:"day_of_week,omitempty"`
	Date                *timeslot.Date     `json:"date,omitempty"`
	StartTime           timeslot.TimeOfDay `json:"start_time"`
	EndTime             timeslot.TimeOfDay `json:"end_time"`
	SlotDurationMinutes int                `json:"slot_duration_minutes"`
	CreatedAt           time.Time          `json:"created_at"`
}

// Window returns the rule's time range.
func (a Availability) Window() timeslot.Interval {
	return timeslot.Interval{Start: a.StartTime, End: a.EndTime}
}

// Block removes a time range from availability, either every week or on one date.
type Block struct {
	ID          string             `json:"id"`
	IsRecurring bool               `json:"is_recurring"`
	DayOfWeek   int                `json:"day_of_week,omitempty"`
	Date        *timeslot.Date     `json:"date,omitempty"`
	StartTime   timeslot.TimeOfDay `json:"start_time"`
	EndTime     timeslot.TimeOfDay `json:"end_time"`
	Reason      string             `json:"reason"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Window returns the blocked time range.
func (b Block) Window() timeslot.Interval {
	return timeslot.Interval{Start: b.StartTime, End: b.EndTime}
}

// DayRules is the resolved rule set for one date.
type DayRules struct {
	Date         timeslot.Date  `json:"date"`
	Version      int64          `json:"version"`
	Availability []Availability `json:"availability"`
	Blocks       []Block        `json:"blocks"`
}

// Snapshot is every rule that could apply to a date, read atomically.
type Snapshot struct {
	Version               int64
	RecurringAvailability []Availability
	DateAvailability      []Availability
	Blocks                []Block
}

// CreateAvailabilityRequest is the POST /api/availability body.
type CreateAvailabilityRequest struct {
	IsRecurring         bool               `json:"is_recurring"`
	DayOfWeek           int                `json:"day_of_week"`
	Date                *timeslot.Date     `json:"date"`
	StartTime           timeslot.TimeOfDay `json:"start_time"`
	EndTime             timeslot.TimeOfDay `json:"end_time"`
	SlotDurationMinutes int                `json:"slot_duration_minutes"`
}

// Validate checks the request invariants.
func (r *CreateAvailabilityRequest) Validate() error {
	if err := validateTarget(r.IsRecurring, r.DayOfWeek, r.Date); err != nil {
		return err
	}
	if _, err := timeslot.NewInterval(r.StartTime, r.EndTime); err != nil {
		return apperr.Validation("%v", err)
	}
	if r.SlotDurationMinutes <= 0 {
		return apperr.Validation("slot_duration_minutes must be positive")
	}
	if r.SlotDurationMinutes >= timeslot.MinutesPerDay {
		return apperr.Validation("slot_duration_minutes must be less than a day")
	}
	return nil
}

// CreateBlockRequest is the POST /api/blocked-slots body.
type CreateBlockRequest struct {
	IsRecurring bool               `json:"is_recurring"`
	DayOfWeek   int                `json:"day_of_week"`
	Date        *timeslot.Date     `json:"date"`
	StartTime   timeslot.TimeOfDay `json:"start_time"`
	EndTime     timeslot.TimeOfDay `json:"end_time"`
	Reason      string             `json:"reason"`
}

// Validate checks the request invariants and trims the reason.
func (r *CreateBlockRequest) Validate() error {
	if err := validateTarget(r.IsRecurring, r.DayOfWeek, r.Date); err != nil {
		return err
	}
	if _, err := timeslot.NewInterval(r.StartTime, r.EndTime); err != nil {
		return apperr.Validation("%v", err)
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if len(r.Reason) > maxReasonLength {
		return apperr.Validation("reason must be at most %d characters", maxReasonLength)
	}
	return nil
}

func validateTarget(recurring bool, dayOfWeek int, date *timeslot.Date) error {
	if recurring {
		if !timeslot.ValidWeekday(dayOfWeek) {
			return apperr.Validation("day_of_week must be between 1 (Monday) and 7 (Sunday)")
		}
		return nil
	}
	if date == nil || date.IsZero() {
		return apperr.Validation("date is required for non-recurring rules")
	}
	return nil
}
