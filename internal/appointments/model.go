package appointments

import (
	"net/mail"
	"strings"
	"time"

	"github.com/wolfman30/clinic-scheduler/internal/apperr"
	"github.com/wolfman30/clinic-scheduler/internal/timeslot"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled}

var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted},
}

// ParseStatus rejects anything outside the closed set of statuses.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllStatuses {
		if status == known {
			return status, nil
		}
	}
	return "", apperr.Validation("invalid status %q: must be one of pending, confirmed, completed, cancelled", s)
}

// CanTransitionTo reports whether next is reachable from s in one step.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Appointment is a patient booking for one slot.
type Appointment struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	Phone     string             `json:"phone"`
	Date      timeslot.Date      `json:"date"`
	Time      timeslot.TimeOfDay `json:"time"`
	Message   string             `json:"message"`
	Status    Status             `json:"status"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Details is the patient-supplied part of a booking.
type Details struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

const (
	maxNameLength    = 200
	maxPhoneLength   = 32
	maxMessageLength = 2000
)

// Normalize trims fields and lowercases the email.
func (d *Details) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.Phone = strings.TrimSpace(d.Phone)
	d.Message = strings.TrimSpace(d.Message)
}

// Validate checks required fields after normalizing them.
func (d *Details) Validate() error {
	d.Normalize()
	if d.Name == "" {
		return ErrNameRequired
	}
	if len(d.Name) > maxNameLength {
		return apperr.Validation("name must be at most %d characters", maxNameLength)
	}
	if d.Email == "" {
		return ErrEmailRequired
	}
	if addr, err := mail.ParseAddress(d.Email); err != nil || addr.Address != d.Email {
		return ErrInvalidEmail
	}
	if d.Phone == "" {
		return ErrPhoneRequired
	}
	if len(d.Phone) > maxPhoneLength || !plausiblePhone(d.Phone) {
		return ErrInvalidPhone
	}
	if len(d.Message) > maxMessageLength {
		return apperr.Validation("message must be at most %d characters", maxMessageLength)
	}
	return nil
}

func plausiblePhone(p string) bool {
	digits := 0
	for _, r := range p {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case strings.ContainsRune("+-() .", r):
		default:
			return false
		}
	}
	return digits >= 7
}

// BookRequest is the public POST /api/appointments body.
type BookRequest struct {
	Details
	Date timeslot.Date      `json:"date"`
	Time timeslot.TimeOfDay `json:"time"`
}

// Filter narrows Query and Stats. Zero values mean no constraint.
type Filter struct {
	Statuses []Status
	DateFrom *timeslot.Date
	DateTo   *timeslot.Date
	Search   string
}

// Stats counts appointments by status. The four buckets always sum to Total.
type Stats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

func (s *Stats) add(status Status, n int) {
	s.Total += n
	switch status {
	case StatusPending:
		s.Pending += n
	case StatusConfirmed:
		s.Confirmed += n
	case StatusCompleted:
		s.Completed += n
	case StatusCancelled:
		s.Cancelled += n
	}
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PageRequest is a 1-indexed offset page.
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize clamps the page into range.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset is the number of rows skipped before this page.
func (p PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// QueryResult is one page of appointments plus the unpaged total.
type QueryResult struct {
	Appointments []Appointment
	Total        int
	Page         PageRequest
}
