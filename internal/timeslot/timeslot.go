// Package timeslot holds the minute-resolution time-of-day arithmetic used to turn
// availability windows into bookable slots. All intervals are half-open [Start, End).
package timeslot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MinutesPerDay bounds TimeOfDay values.
const MinutesPerDay = 24 * 60

// DateLayout is the wire and query format for calendar dates.
const DateLayout = "2006-01-02"

// TimeOfDay is minutes since midnight, 0..1439.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from an hour and minute.
func NewTimeOfDay(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time %02d:%02d out of range", hour, minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// MustTimeOfDay parses s and panics on error. Intended for fixtures.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS" with zero seconds.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		if len(p) != 2 {
			return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("invalid time %q: %w", s, err)
		}
		nums[i] = n
	}
	if len(nums) == 3 && nums[2] != 0 {
		return 0, fmt.Errorf("invalid time %q: seconds are not supported", s)
	}
	return NewTimeOfDay(nums[0], nums[1])
}

// Valid reports whether t lies within a single day.
func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < MinutesPerDay
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// String formats t as "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("time must be a string in HH:MM format")
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// On places t on the calendar day of date in loc.
func (t TimeOfDay) On(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, loc)
}

// Interval is a half-open range of minutes [Start, End).
type Interval struct {
	Start TimeOfDay `json:"start_time"`
	End   TimeOfDay `json:"end_time"`
}

// NewInterval validates that start < end and both are within the day.
func NewInterval(start, end TimeOfDay) (Interval, error) {
	if !start.Valid() || !end.Valid() {
		return Interval{}, fmt.Errorf("times must be between 00:00 and 23:59")
	}
	if start >= end {
		return Interval{}, fmt.Errorf("start time %s must be before end time %s", start, end)
	}
	return Interval{Start: start, End: end}, nil
}

// Duration is the interval length in minutes.
func (i Interval) Duration() int {
	return int(i.End - i.Start)
}

// Empty reports whether the interval covers no minutes.
func (i Interval) Empty() bool {
	return i.End <= i.Start
}

func (i Interval) String() string {
	return i.Start.String() + "-" + i.End.String()
}

// Overlaps reports whether a and b share at least one minute. Touching
// endpoints do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// Subtract removes block from window, returning zero, one or two pieces in
// ascending order.
func Subtract(window, block Interval) []Interval {
	if window.Empty() {
		return nil
	}
	if !Overlaps(window, block) {
		return []Interval{window}
	}
	var out []Interval
	if window.Start < block.Start {
		out = append(out, Interval{Start: window.Start, End: block.Start})
	}
	if block.End < window.End {
		out = append(out, Interval{Start: block.End, End: window.End})
	}
	return out
}

// SubtractAll removes every block from window, fragment by fragment.
func SubtractAll(window Interval, blocks []Interval) []Interval {
	fragments := []Interval{window}
	for _, block := range blocks {
		next := make([]Interval, 0, len(fragments)+1)
		for _, frag := range fragments {
			next = append(next, Subtract(frag, block)...)
		}
		fragments = next
		if len(fragments) == 0 {
			break
		}
	}
	return fragments
}

// Partition cuts window into consecutive slots of duration minutes. A trailing
// remainder shorter than duration is dropped. Non-positive durations yield nothing.
func Partition(window Interval, duration int) []Interval {
	if duration <= 0 || window.Empty() {
		return nil
	}
	out := make([]Interval, 0, window.Duration()/duration)
	for cur := window.Start; cur+TimeOfDay(duration) <= window.End; cur += TimeOfDay(duration) {
		out = append(out, Interval{Start: cur, End: cur + TimeOfDay(duration)})
	}
	return out
}

// Date is a calendar day, serialized as YYYY-MM-DD and held as UTC midnight.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day.
func NewDate(t time.Time) Date {
	return Date{Time: DateOnly(t)}
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return Date{Time: d}, nil
}

// MustDate parses s and panics on error. Intended for fixtures.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	return d.Format(DateLayout)
}

// ISOWeekday returns 1 for Monday through 7 for Sunday.
func (d Date) ISOWeekday() int {
	wd := int(d.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// At places t on this day in loc.
func (d Date) At(t TimeOfDay, loc *time.Location) time.Time {
	return t.On(d.Time, loc)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string in YYYY-MM-DD format")
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DateOnly truncates t to UTC midnight of its calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ValidWeekday reports whether d is an ISO weekday number.
func ValidWeekday(d int) bool {
	return d >= 1 && d <= 7
}
