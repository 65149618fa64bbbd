package utils

import (
	"errors"
	"fmt"
	"time"
)

// Validation failures surfaced to users. Handlers reject on these before any
// database access.
var (
	ErrMissingTimeLabel  = errors.New("start and end time are required")
	ErrStartNotBeforeEnd = errors.New("end time must be after start time")
	ErrNoSelection       = errors.New("a schedule slot or a course must be selected")
	ErrDualSelection     = errors.New("only one of schedule slot or course may be selected")
)

// Teaching hours offered by the platform. Slots are created on hourly
// boundaries between the first and last label inclusive.
const (
	OpenHourFirst = 7
	OpenHourLast  = 21

	hourLabelLayout = "15:04"
	dateLayout      = "2006-01-02"
)

// OpenHourLabels returns the canonical list of hourly labels, "07:00" through
// "21:00".
func OpenHourLabels() []string {
	labels := make([]string, 0, OpenHourLast-OpenHourFirst+1)
	for h := OpenHourFirst; h <= OpenHourLast; h++ {
		labels = append(labels, fmt.Sprintf("%02d:00", h))
	}
	return labels
}

// SubtractTakenLabels filters the canonical labels down to those not already
// occupied for a date.
func SubtractTakenLabels(all []string, taken []string) []string {
	occupied := make(map[string]bool, len(taken))
	for _, label := range taken {
		occupied[label] = true
	}

	open := make([]string, 0, len(all))
	for _, label := range all {
		if !occupied[label] {
			open = append(open, label)
		}
	}
	return open
}

// ValidateSlotLabels checks a start/end label pair. Missing labels and
// start >= end are distinct failures.
func ValidateSlotLabels(start, end string) error {
	if start == "" || end == "" {
		return ErrMissingTimeLabel
	}

	startAt, err := time.Parse(hourLabelLayout, start)
	if err != nil {
		return fmt.Errorf("invalid start time %q: use HH:MM", start)
	}
	endAt, err := time.Parse(hourLabelLayout, end)
	if err != nil {
		return fmt.Errorf("invalid end time %q: use HH:MM", end)
	}

	if !startAt.Before(endAt) {
		return ErrStartNotBeforeEnd
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD date into a UTC midnight instant.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(dateLayout, value)
}

// CombineDateLabel composes the absolute instant for an HH:MM label on a date.
func CombineDateLabel(date time.Time, label string) (time.Time, error) {
	at, err := time.Parse(hourLabelLayout, label)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: use HH:MM", label)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), at.Hour(), at.Minute(), 0, 0, time.UTC), nil
}

// HourLabel renders the HH:MM display label of a stored instant. The label
// combined with the slot's date reconstructs the original instant.
func HourLabel(t time.Time) string {
	return t.UTC().Format(hourLabelLayout)
}

// ValidateSelection enforces the slot-or-course tagged selection: exactly one
// of the two ids must be set.
func ValidateSelection(scheduleID, courseID *uint) error {
	switch {
	case scheduleID == nil && courseID == nil:
		return ErrNoSelection
	case scheduleID != nil && courseID != nil:
		return ErrDualSelection
	}
	return nil
}
