// Package types contains common types used across the application
package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownWeekday is returned when a weekday label cannot be resolved.
var ErrUnknownWeekday = errors.New("unknown weekday")

// Weekday identifies one of the seven fixed day labels used as table keys.
type Weekday string

// Weekday labels. Thursday keeps the four-letter label used by the dashboard
// selectors; source rows are matched on the three-letter stem instead.
const (
	Monday    Weekday = "Mon"
	Tuesday   Weekday = "Tue"
	Wednesday Weekday = "Wed"
	Thursday  Weekday = "Thur"
	Friday    Weekday = "Fri"
	Saturday  Weekday = "Sat"
	Sunday    Weekday = "Sun"
)

const stemLength = 3

var weekdays = [...]Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var displayNames = map[Weekday]string{
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
	Saturday:  "Saturday",
	Sunday:    "Sunday",
}

// Weekdays returns the seven labels in calendar order starting on Monday.
func Weekdays() []Weekday {
	out := make([]Weekday, len(weekdays))
	copy(out, weekdays[:])
	return out
}

// String returns the label.
func (w Weekday) String() string { return string(w) }

// Valid reports whether w is one of the seven labels.
func (w Weekday) Valid() bool {
	_, ok := displayNames[w]
	return ok
}

// DisplayName returns the full English day name, e.g. "Thursday".
func (w Weekday) DisplayName() string {
	return displayNames[w]
}

// Stem returns the three-letter prefix used to match source weekday values.
func (w Weekday) Stem() string {
	s := string(w)
	if len(s) > stemLength {
		return s[:stemLength]
	}
	return s
}

// Matches reports whether a raw weekday value from the risk table belongs to w.
// Matching is a case-sensitive prefix match on the stem, so "Thu", "Thur" and
// "Thursday" all belong to Thursday.
func (w Weekday) Matches(source string) bool {
	if !w.Valid() {
		return false
	}
	return strings.HasPrefix(source, w.Stem())
}

// ParseWeekday resolves a label, a stem or a full day name to a Weekday.
// Lookup is case-sensitive to stay consistent with row matching.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty value", ErrUnknownWeekday)
	}
	for _, w := range weekdays {
		if s == string(w) || s == w.Stem() || s == displayNames[w] {
			return w, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownWeekday, s)
}

// Option is a selector entry shown to users.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// WeekdayOptions returns selector entries, e.g. {Label: "Thursday", Value: "Thur"}.
func WeekdayOptions() []Option {
	out := make([]Option, 0, len(weekdays))
	for _, w := range weekdays {
		out = append(out, Option{Label: displayNames[w], Value: string(w)})
	}
	return out
}
