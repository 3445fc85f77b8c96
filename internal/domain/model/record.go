// Package model contains domain models passed between layers.
package model

import (
	"slices"

	"github.com/okian/poirisk/internal/domain/types"
)

// RiskRow is one raw row of the risk score table.
type RiskRow struct {
	Weekday   string  // source weekday value, e.g. "Thur"
	RiskScore float64 // valid only when HasScore
	HasScore  bool
	Key       string // join key value, empty when not configured or missing
}

// POIRow is one raw row of the point-of-interest table.
type POIRow struct {
	Name      string
	Address   string
	Category  string
	Latitude  float64
	Longitude float64
	HasLat    bool
	HasLon    bool
	Key       string
}

// Complete reports whether every POI field is present.
func (p POIRow) Complete() bool {
	return p.Name != "" && p.Address != "" && p.Category != "" && p.HasLat && p.HasLon
}

// RiskRecord is one joined (location, weekday) row with no missing fields.
type RiskRecord struct {
	Weekday   types.Weekday `json:"weekday"`
	RiskScore float64       `json:"risk_score"`
	Name      string        `json:"name"`
	Address   string        `json:"address"`
	Category  string        `json:"category"`
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
}

// WeekdayTable maps each weekday label to its records. It is built once and
// never mutated; accessors hand out copies.
type WeekdayTable struct {
	days map[types.Weekday][]RiskRecord
}

// NewWeekdayTable takes ownership of days.
func NewWeekdayTable(days map[types.Weekday][]RiskRecord) WeekdayTable {
	if days == nil {
		days = make(map[types.Weekday][]RiskRecord)
	}
	return WeekdayTable{days: days}
}

// Get returns a copy of the records for w. Unknown weekdays yield an empty slice.
func (t WeekdayTable) Get(w types.Weekday) []RiskRecord {
	recs := t.days[w]
	if len(recs) == 0 {
		return []RiskRecord{}
	}
	return slices.Clone(recs)
}

// Len returns the number of records for w.
func (t WeekdayTable) Len(w types.Weekday) int { return len(t.days[w]) }

// Total returns the number of records across all weekdays.
func (t WeekdayTable) Total() int {
	n := 0
	for _, recs := range t.days {
		n += len(recs)
	}
	return n
}

// Range calls fn for each weekday in calendar order without copying.
// fn must not modify the slice.
func (t WeekdayTable) Range(fn func(w types.Weekday, recs []RiskRecord)) {
	for _, w := range types.Weekdays() {
		fn(w, t.days[w])
	}
}

// CategorySet is an ordered set of distinct category labels taken from one
// reference weekday.
type CategorySet struct {
	labels []string
	source types.Weekday
}

// NewCategorySet de-duplicates labels keeping first-seen order.
func NewCategorySet(source types.Weekday, labels []string) CategorySet {
	seen := make(map[string]struct{}, len(labels))
	out := make([]string, 0, len(labels))
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return CategorySet{labels: out, source: source}
}

// Labels returns a copy of the labels in first-seen order.
func (c CategorySet) Labels() []string { return slices.Clone(c.labels) }

// Len returns the number of labels.
func (c CategorySet) Len() int { return len(c.labels) }

// Contains reports exact membership.
func (c CategorySet) Contains(label string) bool { return slices.Contains(c.labels, label) }

// Source returns the weekday the set was derived from.
func (c CategorySet) Source() types.Weekday { return c.source }

// Selection is a (weekday, category substring) pair owned by one view.
type Selection struct {
	Weekday  types.Weekday `json:"weekday"`
	Category string        `json:"category"`
}

// DashboardOptions describes the selector choices offered by the page.
type DashboardOptions struct {
	Title           string               `json:"title"`
	AccentColor     string               `json:"accent_color"`
	Weekdays        []types.Option       `json:"weekdays"`
	Categories      []string             `json:"categories"`
	CategoryWeekday types.Weekday        `json:"category_weekday"`
	Defaults        map[string]Selection `json:"defaults"` // keyed by view name
}
