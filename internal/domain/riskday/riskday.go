// Package riskday assembles per-weekday risk records by joining the risk
// score table with the POI table.
package riskday

import (
	"github.com/okian/poirisk/internal/domain/model"
	"github.com/okian/poirisk/internal/domain/types"
)

// JoinMode selects how a risk row finds its POI row.
type JoinMode int

const (
	// JoinPositional pairs the i-th matching risk row with POI row i.
	JoinPositional JoinMode = iota
	// JoinKey pairs rows sharing the same join key value.
	JoinKey
)

func (m JoinMode) String() string {
	if m == JoinKey {
		return "key"
	}
	return "positional"
}

// Report summarises one weekday's assembly.
type Report struct {
	Weekday types.Weekday
	Matched int // risk rows whose weekday matched
	Kept    int // complete records
	Dropped int // Matched - Kept
}

// Assembler builds RiskRecords from immutable source rows.
type Assembler struct {
	risk  []model.RiskRow
	poi   []model.POIRow
	mode  JoinMode
	byKey map[string]int
}

// New creates an Assembler. The slices are not copied and must not be
// modified afterwards.
func New(risk []model.RiskRow, poi []model.POIRow, opts ...Option) *Assembler {
	a := &Assembler{risk: risk, poi: poi, mode: JoinPositional}
	for _, opt := range opts {
		opt(a)
	}
	if a.mode == JoinKey {
		a.byKey = make(map[string]int, len(poi))
		for i, p := range poi {
			if p.Key == "" {
				continue
			}
			if _, dup := a.byKey[p.Key]; !dup {
				a.byKey[p.Key] = i
			}
		}
	}
	return a
}

// Mode returns the configured join mode.
func (a *Assembler) Mode() JoinMode { return a.mode }

// Assemble returns the complete records for w in source order. A weekday
// with no matching rows yields an empty slice.
func (a *Assembler) Assemble(w types.Weekday) []model.RiskRecord {
	recs, _ := a.assemble(w)
	return recs
}

// Report returns the assembly counts for w.
func (a *Assembler) Report(w types.Weekday) Report {
	_, rep := a.assemble(w)
	return rep
}

func (a *Assembler) assemble(w types.Weekday) ([]model.RiskRecord, Report) {
	rep := Report{Weekday: w}
	out := make([]model.RiskRecord, 0)
	pos := 0
	for _, r := range a.risk {
		if !w.Matches(r.Weekday) {
			continue
		}
		rep.Matched++
		p, ok := a.lookup(r, pos)
		pos++
		if !ok || !r.HasScore || !p.Complete() {
			continue
		}
		out = append(out, model.RiskRecord{
			Weekday:   w,
			RiskScore: r.RiskScore,
			Name:      p.Name,
			Address:   p.Address,
			Category:  p.Category,
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
		})
	}
	rep.Kept = len(out)
	rep.Dropped = rep.Matched - rep.Kept
	return out, rep
}

func (a *Assembler) lookup(r model.RiskRow, pos int) (model.POIRow, bool) {
	if a.mode == JoinKey {
		if r.Key == "" {
			return model.POIRow{}, false
		}
		i, ok := a.byKey[r.Key]
		if !ok {
			return model.POIRow{}, false
		}
		return a.poi[i], true
	}
	if pos >= len(a.poi) {
		return model.POIRow{}, false
	}
	return a.poi[pos], true
}

// BuildTable assembles all seven weekdays.
func (a *Assembler) BuildTable() (model.WeekdayTable, []Report) {
	days := make(map[types.Weekday][]model.RiskRecord, len(types.Weekdays()))
	reports := make([]Report, 0, len(types.Weekdays()))
	for _, w := range types.Weekdays() {
		recs, rep := a.assemble(w)
		days[w] = recs
		reports = append(reports, rep)
	}
	return model.NewWeekdayTable(days), reports
}

// CategoryIndex derives the distinct categories of one weekday's records in
// first-seen order.
func CategoryIndex(source types.Weekday, recs []model.RiskRecord) model.CategorySet {
	labels := make([]string, 0, len(recs))
	for _, r := range recs {
		labels = append(labels, r.Category)
	}
	return model.NewCategorySet(source, labels)
}

// Staleness lists categories present on other weekdays but absent from set,
// keyed by weekday. Weekdays with nothing missing are omitted.
func Staleness(table model.WeekdayTable, set model.CategorySet) map[types.Weekday][]string {
	out := make(map[types.Weekday][]string)
	table.Range(func(w types.Weekday, recs []model.RiskRecord) {
		if w == set.Source() {
			return
		}
		seen := make(map[string]struct{})
		for _, r := range recs {
			if set.Contains(r.Category) {
				continue
			}
			if _, ok := seen[r.Category]; ok {
				continue
			}
			seen[r.Category] = struct{}{}
			out[w] = append(out[w], r.Category)
		}
	})
	return out
}
