package probe

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/okian/poirisk/internal/domain/interaction"
	"github.com/okian/poirisk/internal/domain/model"
	"github.com/okian/poirisk/internal/domain/view"
	"github.com/okian/poirisk/pkg/logger"
)

// Violation is a broken expectation on one response.
type Violation struct {
	Check  Check
	Rule   string
	Detail string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s/%q: %s: %s", v.Check.View, v.Check.Selection.Weekday, v.Check.Selection.Category, v.Rule, v.Detail)
}

// verifyResults checks every response on its own, then compares the two
// views of each selection.
func verifyResults(ctx context.Context, config *Config, results []Result, stats *Stats) error {
	logger.Get().Info(ctx, "verifying results", logger.Int("results", len(results)))

	var violations []Violation
	for _, r := range results {
		violations = append(violations, verifyResult(config, r)...)
	}
	violations = append(violations, verifyAgreement(results)...)
	stats.Violations = len(violations)

	if len(violations) == 0 {
		logger.Get().Info(ctx, "result verification completed")
		return nil
	}

	limit := len(violations)
	if !config.Verbose && limit > 10 {
		limit = 10
	}
	for _, v := range violations[:limit] {
		logger.Get().Error(ctx, "violation", logger.String("detail", v.String()))
	}

	return goerr.Wrap(ErrVerification, "responses broke dashboard invariants",
		goerr.V("violations", len(violations)),
		goerr.V("first", violations[0].String()))
}

// verifyResult checks a single response.
func verifyResult(config *Config, r Result) []Violation {
	var out []Violation
	add := func(rule, format string, args ...any) {
		out = append(out, Violation{Check: r.Check, Rule: rule, Detail: fmt.Sprintf(format, args...)})
	}

	if r.Failed() {
		add("request", "%s", r.Err)
		return out
	}
	if r.Echoed != "" && r.Echoed != r.RequestID {
		add("request_id", "sent %s, got %s", r.RequestID, r.Echoed)
	}
	if r.Check.ExpectEmpty && r.Count != 0 {
		add("empty", "expected no rows, got %d", r.Count)
	}

	switch r.Check.View {
	case interaction.ViewHistogram:
		if r.Histogram == nil {
			add("view", "missing histogram")
			return out
		}
		out = append(out, verifyHistogram(r.Check, *r.Histogram)...)
	case interaction.ViewMap:
		if r.Map == nil {
			add("view", "missing map")
			return out
		}
		out = append(out, verifyMap(config, r.Check, *r.Map)...)
	default:
		add("view", "unknown view %q", r.Check.View)
	}
	return out
}

func verifyHistogram(check Check, h view.Histogram) []Violation {
	var out []Violation
	add := func(rule, format string, args ...any) {
		out = append(out, Violation{Check: check, Rule: rule, Detail: fmt.Sprintf(format, args...)})
	}

	if want := view.HistogramTitle(check.Selection); h.Title != want {
		add("title", "got %q, want %q", h.Title, want)
	}
	if h.Selection != check.Selection {
		add("selection", "got %+v", h.Selection)
	}
	if len(h.Values) != h.Count {
		add("count", "%d values for count %d", len(h.Values), h.Count)
	}
	if h.Count == 0 && len(h.Bins) != 0 {
		add("bins", "empty histogram has %d bins", len(h.Bins))
	}

	sum := 0
	for i, b := range h.Bins {
		sum += b.Count
		if b.Upper < b.Lower {
			add("bins", "bin %d has upper %v below lower %v", i, b.Upper, b.Lower)
		}
	}
	if sum != h.Count {
		add("bins", "bin counts sum to %d, count is %d", sum, h.Count)
	}
	return out
}

func verifyMap(config *Config, check Check, m view.ScatterMap) []Violation {
	var out []Violation
	add := func(rule, format string, args ...any) {
		out = append(out, Violation{Check: check, Rule: rule, Detail: fmt.Sprintf(format, args...)})
	}

	if want := view.MapTitle(check.Selection); m.Title != want {
		add("title", "got %q, want %q", m.Title, want)
	}
	if m.Selection != check.Selection {
		add("selection", "got %+v", m.Selection)
	}
	if len(m.Markers) != m.Count {
		add("count", "%d markers for count %d", len(m.Markers), m.Count)
	}
	if m.Center != config.Center {
		add("center", "got %+v, want %+v", m.Center, config.Center)
	}
	if m.Zoom != config.Zoom {
		add("zoom", "got %v, want %v", m.Zoom, config.Zoom)
	}
	for i, mk := range m.Markers {
		if !strings.Contains(mk.Category, check.Selection.Category) {
			add("category", "marker %d (%s) has category %q", i, mk.Name, mk.Category)
		}
	}
	return out
}

// verifyAgreement requires both views of the same selection to count the
// same rows.
func verifyAgreement(results []Result) []Violation {
	type counts struct {
		histogram, mapped int
		seen              int
	}
	bySel := make(map[model.Selection]*counts)
	var order []model.Selection

	for _, r := range results {
		if r.Failed() {
			continue
		}
		c, ok := bySel[r.Check.Selection]
		if !ok {
			c = &counts{}
			bySel[r.Check.Selection] = c
			order = append(order, r.Check.Selection)
		}
		switch r.Check.View {
		case interaction.ViewHistogram:
			c.histogram = r.Count
			c.seen |= 1
		case interaction.ViewMap:
			c.mapped = r.Count
			c.seen |= 2
		}
	}

	var out []Violation
	for _, sel := range order {
		c := bySel[sel]
		if c.seen != 3 || c.histogram == c.mapped {
			continue
		}
		out = append(out, Violation{
			Check:  Check{View: interaction.ViewMap, Selection: sel},
			Rule:   "agreement",
			Detail: fmt.Sprintf("histogram counts %d rows, map counts %d", c.histogram, c.mapped),
		})
	}
	return out
}
