package view

import (
	"math"

	"github.com/okian/poirisk/internal/domain/model"
)

// Presentation defaults for the histogram panel.
const (
	DefaultBarColor = "#4169e1"
	DefaultOpacity  = 0.75
)

// Bin is one histogram bucket covering [Lower, Upper); the last bin also
// includes its upper edge.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// Histogram is a frequency histogram of risk scores.
type Histogram struct {
	Title     string          `json:"title"`
	Selection model.Selection `json:"selection"`
	Count     int             `json:"count"`
	Values    []float64       `json:"values"`
	Bins      []Bin           `json:"bins"`
	Color     string          `json:"color"`
	Opacity   float64         `json:"opacity"`
}

// Empty reports whether no rows survived the filter.
func (h Histogram) Empty() bool { return h.Count == 0 }

// HistogramOption customises BuildHistogram.
type HistogramOption func(*histogramConfig)

type histogramConfig struct {
	bins    int
	color   string
	opacity float64
}

// WithBins fixes the bin count. Zero or negative selects Sturges' rule.
func WithBins(n int) HistogramOption {
	return func(c *histogramConfig) { c.bins = n }
}

// WithBarColor sets the bar color.
func WithBarColor(color string) HistogramOption {
	return func(c *histogramConfig) {
		if color != "" {
			c.color = color
		}
	}
}

// WithOpacity sets the bar opacity in (0, 1].
func WithOpacity(o float64) HistogramOption {
	return func(c *histogramConfig) {
		if o > 0 && o <= 1 {
			c.opacity = o
		}
	}
}

// BuildHistogram filters recs by sel.Category and bins the risk scores.
// recs must be the records of sel.Weekday.
func BuildHistogram(recs []model.RiskRecord, sel model.Selection, opts ...HistogramOption) Histogram {
	cfg := histogramConfig{color: DefaultBarColor, opacity: DefaultOpacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	rows := Filter(recs, sel.Category)
	values := make([]float64, len(rows))
	for i, r := range rows {
		values[i] = r.RiskScore
	}

	return Histogram{
		Title:     HistogramTitle(sel),
		Selection: sel,
		Count:     len(values),
		Values:    values,
		Bins:      binValues(values, cfg.bins),
		Color:     cfg.color,
		Opacity:   cfg.opacity,
	}
}

// HistogramTitle returns "Histogram of risk scores on <weekday>".
func HistogramTitle(sel model.Selection) string {
	return "Histogram of risk scores on " + sel.Weekday.String()
}

func binValues(values []float64, n int) []Bin {
	if len(values) == 0 {
		return []Bin{}
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return []Bin{{Lower: lo - 0.5, Upper: hi + 0.5, Count: len(values)}}
	}
	if n <= 0 {
		n = sturges(len(values))
	}
	width := (hi - lo) / float64(n)
	bins := make([]Bin, n)
	for i := range bins {
		bins[i].Lower = lo + float64(i)*width
		bins[i].Upper = lo + float64(i+1)*width
	}
	bins[n-1].Upper = hi
	for _, v := range values {
		i := int((v - lo) / width)
		if i >= n {
			i = n - 1
		}
		bins[i].Count++
	}
	return bins
}

func sturges(n int) int {
	return int(math.Ceil(math.Log2(float64(n)))) + 1
}
