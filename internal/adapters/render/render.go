// Package render draws histogram and scatter map views as PNG or SVG images.
package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/okian/poirisk/internal/domain/view"
	"github.com/okian/poirisk/pkg/metrics"
)

// Sentinel errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrRender            = errors.New("chart render failed")
)

// Format is an output image encoding.
type Format string

// Supported formats.
const (
	PNG Format = "png"
	SVG Format = "svg"
)

// ParseFormat accepts png or svg (case-insensitive). Empty selects PNG.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return PNG, nil
	case PNG, SVG:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the MIME type of the encoding.
func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f Format) provider() chart.RendererProvider {
	if f == SVG {
		return chart.SVG
	}
	return chart.PNG
}

const (
	defaultWidth  = 800
	defaultHeight = 480

	// tileSize matches the 512px vector tiles the browser map uses for zoom.
	tileSize = 512.0

	emptyLabel = "no data"
)

// Renderer draws views at a fixed image size.
type Renderer struct {
	width  int
	height int
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{width: defaultWidth, height: defaultHeight}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Size returns the image dimensions in pixels.
func (r *Renderer) Size() (int, int) { return r.width, r.height }

// Histogram draws h as a bar chart. An empty histogram renders a single
// zero-height placeholder bar.
func (r *Renderer) Histogram(w io.Writer, h view.Histogram, f Format) error {
	fill := hexColor(h.Color).WithAlpha(uint8(math.Round(h.Opacity * 255)))
	style := chart.Style{FillColor: fill, StrokeColor: fill, StrokeWidth: 1}

	bars := make([]chart.Value, 0, len(h.Bins))
	top := 0
	for _, b := range h.Bins {
		bars = append(bars, chart.Value{
			Value: float64(b.Count),
			Label: fmt.Sprintf("%.2f", b.Lower),
			Style: style,
		})
		top = max(top, b.Count)
	}
	if len(bars) == 0 {
		bars = append(bars, chart.Value{Value: 0, Label: emptyLabel, Style: style})
	}

	spacing := 2
	barWidth := max(4, (r.width-120)/len(bars)-spacing)

	bc := chart.BarChart{
		Title:      h.Title,
		Width:      r.width,
		Height:     r.height,
		BarWidth:   barWidth,
		BarSpacing: spacing,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis: chart.YAxis{
			Name:  "count",
			Range: &chart.ContinuousRange{Min: 0, Max: math.Max(1, math.Ceil(float64(top)*1.1))},
		},
		Bars: bars,
	}
	if err := bc.Render(f.provider(), w); err != nil {
		metrics.RecordChartRenderError("histogram", string(f))
		return goerr.Wrap(ErrRender, "cannot draw histogram",
			goerr.V("title", h.Title), goerr.V("bins", len(h.Bins)), goerr.V("cause", err.Error()))
	}
	return nil
}

// ScatterMap draws m as a longitude/latitude scatter over the fixed viewport.
// The viewport span follows the zoom level and image size, never the data.
// The center point is always drawn so an empty map still renders.
func (r *Renderer) ScatterMap(w io.Writer, m view.ScatterMap, f Format) error {
	xr, yr := r.viewport(m.Center, m.Zoom)

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "center",
			XValues: []float64{m.Center.Lon},
			YValues: []float64{m.Center.Lat},
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    2,
				DotColor:    chart.ColorAlternateGray,
			},
		},
	}

	if len(m.Markers) > 0 {
		xs := make([]float64, len(m.Markers))
		ys := make([]float64, len(m.Markers))
		colors := make([]drawing.Color, len(m.Markers))
		for i, mk := range m.Markers {
			xs[i], ys[i] = mk.Lon, mk.Lat
			colors[i] = hexColor(mk.Color)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    "poi",
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeWidth: chart.Disabled,
				DotWidth:    m.Markers[0].Size * 0.75,
				DotColorProvider: func(_, _ chart.Range, index int, _, _ float64) drawing.Color {
					return colors[index]
				},
			},
		})
	}

	c := chart.Chart{
		Title:      m.Title,
		Width:      r.width,
		Height:     r.height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "longitude", Range: xr},
		YAxis:      chart.YAxis{Name: "latitude", Range: yr},
		Series:     series,
	}
	if err := c.Render(f.provider(), w); err != nil {
		metrics.RecordChartRenderError("map", string(f))
		return goerr.Wrap(ErrRender, "cannot draw map",
			goerr.V("title", m.Title), goerr.V("markers", len(m.Markers)), goerr.V("cause", err.Error()))
	}
	return nil
}

// viewport returns the longitude and latitude ranges visible at zoom around
// center, using an equirectangular approximation scaled by cos(lat).
func (r *Renderer) viewport(center view.Center, zoom float64) (*chart.ContinuousRange, *chart.ContinuousRange) {
	degPerPx := 360.0 / (tileSize * math.Pow(2, zoom))
	halfLon := degPerPx * float64(r.width) / 2
	halfLat := degPerPx * float64(r.height) / 2 * math.Cos(center.Lat*math.Pi/180)
	return &chart.ContinuousRange{Min: center.Lon - halfLon, Max: center.Lon + halfLon},
		&chart.ContinuousRange{Min: center.Lat - halfLat, Max: center.Lat + halfLat}
}

func hexColor(s string) drawing.Color {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		s = strings.TrimPrefix(view.DefaultBarColor, "#")
	}
	return drawing.ColorFromHex(s)
}
