package view

import (
	"github.com/okian/poirisk/internal/domain/model"
)

// Map defaults.
const (
	DefaultCenterLat  = 34.0
	DefaultCenterLon  = -118.0
	DefaultZoom       = 8.0
	DefaultMarkerSize = 6.0
	DefaultMapStyle   = "basic"
	// FallbackMapStyle needs no access token.
	FallbackMapStyle = "open-street-map"
)

// Center is a fixed map center.
type Center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Marker is one plotted location.
type Marker struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Category  string  `json:"category"`
	RiskScore float64 `json:"risk_score"`
	Color     string  `json:"color"`
	Size      float64 `json:"size"`
}

// ColorRange is the risk score span the color scale is keyed on.
type ColorRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ScatterMap is a colored geographic scatter plot at a fixed viewport.
type ScatterMap struct {
	Title       string          `json:"title"`
	Selection   model.Selection `json:"selection"`
	Count       int             `json:"count"`
	Markers     []Marker        `json:"markers"`
	Center      Center          `json:"center"`
	Zoom        float64         `json:"zoom"`
	Style       string          `json:"style"`
	AccessToken string          `json:"access_token,omitempty"`
	ColorScale  string          `json:"color_scale"`
	ColorStops  []string        `json:"color_stops"`
	ColorRange  ColorRange      `json:"color_range"`
}

// Empty reports whether no rows survived the filter.
func (m ScatterMap) Empty() bool { return m.Count == 0 }

// MapSettings fixes the viewport and tile configuration. The viewport never
// depends on the data.
type MapSettings struct {
	Center      Center
	Zoom        float64
	Style       string
	AccessToken string
	MarkerSize  float64
	Scale       ColorScale
}

// DefaultMapSettings returns the Los Angeles viewport.
func DefaultMapSettings() MapSettings {
	return MapSettings{
		Center:     Center{Lat: DefaultCenterLat, Lon: DefaultCenterLon},
		Zoom:       DefaultZoom,
		Style:      DefaultMapStyle,
		MarkerSize: DefaultMarkerSize,
		Scale:      Plasma,
	}
}

// ResolvedStyle returns the tile style, falling back to a token-free style
// when no access token is configured.
func (s MapSettings) ResolvedStyle() string {
	if s.AccessToken == "" {
		return FallbackMapStyle
	}
	if s.Style == "" {
		return DefaultMapStyle
	}
	return s.Style
}

// BuildScatterMap filters recs by sel.Category and produces one marker per
// surviving row. recs must be the records of sel.Weekday.
func BuildScatterMap(recs []model.RiskRecord, sel model.Selection, settings MapSettings) ScatterMap {
	rows := Filter(recs, sel.Category)
	scale := settings.Scale
	if len(scale.stops) == 0 {
		scale = Plasma
	}
	size := settings.MarkerSize
	if size <= 0 {
		size = DefaultMarkerSize
	}

	var cr ColorRange
	for i, r := range rows {
		if i == 0 || r.RiskScore < cr.Min {
			cr.Min = r.RiskScore
		}
		if i == 0 || r.RiskScore > cr.Max {
			cr.Max = r.RiskScore
		}
	}

	markers := make([]Marker, len(rows))
	for i, r := range rows {
		markers[i] = Marker{
			Lat:       r.Latitude,
			Lon:       r.Longitude,
			Name:      r.Name,
			Address:   r.Address,
			Category:  r.Category,
			RiskScore: r.RiskScore,
			Color:     scale.At(r.RiskScore, cr.Min, cr.Max).Hex(),
			Size:      size,
		}
	}

	return ScatterMap{
		Title:       MapTitle(sel),
		Selection:   sel,
		Count:       len(markers),
		Markers:     markers,
		Center:      settings.Center,
		Zoom:        settings.Zoom,
		Style:       settings.ResolvedStyle(),
		AccessToken: settings.AccessToken,
		ColorScale:  scale.Name,
		ColorStops:  scale.Stops(),
		ColorRange:  cr,
	}
}

// MapTitle returns "Risk scores of <category> on <weekday>".
func MapTitle(sel model.Selection) string {
	return "Risk scores of " + sel.Category + " on " + sel.Weekday.String()
}
