package view

import (
	"fmt"
	"math"
)

// RGB is an 8-bit color.
type RGB struct {
	R, G, B uint8
}

// Hex returns the color as "#rrggbb".
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ColorScale maps a value in [min, max] onto evenly spaced color stops.
type ColorScale struct {
	Name  string
	stops []RGB
}

// Plasma is the default sequential scale used for risk scores.
var Plasma = ColorScale{
	Name: "Plasma",
	stops: []RGB{
		{0x0d, 0x08, 0x87}, {0x46, 0x03, 0x9f}, {0x72, 0x01, 0xa8}, {0x9c, 0x17, 0x9e},
		{0xbd, 0x37, 0x86}, {0xd8, 0x57, 0x6b}, {0xed, 0x79, 0x53}, {0xfb, 0x9f, 0x3a},
		{0xfd, 0xca, 0x26}, {0xf0, 0xf9, 0x21},
	},
}

// Stops returns the scale's stops as hex strings.
func (s ColorScale) Stops() []string {
	out := make([]string, len(s.stops))
	for i, c := range s.stops {
		out[i] = c.Hex()
	}
	return out
}

// At returns the interpolated color for v. A degenerate range maps to the
// middle of the scale, as does NaN; values outside the range are clamped.
func (s ColorScale) At(v, lo, hi float64) RGB {
	if len(s.stops) == 0 {
		return RGB{}
	}
	t := 0.5
	if hi > lo {
		t = (v - lo) / (hi - lo)
	}
	if math.IsNaN(t) {
		t = 0.5
	}
	t = math.Max(0, math.Min(1, t))

	pos := t * float64(len(s.stops)-1)
	i := int(pos)
	if i >= len(s.stops)-1 {
		return s.stops[len(s.stops)-1]
	}
	f := pos - float64(i)
	a, b := s.stops[i], s.stops[i+1]
	return RGB{
		R: lerp(a.R, b.R, f),
		G: lerp(a.G, b.G, f),
		B: lerp(a.B, b.B, f),
	}
}

func lerp(a, b uint8, f float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*f))
}
