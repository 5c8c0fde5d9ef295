package render

import (
	"image/color"
	"math"
)

// HSV represents a color in HSV color space.
type HSV struct {
	H float64 // Hue [0-360]
	S float64 // Saturation [0-1]
	V float64 // Value [0-1]
}

// AmplitudeToColor converts a normalized amplitude [0-1] to an RGB color
// using a "cold-to-hot" scheme: weak signals stay dark blue, strong
// signals turn red.
func AmplitudeToColor(normalized float64) color.Color {
	v := math.Max(0, math.Min(1, normalized))

	hsv := HSV{
		H: 240 - (v * 240), // Blue->Red transition
		S: 0.9 + (v * 0.1),
		V: math.Pow(v, 0.7), // Gamma correction for better visual perception
	}

	return hsvToRGB(hsv)
}

func hsvToRGB(hsv HSV) color.RGBA {
	h := math.Mod(hsv.H, 360) / 60
	c := hsv.V * hsv.S
	x := c * (1 - math.Abs(math.Mod(h, 2)-1))
	m := hsv.V - c

	var r, g, b float64
	switch int(h) {
	case 0:
		r, g, b = c, x, 0
	case 1:
		r, g, b = x, c, 0
	case 2:
		r, g, b = 0, c, x
	case 3:
		r, g, b = 0, x, c
	case 4:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return color.RGBA{
		R: uint8(math.Round((r + m) * 255)),
		G: uint8(math.Round((g + m) * 255)),
		B: uint8(math.Round((b + m) * 255)),
		A: 255,
	}
}
