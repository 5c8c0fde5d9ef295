// Package dft derives a continuous stylus state from the DFT windows
// that HID-native IPTS devices emit instead of ready-made coordinates.
package dft

import (
	"math"

	"github.com/linux-surface/iptsgo/pkg/config"
	"github.com/linux-surface/iptsgo/pkg/ipts"
)

// Stylus decodes DFT windows into stylus state.
//
// The decoder is single-threaded and synchronous: every Input call runs
// to completion, mutates the owned state and never blocks or errors.
// Frames must arrive in firmware-emission order within a capture group,
// because button decoding compares phases against the position frame of
// the same group.
type Stylus struct {
	cfg  config.Config
	meta *ipts.Metadata

	// The current state of the DFT stylus.
	stylus ipts.StylusData

	// Phase reference captured from the last position frame.
	real int32
	imag int32

	// Group token of the last position frame.
	group    uint32
	hasGroup bool

	// Group token of the last processed 0x0A window. Only the first
	// 0x0A window of a group is authoritative for the V2 button.
	buttonGroup    uint32
	hasButtonGroup bool
}

// New creates a decoder for the given configuration. The metadata is
// optional; when present it supplies the antenna grid dimensions for
// windows that do not carry their own.
func New(cfg config.Config, meta *ipts.Metadata) *Stylus {
	return &Stylus{cfg: cfg, meta: meta}
}

// Input loads a DFT window and updates the stylus state from it.
// Windows of unknown type are ignored. Gating failures degrade to a
// lifted pen or to skipping the frame; they are never surfaced as errors.
func (s *Stylus) Input(dft *ipts.DftWindow) {
	switch dft.Type {
	case ipts.DftTypePosition:
		s.handlePosition(dft)
	case ipts.DftTypePosition2:
		if s.cfg.DftPosition2 {
			s.handlePosition(dft)
		}
	case ipts.DftTypeButton:
		s.handleButton(dft)
	case ipts.DftTypePressure:
		s.handlePressure(dft)
	case ipts.DftType0x0A:
		s.handleDft0x0A(dft)
	default:
		// Ignored
	}
}

// Stylus returns the current state of the DFT stylus.
func (s *Stylus) Stylus() ipts.StylusData {
	return s.stylus
}

// handlePosition calculates the stylus position from a position window.
func (s *Stylus) handlePosition(dft *ipts.DftWindow) {
	if dft.Rows <= 1 {
		s.lift()
		return
	}

	if dft.X[0].Magnitude <= s.cfg.DftPositionMinMag ||
		dft.Y[0].Magnitude <= s.cfg.DftPositionMinMag {
		s.lift()
		return
	}

	width := dft.Dim.Width
	height := dft.Dim.Height

	if (width == 0 || height == 0) && s.meta != nil {
		width = uint8(s.meta.Size.Columns)
		height = uint8(s.meta.Size.Rows)
	}

	s.group = dft.Group
	s.hasGroup = dft.HasGroup

	const mid = ipts.NumComponents / 2
	s.real = int32(dft.X[0].Real[mid]) + int32(dft.Y[0].Real[mid])
	s.imag = int32(dft.X[0].Imag[mid]) + int32(dft.Y[0].Imag[mid])

	x := InterpolatePosition(&dft.X[0], &s.cfg)
	y := InterpolatePosition(&dft.Y[0], &s.cfg)

	if math.IsNaN(x) || math.IsNaN(y) {
		s.lift()
		return
	}

	s.stylus.Proximity = true

	x /= float64(width) - 1
	y /= float64(height) - 1

	if s.cfg.InvertX {
		x = 1 - x
	}
	if s.cfg.InvertY {
		y = 1 - y
	}

	if dft.X[1].Magnitude > s.cfg.DftTiltMinMag &&
		dft.Y[1].Magnitude > s.cfg.DftTiltMinMag {
		// Tilt follows from the offset of the secondary transmitter.
		xt := InterpolatePosition(&dft.X[1], &s.cfg)
		yt := InterpolatePosition(&dft.Y[1], &s.cfg)

		if !math.IsNaN(xt) && !math.IsNaN(yt) {
			xt /= float64(width) - 1
			yt /= float64(height) - 1

			if s.cfg.InvertX {
				xt = 1 - xt
			}
			if s.cfg.InvertY {
				yt = 1 - yt
			}

			xt -= x
			yt -= y

			// Convert to millimeters relative to the transmitter
			// distance inside the pen.
			xt *= s.cfg.Width / s.cfg.DftTiltDistance
			yt *= s.cfg.Height / s.cfg.DftTiltDistance

			azm := math.Mod(math.Atan2(-yt, xt)+2*math.Pi, 2*math.Pi)
			alt := math.Asin(math.Min(1, math.Hypot(xt, yt)))

			s.stylus.Azimuth = azm
			s.stylus.Altitude = alt
		}
	}

	s.stylus.X = clamp(x, 0, 1)
	s.stylus.Y = clamp(y, 0, 1)
}

// handleButton calculates the button and eraser state from a button
// window. The phase of a button window is only meaningful relative to a
// position window of the same capture group.
func (s *Stylus) handleButton(dft *ipts.DftWindow) {
	if dft.Rows == 0 {
		return
	}

	if !s.hasGroup || !dft.HasGroup || s.group != dft.Group {
		return
	}

	button := false
	rubber := false

	if dft.X[0].Magnitude > s.cfg.DftButtonMinMag &&
		dft.Y[0].Magnitude > s.cfg.DftButtonMinMag {
		const mid = ipts.NumComponents / 2
		real := int32(dft.X[0].Real[mid]) + int32(dft.Y[0].Real[mid])
		imag := int32(dft.X[0].Imag[mid]) + int32(dft.Y[0].Imag[mid])

		// Same phase as the position signal means eraser, opposite
		// phase means button. 64 bit, the products overflow 32.
		val := int64(s.real)*int64(real) + int64(s.imag)*int64(imag)

		button = val < 0
		rubber = val > 0
	}

	// V2 pens signal the button through 0x0A windows instead; the
	// phase comparison would misfire on them.
	if s.cfg.MppVersion == config.MppV1 {
		s.stylus.Button = button
	}
	s.stylus.Rubber = rubber
}

// handlePressure calculates the contact pressure from a pressure window.
func (s *Stylus) handlePressure(dft *ipts.DftWindow) {
	if int(dft.Rows) < ipts.PressureRows {
		return
	}

	p := 1 - InterpolateFrequency(dft, ipts.PressureRows, &s.cfg)

	if p > 0 {
		s.stylus.Contact = true
		s.stylus.Pressure = clamp(p, 0, 1)
	} else {
		s.stylus.Contact = false
		s.stylus.Pressure = 0
	}
}

// handleDft0x0A decides the barrel button state of MPP V2 pens. The pen
// moves its signal from row 4 to row 5 while the button is pressed.
func (s *Stylus) handleDft0x0A(dft *ipts.DftWindow) {
	if s.cfg.MppVersion != config.MppV2 {
		return
	}

	if dft.Rows < 6 {
		return
	}

	// Only the first 0x0A window of a capture group is authoritative.
	if !dft.HasGroup {
		return
	}
	if s.hasButtonGroup && s.buttonGroup == dft.Group {
		return
	}
	s.buttonGroup = dft.Group
	s.hasButtonGroup = true

	mag4 := uint64(dft.X[4].Magnitude) + uint64(dft.Y[4].Magnitude)
	mag5 := uint64(dft.X[5].Magnitude) + uint64(dft.Y[5].Magnitude)
	threshold := 2 * uint64(s.cfg.DftButtonMinMag)

	if mag4 < threshold && mag5 < threshold {
		s.stylus.Button = false
		return
	}

	s.stylus.Button = mag4 < mag5
}

// lift marks the stylus as lifted. Position, pressure and tilt keep
// their last values; proximity going false is the staleness marker.
func (s *Stylus) lift() {
	s.stylus.Proximity = false
	s.stylus.Contact = false
	s.stylus.Button = false
	s.stylus.Rubber = false
}
