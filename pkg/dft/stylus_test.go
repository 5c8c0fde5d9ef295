package dft_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linux-surface/iptsgo/pkg/config"
	"github.com/linux-surface/iptsgo/pkg/dft"
	"github.com/linux-surface/iptsgo/pkg/ipts"
)

// Antenna measurements of a real pen hover, captured on a Surface Pro.
// The peak sits between components 3 and 4.
var (
	hoverReal = [ipts.NumComponents]int16{-8, -6, 3, 202, 260, -3, -15, -13, -10}
	hoverImag = [ipts.NumComponents]int16{-3, -3, 2, 103, 133, 1, -7, -6, -7}
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.DftPositionMinAmp = 50
	cfg.DftPositionMinMag = 1000
	cfg.DftPositionExp = 2
	return cfg
}

// positionWindow builds the reference position window: group 7, a 64x44
// grid, the hover peak at component 4 on both axes.
func positionWindow() *ipts.DftWindow {
	w := &ipts.DftWindow{
		Type:     ipts.DftTypePosition,
		Group:    7,
		HasGroup: true,
		Rows:     2,
		Dim:      ipts.Dimensions{Width: 64, Height: 44},
	}

	w.X[0] = ipts.Row{Magnitude: 85289, First: 28, Real: hoverReal, Imag: hoverImag}
	w.Y[0] = ipts.Row{Magnitude: 85289, First: 20, Real: hoverReal, Imag: hoverImag}
	return w
}

// Interpolated positions of the hover rows, divided by (width-1) and
// (height-1) of the 64x44 grid.
const (
	hoverX = 0.504512544950197
	hoverY = 0.5531230309735444
)

func TestPositionValid(t *testing.T) {
	s := dft.New(testConfig(), nil)
	s.Input(positionWindow())

	st := s.Stylus()
	assert.True(t, st.Proximity)
	assert.False(t, st.Contact)
	assert.InDelta(t, hoverX, st.X, 1e-9)
	assert.InDelta(t, hoverY, st.Y, 1e-9)

	// No tilt rows: azimuth and altitude keep their previous state.
	assert.Zero(t, st.Azimuth)
	assert.Zero(t, st.Altitude)
}

func TestPositionSignalStarved(t *testing.T) {
	s := dft.New(testConfig(), nil)
	s.Input(positionWindow())
	require.True(t, s.Stylus().Proximity)

	w := positionWindow()
	w.X[0].Magnitude = 0
	w.Y[0].Magnitude = 0
	s.Input(w)

	st := s.Stylus()
	assert.False(t, st.Proximity)
	assert.False(t, st.Contact)
	assert.False(t, st.Button)
	assert.False(t, st.Rubber)

	// The last good position stays around, flagged stale by proximity.
	assert.InDelta(t, hoverX, st.X, 1e-9)
}

func TestPositionSingleRowLifts(t *testing.T) {
	s := dft.New(testConfig(), nil)
	s.Input(positionWindow())

	w := positionWindow()
	w.Rows = 1
	s.Input(w)

	assert.False(t, s.Stylus().Proximity)
}

func TestPositionDimensionFallback(t *testing.T) {
	meta := &ipts.Metadata{}
	meta.Size.Columns = 64
	meta.Size.Rows = 44

	s := dft.New(testConfig(), meta)

	w := positionWindow()
	w.Dim = ipts.Dimensions{}
	s.Input(w)

	st := s.Stylus()
	require.True(t, st.Proximity)
	assert.InDelta(t, hoverX, st.X, 1e-9)
	assert.InDelta(t, hoverY, st.Y, 1e-9)
}

func TestPositionInversion(t *testing.T) {
	plain := dft.New(testConfig(), nil)
	plain.Input(positionWindow())

	cfg := testConfig()
	cfg.InvertX = true
	cfg.InvertY = true

	inverted := dft.New(cfg, nil)
	inverted.Input(positionWindow())

	assert.InDelta(t, 1-plain.Stylus().X, inverted.Stylus().X, 1e-12)
	assert.InDelta(t, 1-plain.Stylus().Y, inverted.Stylus().Y, 1e-12)
}

func TestPositionTilt(t *testing.T) {
	cfg := testConfig()
	cfg.Width = 50
	cfg.Height = 30

	w := positionWindow()
	w.X[1] = ipts.Row{
		Magnitude: 20000,
		First:     28,
		Real:      [ipts.NumComponents]int16{2, 3, 10, 60, 100, 30, 8, 3, 2},
	}
	w.Y[1] = w.X[1]
	w.Y[1].First = 20

	s := dft.New(cfg, nil)
	s.Input(w)

	st := s.Stylus()
	require.True(t, st.Proximity)
	assert.InDelta(t, 5.562054950130156, st.Azimuth, 1e-9)
	assert.InDelta(t, 0.22849345548827668, st.Altitude, 1e-9)
}

func TestPositionTiltGated(t *testing.T) {
	cfg := testConfig()
	cfg.Width = 50
	cfg.Height = 30

	w := positionWindow()
	w.X[1] = ipts.Row{
		Magnitude: cfg.DftTiltMinMag, // not strictly above the gate
		First:     28,
		Real:      [ipts.NumComponents]int16{2, 3, 10, 60, 100, 30, 8, 3, 2},
	}
	w.Y[1] = w.X[1]

	s := dft.New(cfg, nil)
	s.Input(w)

	st := s.Stylus()
	assert.Zero(t, st.Azimuth)
	assert.Zero(t, st.Altitude)
}

// buttonWindow builds a button window whose phase opposes the reference
// phase captured from positionWindow (button pressed on a V1 pen).
func buttonWindow(group uint32) *ipts.DftWindow {
	w := &ipts.DftWindow{
		Type:     ipts.DftTypeButton,
		Group:    group,
		HasGroup: true,
		Rows:     1,
	}

	// The position reference is real 260+260=520, imag 133+133=266.
	w.X[0].Magnitude = 5000
	w.Y[0].Magnitude = 5000
	w.X[0].Real[4] = -520
	w.X[0].Imag[4] = -266
	w.Y[0].Real[4] = -520
	w.Y[0].Imag[4] = -266
	return w
}

func TestButtonV1(t *testing.T) {
	s := dft.New(testConfig(), nil)
	s.Input(positionWindow())
	s.Input(buttonWindow(7))

	st := s.Stylus()
	assert.True(t, st.Button)
	assert.False(t, st.Rubber)
}

func TestButtonV1Rubber(t *testing.T) {
	s := dft.New(testConfig(), nil)
	s.Input(positionWindow())

	// Same phase as the position signal: eraser, not button.
	w := buttonWindow(7)
	w.X[0].Real[4] = 520
	w.X[0].Imag[4] = 266
	w.Y[0].Real[4] = 520
	w.Y[0].Imag[4] = 266
	s.Input(w)

	st := s.Stylus()
	assert.False(t, st.Button)
	assert.True(t, st.Rubber)
}

func TestButtonGroupMismatch(t *testing.T) {
	s := dft.New(testConfig(), nil)
	s.Input(positionWindow())
	s.Input(buttonWindow(7))
	require.True(t, s.Stylus().Button)

	// A button window from a different capture group has no comparable
	// phase; it must not touch the state.
	w := buttonWindow(8)
	w.X[0].Real[4] = 520
	w.X[0].Imag[4] = 266
	w.Y[0].Real[4] = 520
	w.Y[0].Imag[4] = 266
	s.Input(w)

	st := s.Stylus()
	assert.True(t, st.Button)
	assert.False(t, st.Rubber)
}

func TestButtonBeforePosition(t *testing.T) {
	s := dft.New(testConfig(), nil)
	s.Input(buttonWindow(7))

	st := s.Stylus()
	assert.False(t, st.Button)
	assert.False(t, st.Rubber)
}

func TestButtonSignalStarved(t *testing.T) {
	s := dft.New(testConfig(), nil)
	s.Input(positionWindow())
	s.Input(buttonWindow(7))
	require.True(t, s.Stylus().Button)

	w := buttonWindow(7)
	w.X[0].Magnitude = 0
	w.Y[0].Magnitude = 0
	s.Input(w)

	// Qualifying group, no signal: both states reset.
	st := s.Stylus()
	assert.False(t, st.Button)
	assert.False(t, st.Rubber)
}

func TestButtonV2LeavesButtonAlone(t *testing.T) {
	cfg := testConfig()
	cfg.MppVersion = config.MppV2

	s := dft.New(cfg, nil)
	s.Input(positionWindow())

	// Opposite phase on a V2 pen is still not a button press, the 0x0A
	// window decides that. The eraser detection stays active.
	s.Input(buttonWindow(7))

	st := s.Stylus()
	assert.False(t, st.Button)
	assert.False(t, st.Rubber)
}

// pressureWindow builds the reference pressure window: a symmetric peak
// on row 10 of 16.
func pressureWindow() *ipts.DftWindow {
	w := &ipts.DftWindow{Type: ipts.DftTypePressure, Rows: ipts.PressureRows}

	set := func(i int, mag uint32, sample int16) {
		w.X[i].Magnitude = mag
		w.Y[i].Magnitude = mag
		for j := 0; j < ipts.NumComponents; j++ {
			w.X[i].Real[j] = sample
			w.Y[i].Real[j] = sample
		}
	}
	set(9, 25000, 50)
	set(10, 50000, 100)
	set(11, 25000, 50)
	return w
}

func TestPressure(t *testing.T) {
	s := dft.New(testConfig(), nil)
	s.Input(pressureWindow())

	st := s.Stylus()
	assert.True(t, st.Contact)
	assert.InDelta(t, 1.0-10.0/15.0, st.Pressure, 1e-9)
}

func TestPressureRelease(t *testing.T) {
	s := dft.New(testConfig(), nil)
	s.Input(pressureWindow())
	require.True(t, s.Stylus().Contact)

	// Peak on the last row means zero pressure: contact released.
	w := pressureWindow()
	w.X[9], w.Y[9] = ipts.Row{}, ipts.Row{}
	w.X[10], w.Y[10] = ipts.Row{}, ipts.Row{}
	w.X[11], w.Y[11] = ipts.Row{}, ipts.Row{}

	set := func(i int, mag uint32, sample int16) {
		w.X[i].Magnitude = mag
		w.Y[i].Magnitude = mag
		for j := 0; j < ipts.NumComponents; j++ {
			w.X[i].Real[j] = sample
			w.Y[i].Real[j] = sample
		}
	}
	set(13, 12500, 25)
	set(14, 25000, 50)
	set(15, 50000, 100)

	s.Input(w)

	st := s.Stylus()
	assert.False(t, st.Contact)
	assert.Zero(t, st.Pressure)
}

func TestPressureTooFewRows(t *testing.T) {
	s := dft.New(testConfig(), nil)
	s.Input(pressureWindow())
	before := s.Stylus()

	w := pressureWindow()
	w.Rows = ipts.PressureRows - 1
	s.Input(w)

	// Malformed window: previous pressure preserved.
	assert.Equal(t, before, s.Stylus())
}

// v2ButtonWindow builds a 0x0A window with the given row 4 and row 5
// magnitudes (per axis).
func v2ButtonWindow(group uint32, mag4, mag5 uint32) *ipts.DftWindow {
	w := &ipts.DftWindow{
		Type:     ipts.DftType0x0A,
		Group:    group,
		HasGroup: true,
		Rows:     6,
	}
	w.X[4].Magnitude = mag4
	w.Y[4].Magnitude = mag4
	w.X[5].Magnitude = mag5
	w.Y[5].Magnitude = mag5
	return w
}

func TestButtonV2(t *testing.T) {
	cfg := testConfig()
	cfg.MppVersion = config.MppV2
	cfg.DftButtonMinMag = 500

	s := dft.New(cfg, nil)

	// Row 5 dominant: pressed.
	s.Input(v2ButtonWindow(3, 5000, 10000))
	assert.True(t, s.Stylus().Button)

	// Second 0x0A of the same group is not authoritative.
	s.Input(v2ButtonWindow(3, 10000, 5000))
	assert.True(t, s.Stylus().Button)

	// New group, no signal on either row: released.
	s.Input(v2ButtonWindow(4, 0, 0))
	assert.False(t, s.Stylus().Button)
}

func TestButtonV2IgnoredOnV1(t *testing.T) {
	s := dft.New(testConfig(), nil)
	s.Input(v2ButtonWindow(3, 5000, 10000))
	assert.False(t, s.Stylus().Button)
}

func TestButtonV2NoGroup(t *testing.T) {
	cfg := testConfig()
	cfg.MppVersion = config.MppV2
	cfg.DftButtonMinMag = 500

	s := dft.New(cfg, nil)

	w := v2ButtonWindow(3, 5000, 10000)
	w.HasGroup = false
	s.Input(w)

	assert.False(t, s.Stylus().Button)
}

func TestPosition2(t *testing.T) {
	w := positionWindow()
	w.Type = ipts.DftTypePosition2

	// Ignored unless explicitly enabled.
	s := dft.New(testConfig(), nil)
	s.Input(w)
	assert.False(t, s.Stylus().Proximity)

	cfg := testConfig()
	cfg.DftPosition2 = true

	s = dft.New(cfg, nil)
	s.Input(w)

	st := s.Stylus()
	assert.True(t, st.Proximity)
	assert.InDelta(t, hoverX, st.X, 1e-9)
}

func TestUnknownTypeIgnored(t *testing.T) {
	s := dft.New(testConfig(), nil)
	s.Input(positionWindow())
	before := s.Stylus()

	w := positionWindow()
	w.Type = ipts.DftType0x0B
	w.X[0].Magnitude = 0
	s.Input(w)

	assert.Equal(t, before, s.Stylus())
}

func TestLiftIdempotent(t *testing.T) {
	s := dft.New(testConfig(), nil)
	s.Input(positionWindow())
	s.Input(pressureWindow())

	starved := positionWindow()
	starved.X[0].Magnitude = 0
	starved.Y[0].Magnitude = 0

	s.Input(starved)
	first := s.Stylus()

	s.Input(starved)
	assert.Equal(t, first, s.Stylus())
}

// TestStateInvariants runs a full cycle and checks the output ranges the
// consumers rely on.
func TestStateInvariants(t *testing.T) {
	cfg := testConfig()
	cfg.Width = 50
	cfg.Height = 30

	w := positionWindow()
	w.X[1] = ipts.Row{
		Magnitude: 20000,
		First:     28,
		Real:      [ipts.NumComponents]int16{2, 3, 10, 60, 100, 30, 8, 3, 2},
	}
	w.Y[1] = w.X[1]
	w.Y[1].First = 20

	s := dft.New(cfg, nil)
	s.Input(w)
	s.Input(pressureWindow())

	st := s.Stylus()
	assert.True(t, st.Proximity)
	assert.True(t, st.Contact)

	assert.GreaterOrEqual(t, st.X, 0.0)
	assert.LessOrEqual(t, st.X, 1.0)
	assert.GreaterOrEqual(t, st.Y, 0.0)
	assert.LessOrEqual(t, st.Y, 1.0)
	assert.GreaterOrEqual(t, st.Pressure, 0.0)
	assert.LessOrEqual(t, st.Pressure, 1.0)
	assert.GreaterOrEqual(t, st.Azimuth, 0.0)
	assert.Less(t, st.Azimuth, 2*math.Pi)
	assert.GreaterOrEqual(t, st.Altitude, 0.0)
	assert.LessOrEqual(t, st.Altitude, math.Pi/2)
}
