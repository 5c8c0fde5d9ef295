package render

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linux-surface/iptsgo/pkg/ipts"
)

func TestAmplitudeToColor(t *testing.T) {
	// No signal is black, full signal is red.
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, AmplitudeToColor(0))
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, AmplitudeToColor(1))

	// Out of range input clamps instead of wrapping the hue.
	assert.Equal(t, AmplitudeToColor(1), AmplitudeToColor(2))
	assert.Equal(t, AmplitudeToColor(0), AmplitudeToColor(-1))
}

func TestRenderDimensions(t *testing.T) {
	r, err := New(10)
	require.NoError(t, err)

	w := &ipts.DftWindow{Type: ipts.DftTypePosition, Rows: 2}
	w.X[0].Real[4] = 100
	w.X[0].Imag[4] = 50

	img, err := r.Render(w)
	require.NoError(t, err)

	bounds := img.Bounds()
	assert.Equal(t, labelWidth+ipts.NumComponents*10, bounds.Dx())
	assert.Equal(t, headerSize+2*2*10, bounds.Dy())

	// The strongest cell must not be black.
	x := labelWidth + 4*10 + 5
	y := headerSize + 5
	assert.NotEqual(t, color.RGBA{0, 0, 0, 255}, img.RGBAAt(x, y))
}
