package uinput

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendEvent(t *testing.T) {
	buf := appendEvent(nil, evAbs, absPressure, -5)
	require.Len(t, buf, eventSize)

	// Timestamp stays zero, the kernel fills it in.
	for _, b := range buf[:16] {
		assert.Zero(t, b)
	}

	assert.Equal(t, uint16(evAbs), binary.LittleEndian.Uint16(buf[16:]))
	assert.Equal(t, uint16(absPressure), binary.LittleEndian.Uint16(buf[18:]))
	assert.Equal(t, int32(-5), int32(binary.LittleEndian.Uint32(buf[20:])))

	buf = appendEvent(buf, evSyn, synReport, 0)
	assert.Len(t, buf, 2*eventSize)
}

func TestTiltAngles(t *testing.T) {
	tests := []struct {
		name     string
		altitude float64
		azimuth  float64
		tx, ty   int32
	}{
		{name: "lifted", altitude: 0, azimuth: 1, tx: 0, ty: 0},
		{name: "flat along x", altitude: math.Pi / 2, azimuth: 0, tx: 9000, ty: 0},
		{name: "tilted along x", altitude: math.Pi / 4, azimuth: 0, tx: 4500, ty: 0},
		{name: "tilted along y", altitude: math.Pi / 4, azimuth: 3 * math.Pi / 2, tx: 0, ty: 4500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, ty := tiltAngles(tt.altitude, tt.azimuth)
			assert.Equal(t, tt.tx, tx)
			assert.Equal(t, tt.ty, ty)
		})
	}
}

func TestTiltAnglesRange(t *testing.T) {
	for alt := 0.01; alt < math.Pi/2; alt += 0.1 {
		for azm := 0.0; azm < 2*math.Pi; azm += 0.25 {
			tx, ty := tiltAngles(alt, azm)

			assert.GreaterOrEqual(t, tx, int32(-9000))
			assert.LessOrEqual(t, tx, int32(9000))
			assert.GreaterOrEqual(t, ty, int32(-9000))
			assert.LessOrEqual(t, ty, int32(9000))
		}
	}
}
