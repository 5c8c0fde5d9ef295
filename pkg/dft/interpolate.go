package dft

import (
	"math"

	"github.com/linux-surface/iptsgo/pkg/config"
	"github.com/linux-surface/iptsgo/pkg/ipts"
)

// clamp keeps v inside [lo, hi]. NaN passes through, an infinity is
// pulled onto the nearest bound; both matter for the interpolators below.
func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

// InterpolatePosition returns the fractional antenna index of the stylus
// peak described by row, or NaN when the signal is unusable.
//
// The center component is assumed to carry the maximum amplitude. Its
// two neighbors are projected onto the phase of the center sample, which
// extracts the real part in the rotated basis and suppresses quadrature
// noise. A parabola through the three phase-aligned amplitudes (sharpened
// by cfg.DftPositionExp) then yields the sub-antenna peak offset.
func InterpolatePosition(row *ipts.Row, cfg *config.Config) float64 {
	maxi := ipts.NumComponents / 2

	// Off-screen components are always zero. If a neighbor of the
	// center is zero the stylus sits at the edge of the panel; shift
	// the window inward and widen the allowed offset instead.
	mind := -0.5
	maxd := 0.5

	if row.Real[maxi-1] == 0 && row.Imag[maxi-1] == 0 {
		maxi++
		mind = -1
	} else if row.Real[maxi+1] == 0 && row.Imag[maxi+1] == 0 {
		maxi--
		maxd = 1
	}

	amp := math.Hypot(float64(row.Real[maxi]), float64(row.Imag[maxi]))
	if amp < cfg.DftPositionMinAmp {
		return math.NaN()
	}

	sin := float64(row.Real[maxi]) / amp
	cos := float64(row.Imag[maxi]) / amp

	p := [3]float64{
		sin*float64(row.Real[maxi-1]) + cos*float64(row.Imag[maxi-1]),
		amp,
		sin*float64(row.Real[maxi+1]) + cos*float64(row.Imag[maxi+1]),
	}

	// Convert the amplitudes into something a parabola fits.
	for i := range p {
		p[i] = math.Pow(math.Abs(p[i]), cfg.DftPositionExp)
	}

	// An upward opening parabola has no peak.
	if p[0]+p[2] > 2*p[1] {
		return math.NaN()
	}

	// Critical point of the fitted parabola. A zero denominator gives
	// an infinity that the clamp pulls back onto the bound.
	d := (p[0] - p[2]) / (2 * (p[0] - 2*p[1] + p[2]))

	return float64(row.First) + float64(maxi) + clamp(d, mind, maxd)
}

// InterpolateFrequency returns the fractional row index, scaled to [0, 1],
// of the strongest row across the first rows entries of the window, or NaN
// when the signal is gated out. It is used for pressure extraction.
func InterpolateFrequency(dft *ipts.DftWindow, rows int, cfg *config.Config) float64 {
	if rows < 3 {
		return math.NaN()
	}

	// Find the row with the strongest combined magnitude.
	maxi := 0
	maxm := uint64(0)

	for i := 0; i < rows; i++ {
		m := uint64(dft.X[i].Magnitude) + uint64(dft.Y[i].Magnitude)
		if m > maxm {
			maxm = m
			maxi = i
		}
	}

	if maxm < 2*uint64(cfg.DftFreqMinMag) {
		return math.NaN()
	}

	mind := -0.5
	maxd := 0.5

	if maxi < 1 {
		maxi = 1
		mind = -1
	} else if maxi > rows-2 {
		maxi = rows - 2
		maxd = 1
	}

	// All components in a row have the same phase, and corresponding
	// x and y rows share it too, so everything can be summed before
	// interpolating.
	var real, imag [3]int64

	for i := 0; i < 3; i++ {
		x := &dft.X[maxi+i-1]
		y := &dft.Y[maxi+i-1]

		for j := 0; j < ipts.NumComponents; j++ {
			real[i] += int64(x.Real[j]) + int64(y.Real[j])
			imag[i] += int64(x.Imag[j]) + int64(y.Imag[j])
		}
	}

	// Eric Jacobsen's modified quadratic estimator: the least-squares
	// vertex in the complex plane, robust when the real and imaginary
	// axes disagree about the peak.
	ra := real[0] - real[2]
	rb := 2*real[1] - real[0] - real[2]
	ia := imag[0] - imag[2]
	ib := 2*imag[1] - imag[0] - imag[2]

	d := float64(ra*rb+ia*ib) / float64(rb*rb+ib*ib)

	return (float64(maxi) + clamp(d, mind, maxd)) / float64(rows-1)
}
