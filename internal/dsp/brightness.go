// SPDX-License-Identifier: MIT
package dsp

import (
	"math"

	"voicebox/internal/log"
)

const (
	brightnessCutoffHz = 2000.0
	brightnessMixScale = 0.3
)

// Brightness boosts (factor > 1) or cuts (factor < 1) high-frequency
// content above 2 kHz. The high band is extracted with a zero-phase
// 2nd-order Butterworth high-pass and mixed back at |factor-1| * 0.3,
// so factor 1.0 is an identity transform. Output is clipped to [-1, 1].
func Brightness(buf []float64, sampleRate int, factor float64) []float64 {
	out := make([]float64, len(buf))
	copy(out, buf)

	if math.Abs(factor-1) <= identityEps {
		return out
	}
	if math.IsNaN(factor) || factor < 0 || sampleRate <= 0 ||
		brightnessCutoffHz >= float64(sampleRate)/2 {
		log.Warnf("dsp: brightness factor %.2f unusable at %d Hz, passing signal through", factor, sampleRate)
		return out
	}

	high := highpassZeroPhase(buf, sampleRate, brightnessCutoffHz)

	gain := (factor - 1) * brightnessMixScale
	return Clamp(mix(out, high, gain))
}

// biquad holds normalized 2nd-order IIR coefficients.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

// highpassBiquad designs a 2nd-order Butterworth high-pass (Q = 1/sqrt2).
func highpassBiquad(sampleRate int, cutoffHz float64) biquad {
	w0 := 2 * math.Pi * cutoffHz / float64(sampleRate)
	cosw := math.Cos(w0)
	alpha := math.Sin(w0) / math.Sqrt2

	a0 := 1 + alpha
	return biquad{
		b0: (1 + cosw) / 2 / a0,
		b1: -(1 + cosw) / a0,
		b2: (1 + cosw) / 2 / a0,
		a1: -2 * cosw / a0,
		a2: (1 - alpha) / a0,
	}
}

func (f biquad) apply(input []float64) []float64 {
	out := make([]float64, len(input))
	var x1, x2, y1, y2 float64
	for i, x := range input {
		y := f.b0*x + f.b1*x1 + f.b2*x2 - f.a1*y1 - f.a2*y2
		out[i] = y
		x2, x1 = x1, x
		y2, y1 = y1, y
	}
	return out
}

// highpassZeroPhase runs the filter forward and backward so the extracted
// band stays phase-aligned with the dry signal when mixed back in.
func highpassZeroPhase(buf []float64, sampleRate int, cutoffHz float64) []float64 {
	f := highpassBiquad(sampleRate, cutoffHz)

	fwd := f.apply(buf)
	reverse(fwd)
	bwd := f.apply(fwd)
	reverse(bwd)
	return bwd
}

func reverse(buf []float64) {
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
}
