// SPDX-License-Identifier: MIT
package dsp

import (
	"math"

	"voicebox/internal/log"
)

// Resample returns buf resampled by ratio using 4-point Hermite
// interpolation: ratio 2.0 doubles the sample count, 0.5 halves it.
// Declaring the result to still be at the original sample rate is how the
// formant-shift trick changes the spectral envelope.
func Resample(buf []float64, ratio float64) []float64 {
	if !isFinitePositive(ratio) {
		log.Warnf("dsp: resample ratio out of range (%f), passing signal through", ratio)
		out := make([]float64, len(buf))
		copy(out, buf)
		return out
	}
	outLen := int(math.Round(float64(len(buf)) * ratio))
	return resampleTo(buf, outLen)
}

// FormantShift moves the spectral envelope by resampling buf up (or down)
// by ratio and immediately back to the original length. The round trip is
// a deliberately cheap approximation of a vocal-tract change; its fidelity
// limits are a documented property of the effect, and the ratios used by
// the presets are preserved tuning constants.
func FormantShift(buf []float64, ratio float64) []float64 {
	if !isFinitePositive(ratio) {
		log.Warnf("dsp: formant ratio out of range (%f), passing signal through", ratio)
		out := make([]float64, len(buf))
		copy(out, buf)
		return out
	}
	widened := Resample(buf, ratio)
	return resampleTo(widened, len(buf))
}

// resampleTo stretches or compresses input to exactly outLen samples.
func resampleTo(input []float64, outLen int) []float64 {
	if outLen <= 0 || len(input) == 0 {
		return nil
	}

	out := make([]float64, outLen)
	if len(input) == 1 {
		for i := range out {
			out[i] = input[0]
		}
		return out
	}
	if outLen == 1 {
		out[0] = input[0]
		return out
	}

	step := float64(len(input)-1) / float64(outLen-1)
	pos := 0.0
	for i := range out {
		out[i] = sampleHermite(input, pos)
		pos += step
	}
	return out
}

func sampleHermite(input []float64, pos float64) float64 {
	idx := int(math.Floor(pos))
	frac := pos - float64(idx)
	xm1 := sampleClamp(input, idx-1)
	x0 := sampleClamp(input, idx)
	x1 := sampleClamp(input, idx+1)
	x2 := sampleClamp(input, idx+2)

	// 4-point, 3rd-order Hermite (Catmull-Rom).
	c1 := 0.5 * (x1 - xm1)
	c2 := xm1 - 2.5*x0 + 2*x1 - 0.5*x2
	c3 := 0.5*(x2-xm1) + 1.5*(x0-x1)
	return ((c3*frac+c2)*frac+c1)*frac + x0
}

func sampleZero(x []float64, idx int) float64 {
	if idx < 0 || idx >= len(x) {
		return 0
	}
	return x[idx]
}

func sampleClamp(x []float64, idx int) float64 {
	if len(x) == 0 {
		return 0
	}
	if idx < 0 {
		return x[0]
	}
	if idx >= len(x) {
		return x[len(x)-1]
	}
	return x[idx]
}

func isFinitePositive(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
