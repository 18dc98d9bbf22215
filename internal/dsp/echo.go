// SPDX-License-Identifier: MIT
package dsp

import (
	"math"

	"voicebox/internal/log"
)

// Echo adds a single delayed copy of the signal:
//
//	y[n] = x[n] + decay*x[n-d]
//
// truncated to the input length and peak-normalized. A silent input stays
// silent (no division by zero), and unusable parameters pass the signal
// through unchanged.
func Echo(buf []float64, sampleRate int, delaySec, decay float64) []float64 {
	out := make([]float64, len(buf))
	copy(out, buf)

	if sampleRate <= 0 || math.IsNaN(delaySec) || delaySec <= 0 ||
		math.IsNaN(decay) || decay < 0 || decay > 1 {
		log.Warnf("dsp: echo parameters unusable (delay=%.3f decay=%.3f), passing signal through", delaySec, decay)
		return out
	}

	delaySamples := int(delaySec * float64(sampleRate))
	for i := delaySamples; i < len(out); i++ {
		out[i] += buf[i-delaySamples] * decay
	}

	peak := Peak(out)
	if peak == 0 {
		return out
	}
	for i := range out {
		out[i] /= peak
	}
	return out
}
