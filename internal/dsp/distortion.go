// SPDX-License-Identifier: MIT
package dsp

import (
	"math"

	"voicebox/internal/log"
)

const (
	minDriveDB = 0.0
	maxDriveDB = 40.0

	chorusBaseDelaySec = 0.007

	compressGain  = 2.0
	compressLevel = 0.8
)

// Distort applies tanh waveshaping with the given input drive in dB.
// The hyperbolic tangent bounds the output to (-1, 1), so no separate
// clipping stage is needed.
func Distort(buf []float64, driveDB float64) []float64 {
	out := make([]float64, len(buf))
	copy(out, buf)

	if math.IsNaN(driveDB) || driveDB < minDriveDB || driveDB > maxDriveDB {
		log.Warnf("dsp: distortion drive %.1f dB out of range, passing signal through", driveDB)
		return out
	}

	gain := math.Pow(10, driveDB/20)
	for i, v := range buf {
		out[i] = math.Tanh(v * gain)
	}
	return out
}

// Chorus thickens the signal with a sine-modulated delay line around a
// 7 ms base delay. rateHz sets the modulation speed, depth the modulation
// amount relative to the base delay, and mixLevel the wet proportion.
func Chorus(buf []float64, sampleRate int, rateHz, depth, mixLevel float64) []float64 {
	out := make([]float64, len(buf))
	copy(out, buf)

	if sampleRate <= 0 || !isFinitePositive(rateHz) ||
		math.IsNaN(depth) || depth < 0 || depth > 1 ||
		math.IsNaN(mixLevel) || mixLevel < 0 || mixLevel > 1 {
		log.Warnf("dsp: chorus parameters unusable (rate=%.2f depth=%.2f mix=%.2f), passing signal through",
			rateHz, depth, mixLevel)
		return out
	}

	baseDelay := chorusBaseDelaySec * float64(sampleRate)
	phaseStep := 2 * math.Pi * rateHz / float64(sampleRate)

	phase := 0.0
	for i := range out {
		delay := baseDelay * (1 + depth*math.Sin(phase))
		phase += phaseStep

		// Linear-interpolated tap behind the write position.
		pos := float64(i) - delay
		idx := int(math.Floor(pos))
		frac := pos - float64(idx)
		wet := sampleZero(buf, idx)*(1-frac) + sampleZero(buf, idx+1)*frac

		out[i] = buf[i]*(1-mixLevel) + wet*mixLevel
	}
	return out
}

// Compress squashes dynamic range with tanh(2x) * 0.8, the fixed curve the
// robot preset uses as its final stage.
func Compress(buf []float64) []float64 {
	out := make([]float64, len(buf))
	for i, v := range buf {
		out[i] = math.Tanh(v*compressGain) * compressLevel
	}
	return out
}
