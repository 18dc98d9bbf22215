// SPDX-License-Identifier: MIT
/*
Package dsp implements the voice-effect signal processing primitives:
pitch shifting, time stretching, formant shifting via resampling,
shelf-filter brightness, echo, distortion, chorus and reverb.

All primitives operate on fully buffered mono clips as []float64 samples
in [-1, 1] and are pure: buffer + sample rate + parameters in, new buffer
out. A primitive never fails a request; when a parameter is outside its
usable range the primitive logs a warning and returns the input unchanged.
This degradation contract keeps a single bad transform from aborting a
whole pipeline.
*/
package dsp

import "math"

// Peak returns the maximum absolute sample value in buf.
func Peak(buf []float64) float64 {
	peak := 0.0
	for _, v := range buf {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}

// RMS returns the root-mean-square level of buf, 0 for an empty buffer.
func RMS(buf []float64) float64 {
	if len(buf) == 0 {
		return 0
	}
	var sum float64
	for _, v := range buf {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(buf)))
}

// Duration returns the clip duration in seconds.
func Duration(buf []float64, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(len(buf)) / float64(sampleRate)
}

// Clamp limits every sample of buf to [-1, 1] in place and returns buf.
func Clamp(buf []float64) []float64 {
	for i, v := range buf {
		if v > 1 {
			buf[i] = 1
		} else if v < -1 {
			buf[i] = -1
		}
	}
	return buf
}

// Normalize scales buf to the target RMS level in dBFS and returns a new
// buffer clipped to [-1, 1]. A silent buffer is returned unchanged, and a
// buffer already at the target level is unaffected beyond floating error,
// so repeated application is stable.
func Normalize(buf []float64, targetDB float64) []float64 {
	out := make([]float64, len(buf))
	copy(out, buf)

	rms := RMS(buf)
	if rms == 0 {
		return out
	}

	scale := math.Pow(10, targetDB/20) / rms
	for i := range out {
		out[i] *= scale
	}
	return Clamp(out)
}

// mix returns a copy of dry with wet added at the given gain.
func mix(dry, wet []float64, gain float64) []float64 {
	out := make([]float64, len(dry))
	for i := range dry {
		w := 0.0
		if i < len(wet) {
			w = wet[i]
		}
		out[i] = dry[i] + w*gain
	}
	return out
}
