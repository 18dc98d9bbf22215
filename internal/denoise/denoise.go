// SPDX-License-Identifier: MIT
/*
Package denoise implements stationary spectral-subtraction noise
reduction over a short-time Fourier transform.

The clip is analyzed in Hann-windowed frames with 50% overlap. A noise
profile is estimated from the quietest frames (stationary-noise
assumption), scaled by the requested strength and subtracted from every
frame's magnitude spectrum before overlap-add resynthesis. Like the dsp
primitives, Reduce never fails a request: unusable parameters or clips
too short to frame pass the signal through with a logged warning.
*/
package denoise

import (
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"

	"voicebox/internal/log"
	"voicebox/pkg/bitint"
)

const (
	frameSize = 1024
	hopSize   = frameSize / 2

	// Fraction of the quietest frames used for the noise profile.
	noiseQuantile = 0.10

	// Minimum fraction of the original magnitude a bin may keep. A hard
	// floor avoids the "musical noise" artifacts of full subtraction.
	spectralFloor = 0.1
)

// StrengthFromPercent maps the user-facing 0–100 strength to the
// internal [0, 1] proportion, clamping out-of-range input.
func StrengthFromPercent(percent int) float64 {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 1
	}
	return float64(percent) / 100
}

// Reduce removes an estimated stationary noise floor from buf. strength
// in [0, 1] controls the proportion of the estimate subtracted; 0 is a
// no-op. The result has the same length as the input.
func Reduce(buf []float64, sampleRate int, strength float64) []float64 {
	out := make([]float64, len(buf))
	copy(out, buf)

	if math.IsNaN(strength) || strength < 0 || strength > 1 {
		log.Warnf("denoise: strength %f out of range, passing signal through", strength)
		return out
	}
	if strength == 0 {
		return out
	}
	if len(buf) < 2*frameSize {
		log.Warnf("denoise: clip too short to frame (%d samples), passing signal through", len(buf))
		return out
	}
	if !bitint.IsPowerOfTwo(frameSize) {
		// Guards against a careless constant change; the FFT plan
		// below assumes a radix-2 size.
		log.Warnf("denoise: frame size %d is not a power of two, passing signal through", frameSize)
		return out
	}

	window := hannWindow(frameSize)
	fft := fourier.NewFFT(frameSize)
	bins := frameSize/2 + 1

	numFrames := 1 + (len(buf)-frameSize)/hopSize
	spectra := make([][]complex128, numFrames)
	magnitudes := make([][]float64, numFrames)
	energies := make([]float64, numFrames)

	frame := make([]float64, frameSize)
	for f := 0; f < numFrames; f++ {
		start := f * hopSize
		for i := 0; i < frameSize; i++ {
			frame[i] = buf[start+i] * window[i]
		}

		coeff := make([]complex128, bins)
		fft.Coefficients(coeff, frame)

		mags := make([]float64, bins)
		var energy float64
		for i, c := range coeff {
			mags[i] = cmplx.Abs(c)
			energy += mags[i] * mags[i]
		}
		spectra[f] = coeff
		magnitudes[f] = mags
		energies[f] = energy
	}

	profile := noiseProfile(magnitudes, energies)

	// Subtract the scaled profile from every frame, keeping the phase.
	for f := 0; f < numFrames; f++ {
		for i := 0; i < bins; i++ {
			mag := magnitudes[f][i]
			if mag == 0 {
				continue
			}
			reduced := mag - strength*profile[i]
			if floor := mag * spectralFloor; reduced < floor {
				reduced = floor
			}
			spectra[f][i] *= complex(reduced/mag, 0)
		}
	}

	// Overlap-add resynthesis. The Hann analysis window at 50% overlap
	// sums to one in the interior; the window-sum division handles the
	// half-frame edges.
	acc := make([]float64, len(buf))
	wsum := make([]float64, len(buf))
	seq := make([]float64, frameSize)
	for f := 0; f < numFrames; f++ {
		start := f * hopSize
		fft.Sequence(seq, spectra[f])
		for i := 0; i < frameSize; i++ {
			// gonum's inverse is unnormalized: divide by the length.
			acc[start+i] += seq[i] / frameSize
			wsum[start+i] += window[i]
		}
	}
	for i := range out {
		if wsum[i] > 1e-6 {
			out[i] = acc[i] / wsum[i]
		}
		// Samples no frame covered keep their original value.
	}
	return out
}

// noiseProfile averages the magnitude spectra of the quietest frames.
func noiseProfile(magnitudes [][]float64, energies []float64) []float64 {
	numFrames := len(magnitudes)
	bins := len(magnitudes[0])

	order := make([]int, numFrames)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return energies[order[a]] < energies[order[b]]
	})

	quiet := int(float64(numFrames) * noiseQuantile)
	if quiet < 1 {
		quiet = 1
	}

	profile := make([]float64, bins)
	for _, f := range order[:quiet] {
		for i, m := range magnitudes[f] {
			profile[i] += m
		}
	}
	for i := range profile {
		profile[i] /= float64(quiet)
	}
	return profile
}

func hannWindow(size int) []float64 {
	window := make([]float64, size)
	for i := 0; i < size; i++ {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(size-1)))
	}
	return window
}
