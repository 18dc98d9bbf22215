// SPDX-License-Identifier: MIT
package dsp

import (
	"math"

	"voicebox/internal/log"
)

// Speech-tuned WSOLA windows. Shorter sequences than the usual music
// preset track formant transitions better on monophonic voice material.
const (
	stretchSequenceMs = 40.0
	stretchOverlapMs  = 8.0
	stretchSearchMs   = 15.0

	minPitchSemitones = -24.0
	maxPitchSemitones = 24.0
	minStretchRate    = 0.25
	maxStretchRate    = 4.0

	identityEps = 1e-9
	tinyEnergy  = 1e-12
)

// PitchShift shifts the fundamental of buf by semitones (12 = one octave)
// while preserving its length: the signal is WSOLA-stretched by the pitch
// ratio, then resampled back to the original duration. Out-of-range
// parameters and buffers too short to stretch degrade to a pass-through.
func PitchShift(buf []float64, sampleRate int, semitones float64) []float64 {
	out := make([]float64, len(buf))
	copy(out, buf)

	if math.Abs(semitones) <= identityEps {
		return out
	}
	if math.IsNaN(semitones) || semitones < minPitchSemitones || semitones > maxPitchSemitones {
		log.Warnf("dsp: pitch shift of %.2f semitones out of range, passing signal through", semitones)
		return out
	}

	ratio := math.Pow(2, semitones/12)
	st, ok := newStretcher(sampleRate)
	if !ok || len(buf) < 2*st.sequenceLen {
		log.Warnf("dsp: clip too short for pitch shift (%d samples), passing signal through", len(buf))
		return out
	}

	targetLen := int(math.Round(float64(len(buf)) * ratio))
	stretched := st.stretch(buf, targetLen)
	return resampleTo(stretched, len(buf))
}

// TimeStretch changes the duration of buf by factor 1/rate without
// altering pitch: rate 2.0 halves the duration, 0.5 doubles it.
// Out-of-range rates and too-short buffers degrade to a pass-through.
func TimeStretch(buf []float64, sampleRate int, rate float64) []float64 {
	out := make([]float64, len(buf))
	copy(out, buf)

	if math.Abs(rate-1) <= identityEps {
		return out
	}
	if math.IsNaN(rate) || rate < minStretchRate || rate > maxStretchRate {
		log.Warnf("dsp: time stretch rate %.2f out of range, passing signal through", rate)
		return out
	}

	st, ok := newStretcher(sampleRate)
	if !ok || len(buf) < 2*st.sequenceLen {
		log.Warnf("dsp: clip too short for time stretch (%d samples), passing signal through", len(buf))
		return out
	}

	targetLen := int(math.Round(float64(len(buf)) / rate))
	if targetLen < 1 {
		targetLen = 1
	}
	return st.stretch(buf, targetLen)
}

// stretcher performs waveform-similarity overlap-add time scaling. It
// slides fixed-length sequences over the input, picking each splice point
// by normalized cross-correlation within a small search radius, and
// cross-fades sequences with raised-cosine ramps.
type stretcher struct {
	sequenceLen int
	overlapLen  int
	searchLen   int
	stepOut     int

	fadeIn  []float64
	fadeOut []float64
}

func newStretcher(sampleRate int) (*stretcher, bool) {
	if sampleRate <= 0 {
		return nil, false
	}
	sr := float64(sampleRate)

	st := &stretcher{
		sequenceLen: int(math.Round(stretchSequenceMs * 0.001 * sr)),
		overlapLen:  int(math.Round(stretchOverlapMs * 0.001 * sr)),
		searchLen:   int(math.Round(stretchSearchMs * 0.001 * sr)),
	}
	if st.sequenceLen < 32 {
		st.sequenceLen = 32
	}
	if st.overlapLen < 8 {
		st.overlapLen = 8
	}
	if st.overlapLen >= st.sequenceLen {
		return nil, false
	}
	if st.searchLen < 1 {
		st.searchLen = 1
	}
	st.stepOut = st.sequenceLen - st.overlapLen

	st.fadeIn = make([]float64, st.overlapLen)
	st.fadeOut = make([]float64, st.overlapLen)
	for i := 0; i < st.overlapLen; i++ {
		t := float64(i) / float64(st.overlapLen-1)
		in := 0.5 - 0.5*math.Cos(math.Pi*t)
		st.fadeIn[i] = in
		st.fadeOut[i] = 1 - in
	}
	return st, true
}

func (st *stretcher) stretch(input []float64, targetLen int) []float64 {
	if targetLen < 1 {
		targetLen = 1
	}
	factor := float64(targetLen) / float64(len(input))

	nominalInStep := float64(st.stepOut) / factor
	if nominalInStep < 1 {
		nominalInStep = 1
	}

	outCap := targetLen + 2*st.sequenceLen
	out := make([]float64, outCap)
	for i := 0; i < st.sequenceLen; i++ {
		out[i] = sampleZero(input, i)
	}
	outLen := st.sequenceLen
	prevStart := 0
	nextNominal := nominalInStep
	ref := make([]float64, st.overlapLen)

	for outLen < targetLen+st.sequenceLen {
		// The natural continuation of the previous sequence is the
		// correlation reference for the next splice.
		refStart := prevStart + st.stepOut
		for i := 0; i < st.overlapLen; i++ {
			ref[i] = sampleZero(input, refStart+i)
		}

		predicted := int(math.Round(nextNominal))
		candStart := st.findBestOverlap(ref, input, predicted)

		outStart := outLen - st.overlapLen
		for i := 0; i < st.overlapLen; i++ {
			old := out[outStart+i]
			new_ := sampleZero(input, candStart+i)
			out[outStart+i] = old*st.fadeOut[i] + new_*st.fadeIn[i]
		}
		for i := st.overlapLen; i < st.sequenceLen; i++ {
			out[outStart+i] = sampleZero(input, candStart+i)
		}

		outLen = outStart + st.sequenceLen
		prevStart = candStart
		nextNominal += nominalInStep

		if prevStart > len(input)+st.sequenceLen && outLen >= targetLen {
			break
		}
	}

	if targetLen <= len(out) {
		return out[:targetLen]
	}
	padded := make([]float64, targetLen)
	copy(padded, out)
	return padded
}

func (st *stretcher) findBestOverlap(ref, input []float64, predicted int) int {
	best := predicted
	bestScore := math.Inf(-1)

	refEnergy := tinyEnergy
	for _, v := range ref {
		refEnergy += v * v
	}

	for cand := predicted - st.searchLen; cand <= predicted+st.searchLen; cand++ {
		dot := 0.0
		candEnergy := tinyEnergy
		for i, rv := range ref {
			cv := sampleZero(input, cand+i)
			dot += rv * cv
			candEnergy += cv * cv
		}
		score := dot / math.Sqrt(refEnergy*candEnergy)
		if score > bestScore {
			bestScore = score
			best = cand
		}
	}
	return best
}
