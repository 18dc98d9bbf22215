// SPDX-License-Identifier: MIT
package dsp

import (
	"math"

	"voicebox/internal/log"
)

// Schroeder/Freeverb comb and allpass tunings, calibrated for 44.1 kHz and
// rescaled to the working sample rate at construction.
var (
	reverbCombTunings    = [8]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	reverbAllpassTunings = [4]int{556, 441, 341, 225}
)

const (
	reverbTuningRate   = 44100.0
	reverbFixedGain    = 0.015
	reverbRoomScale    = 0.28
	reverbRoomOffset   = 0.7
	reverbAllpassFeedb = 0.5
)

// Reverb runs buf through a Freeverb-style network of eight parallel
// damped combs and four serial allpasses. roomSize in [0, 1] sets comb
// feedback, damping in [0, 1] the high-frequency loss inside the combs,
// and wet the level of the reverberated signal mixed over the dry one.
func Reverb(buf []float64, sampleRate int, roomSize, damping, wet float64) []float64 {
	out := make([]float64, len(buf))
	copy(out, buf)

	if sampleRate <= 0 ||
		math.IsNaN(roomSize) || roomSize < 0 || roomSize > 1 ||
		math.IsNaN(damping) || damping < 0 || damping > 1 ||
		math.IsNaN(wet) || wet < 0 || wet > 1 {
		log.Warnf("dsp: reverb parameters unusable (room=%.2f damp=%.2f wet=%.2f), passing signal through",
			roomSize, damping, wet)
		return out
	}

	scale := float64(sampleRate) / reverbTuningRate
	feedback := roomSize*reverbRoomScale + reverbRoomOffset

	combs := make([]reverbComb, len(reverbCombTunings))
	for i, tuning := range reverbCombTunings {
		size := int(math.Round(float64(tuning) * scale))
		if size < 1 {
			size = 1
		}
		combs[i] = reverbComb{
			buffer:   make([]float64, size),
			feedback: feedback,
			dampA:    damping,
			dampB:    1 - damping,
		}
	}

	allpasses := make([]reverbAllpass, len(reverbAllpassTunings))
	for i, tuning := range reverbAllpassTunings {
		size := int(math.Round(float64(tuning) * scale))
		if size < 1 {
			size = 1
		}
		allpasses[i] = reverbAllpass{
			buffer:   make([]float64, size),
			feedback: reverbAllpassFeedb,
		}
	}

	for i, x := range buf {
		in := x * reverbFixedGain

		var acc float64
		for c := range combs {
			acc += combs[c].process(in)
		}
		for a := range allpasses {
			acc = allpasses[a].process(acc)
		}

		out[i] = x + acc*wet
	}
	return Clamp(out)
}

type reverbComb struct {
	buffer      []float64
	index       int
	feedback    float64
	filterStore float64
	dampA       float64
	dampB       float64
}

func (c *reverbComb) process(input float64) float64 {
	output := c.buffer[c.index]
	c.filterStore = output*c.dampB + c.filterStore*c.dampA
	if math.Abs(c.filterStore) < 1e-23 {
		c.filterStore = 0 // Flush denormals out of the feedback path.
	}
	c.buffer[c.index] = input + c.filterStore*c.feedback
	c.index++
	if c.index >= len(c.buffer) {
		c.index = 0
	}
	return output
}

type reverbAllpass struct {
	buffer   []float64
	index    int
	feedback float64
}

func (a *reverbAllpass) process(input float64) float64 {
	bufOut := a.buffer[a.index]
	output := bufOut - input
	a.buffer[a.index] = input + bufOut*a.feedback
	a.index++
	if a.index >= len(a.buffer) {
		a.index = 0
	}
	return output
}
