// SPDX-License-Identifier: MIT
package denoise

import (
	"math"
	"math/rand"
	"testing"

	"voicebox/internal/dsp"
	"voicebox/pkg/utils"
)

const testSampleRate = 22050

// noisyVoice builds a deterministic test clip: half a second of noise
// floor alone, then a voiced tone with the same noise mixed in. The
// noise-only lead-in gives the profile estimator clean material.
func noisyVoice(noiseAmp float64) []float64 {
	rng := rand.New(rand.NewSource(42))
	lead := testSampleRate / 2
	voiced := utils.GenerateVoiceLike(testSampleRate, testSampleRate, 220)

	buf := make([]float64, lead+len(voiced))
	for i := range buf {
		buf[i] = noiseAmp * (2*rng.Float64() - 1)
	}
	for i, v := range voiced {
		buf[lead+i] += 0.5 * v
	}
	return dsp.Clamp(buf)
}

func TestReducePreservesLength(t *testing.T) {
	buf := noisyVoice(0.05)
	out := Reduce(buf, testSampleRate, 0.8)
	if len(out) != len(buf) {
		t.Fatalf("Reduce length = %d, want %d", len(out), len(buf))
	}
}

func TestReduceLowersNoiseFloor(t *testing.T) {
	buf := noisyVoice(0.05)
	out := Reduce(buf, testSampleRate, 1.0)

	// Compare the noise-only lead-in, away from the frame edges.
	region := buf[frameSize : testSampleRate/2-frameSize]
	cleaned := out[frameSize : testSampleRate/2-frameSize]

	before := dsp.RMS(region)
	after := dsp.RMS(cleaned)
	if after >= before*0.7 {
		t.Errorf("noise floor RMS after = %f, want < %f (before = %f)",
			after, before*0.7, before)
	}
}

func TestReduceKeepsSignalEnergy(t *testing.T) {
	buf := noisyVoice(0.05)
	out := Reduce(buf, testSampleRate, 1.0)

	// The voiced region must survive: most of its energy is far above
	// the noise profile.
	start := testSampleRate/2 + frameSize
	end := len(buf) - frameSize
	before := dsp.RMS(buf[start:end])
	after := dsp.RMS(out[start:end])
	if after < before*0.5 {
		t.Errorf("voiced RMS after = %f, want >= %f", after, before*0.5)
	}
}

func TestReduceZeroStrengthIsIdentity(t *testing.T) {
	buf := noisyVoice(0.05)
	out := Reduce(buf, testSampleRate, 0)
	for i := range out {
		if out[i] != buf[i] {
			t.Fatalf("strength 0 modified sample %d", i)
		}
	}
}

func TestReduceDegradesGracefully(t *testing.T) {
	buf := noisyVoice(0.05)

	tests := []struct {
		name     string
		buf      []float64
		strength float64
	}{
		{"Strength Above One", buf, 1.5},
		{"Negative Strength", buf, -0.2},
		{"NaN Strength", buf, math.NaN()},
		{"Too Short", buf[:frameSize], 0.8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Reduce(tt.buf, testSampleRate, tt.strength)
			if len(out) != len(tt.buf) {
				t.Fatalf("degraded Reduce length = %d, want %d", len(out), len(tt.buf))
			}
			for i := range out {
				if out[i] != tt.buf[i] {
					t.Fatalf("degraded Reduce modified sample %d", i)
				}
			}
		})
	}
}

func TestStrengthFromPercent(t *testing.T) {
	tests := []struct {
		percent int
		want    float64
	}{
		{0, 0},
		{50, 0.5},
		{100, 1},
		{-10, 0},
		{250, 1},
	}

	for _, tt := range tests {
		if got := StrengthFromPercent(tt.percent); got != tt.want {
			t.Errorf("StrengthFromPercent(%d) = %f, want %f", tt.percent, got, tt.want)
		}
	}
}

func BenchmarkReduce(b *testing.B) {
	buf := noisyVoice(0.05)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Reduce(buf, testSampleRate, 0.8)
	}
}
