// SPDX-License-Identifier: MIT
package dsp

import (
	"math"
	"testing"

	"voicebox/pkg/utils"
)

func TestBrightnessIdentityAtFactorOne(t *testing.T) {
	buf := utils.GenerateVoiceLike(testSize, testSampleRate, 220)
	out := Brightness(buf, testSampleRate, 1.0)

	if len(out) != len(buf) {
		t.Fatalf("Brightness length = %d, want %d", len(out), len(buf))
	}
	for i := range out {
		if math.Abs(out[i]-buf[i]) > 1e-12 {
			t.Fatalf("Brightness(1.0) changed sample %d by %g", i, out[i]-buf[i])
		}
	}
}

func TestBrightnessBoostRaisesHighBand(t *testing.T) {
	// A 4 kHz tone sits above the 2 kHz shelf, so boosting should raise
	// its level and cutting should lower it.
	high := utils.GenerateSineWave(testSize, testSampleRate, 4000)

	boosted := Brightness(high, testSampleRate, 1.4)
	cut := Brightness(high, testSampleRate, 0.7)

	if RMS(boosted) <= RMS(high) {
		t.Errorf("boost did not raise high-band level: %f <= %f", RMS(boosted), RMS(high))
	}
	if RMS(cut) >= RMS(high) {
		t.Errorf("cut did not lower high-band level: %f >= %f", RMS(cut), RMS(high))
	}
}

func TestBrightnessLeavesLowBandAlone(t *testing.T) {
	low := utils.GenerateSineWave(testSize, testSampleRate, 200)
	out := Brightness(low, testSampleRate, 1.4)

	// Well below the cutoff the shelf contributes almost nothing.
	diff := math.Abs(RMS(out) - RMS(low))
	if diff > 0.01 {
		t.Errorf("brightness moved low-band RMS by %f, want < 0.01", diff)
	}
}

func TestBrightnessOutputBounded(t *testing.T) {
	buf := utils.GenerateSineWave(testSize, testSampleRate, 4000)
	for i := range buf {
		buf[i] *= 1.1 // Deliberately out of range
	}
	out := Brightness(buf, testSampleRate, 1.8)
	if Peak(out) > 1.0 {
		t.Errorf("Brightness output peak = %f, want <= 1.0", Peak(out))
	}
}

func TestBrightnessDegradesGracefully(t *testing.T) {
	buf := utils.GenerateSineWave(testSize, testSampleRate, 220)

	for _, factor := range []float64{-0.5, math.NaN()} {
		out := Brightness(buf, testSampleRate, factor)
		for i := range out {
			if out[i] != buf[i] {
				t.Fatalf("degraded Brightness(%f) modified sample %d", factor, i)
			}
		}
	}

	// A sample rate below twice the cutoff cannot host the shelf.
	out := Brightness(buf, 3000, 1.2)
	for i := range out {
		if out[i] != buf[i] {
			t.Fatalf("Brightness at 3 kHz modified sample %d", i)
		}
	}
}
