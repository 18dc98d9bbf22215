// SPDX-License-Identifier: MIT
package dsp

import (
	"math"
	"testing"

	"voicebox/pkg/utils"
)

func TestDistortBounded(t *testing.T) {
	buf := utils.GenerateSineWave(testSize, testSampleRate, 220)

	for _, drive := range []float64{0, 5, 15, 40} {
		out := Distort(buf, drive)
		if len(out) != len(buf) {
			t.Fatalf("Distort(%f) length = %d, want %d", drive, len(out), len(buf))
		}
		if Peak(out) > 1.0 {
			t.Errorf("Distort(%f) peak = %f, want <= 1.0", drive, Peak(out))
		}
	}
}

func TestDistortIncreasesSaturation(t *testing.T) {
	buf := utils.GenerateSineWave(testSize, testSampleRate, 220)
	out := Distort(buf, 15)

	// Hard drive pushes the sine toward a square wave, which raises RMS
	// relative to the peak.
	inCrest := Peak(buf) / RMS(buf)
	outCrest := Peak(out) / RMS(out)
	if outCrest >= inCrest {
		t.Errorf("distortion did not flatten crest factor: %f >= %f", outCrest, inCrest)
	}
}

func TestDistortDegradesGracefully(t *testing.T) {
	buf := utils.GenerateSineWave(testSize, testSampleRate, 220)
	for _, drive := range []float64{-3, 100, math.NaN()} {
		out := Distort(buf, drive)
		for i := range out {
			if out[i] != buf[i] {
				t.Fatalf("degraded Distort(%f) modified sample %d", drive, i)
			}
		}
	}
}

func TestChorusLengthAndBounds(t *testing.T) {
	buf := utils.GenerateVoiceLike(testSize, testSampleRate, 220)
	out := Chorus(buf, testSampleRate, 1.5, 0.3, 0.5)

	if len(out) != len(buf) {
		t.Fatalf("Chorus length = %d, want %d", len(out), len(buf))
	}
	if Peak(out) > 1.0 {
		t.Errorf("Chorus peak = %f, want <= 1.0", Peak(out))
	}

	// The wet path must actually change the signal.
	same := true
	for i := range out {
		if out[i] != buf[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("Chorus left the signal untouched")
	}
}

func TestChorusDegradesGracefully(t *testing.T) {
	buf := utils.GenerateSineWave(testSize, testSampleRate, 220)

	tests := []struct {
		name              string
		rate, depth, mixL float64
	}{
		{"Zero Rate", 0, 0.3, 0.5},
		{"Depth Above One", 1.5, 1.5, 0.5},
		{"Mix Above One", 1.5, 0.3, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Chorus(buf, testSampleRate, tt.rate, tt.depth, tt.mixL)
			for i := range out {
				if out[i] != buf[i] {
					t.Fatalf("degraded Chorus modified sample %d", i)
				}
			}
		})
	}
}

func TestCompressCurve(t *testing.T) {
	buf := []float64{-1, -0.5, 0, 0.5, 1}
	out := Compress(buf)

	for i, x := range buf {
		want := math.Tanh(x*2) * 0.8
		if math.Abs(out[i]-want) > 1e-12 {
			t.Errorf("Compress(%f) = %f, want %f", x, out[i], want)
		}
	}
	if Peak(out) > 0.8 {
		t.Errorf("Compress peak = %f, want <= 0.8", Peak(out))
	}
}
