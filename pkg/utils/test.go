package utils

import "math"

// CollectTransport implements the transport.Transport interface for
// testing: it records everything sent instead of transmitting.
type CollectTransport struct {
	Sent []any
}

// Send stores the event for later inspection.
func (c *CollectTransport) Send(data any) error {
	c.Sent = append(c.Sent, data)
	return nil
}

// Close is a no-op.
func (c *CollectTransport) Close() error { return nil }

// GenerateSineWave produces a mono test tone at 90% of full scale.
func GenerateSineWave(size int, sampleRate, frequency float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		buffer[i] = math.Sin(2*math.Pi*frequency*t) * 0.9
	}
	return buffer
}

// GenerateVoiceLike produces a harmonic-rich signal resembling a vowel:
// a fundamental plus decaying harmonics, amplitude-modulated at a slow
// rate so level-dependent code paths see variation.
func GenerateVoiceLike(size int, sampleRate, fundamental float64) []float64 {
	buffer := make([]float64, size)
	for i := range buffer {
		t := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*fundamental*t)*0.5 +
			math.Sin(2*math.Pi*2*fundamental*t)*0.3 +
			math.Sin(2*math.Pi*3*fundamental*t)*0.2
		envelope := 0.7 + 0.3*math.Sin(2*math.Pi*3*t)
		buffer[i] = signal * envelope * 0.8
	}
	return buffer
}

// FindPeakBin returns the index of the largest magnitude in [startBin, endBin].
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}
	return peakBin
}
