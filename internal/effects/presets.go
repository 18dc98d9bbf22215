// SPDX-License-Identifier: MIT
/*
Package effects defines the named voice-effect presets: fixed, ordered
pipelines over the dsp primitives. Presets are data, not code — adding
one means appending a table entry. The numeric constants in each pipeline
(semitone offsets, resample ratios, brightness factors) are preserved
tuning values; they define the sound of the preset and are not meant to
be refined.
*/
package effects

import (
	"errors"
	"fmt"

	"voicebox/internal/config"
	"voicebox/internal/dsp"
)

// Validation errors surfaced to the caller before any processing runs.
var (
	ErrEmptyAudio    = errors.New("audio data is empty")
	ErrTooShort      = errors.New("audio too short")
	ErrTooLong       = errors.New("audio too long")
	ErrUnknownPreset = errors.New("unknown effect preset")
)

// Transform is one step of a preset pipeline: mono samples in, mono
// samples out. Transforms never fail; a transform that cannot run
// returns its input unchanged (the dsp degradation contract).
type Transform func(buf []float64, sampleRate int) []float64

// Preset is a named, immutable chain of transforms applied in order.
type Preset struct {
	Name        string
	Description string
	chain       []Transform
}

// presetTable defines every effect in display order. Identifiers must
// match exactly; selection never falls back to a default.
var presetTable = []Preset{
	{
		Name:        "Male → Female",
		Description: "Raises pitch and formants toward a female register",
		chain: []Transform{
			func(buf []float64, sr int) []float64 { return dsp.PitchShift(buf, sr, 4.0) },
			func(buf []float64, sr int) []float64 { return dsp.FormantShift(buf, 1.15) },
			func(buf []float64, sr int) []float64 { return dsp.Brightness(buf, sr, 1.2) },
		},
	},
	{
		Name:        "Female → Male",
		Description: "Lowers pitch and formants toward a male register",
		chain: []Transform{
			func(buf []float64, sr int) []float64 { return dsp.PitchShift(buf, sr, -4.0) },
			func(buf []float64, sr int) []float64 { return dsp.FormantShift(buf, 0.88) },
			func(buf []float64, sr int) []float64 { return dsp.Brightness(buf, sr, 0.8) },
		},
	},
	{
		Name:        "Kid Voice",
		Description: "High pitch, slightly faster, extra brightness",
		chain: []Transform{
			func(buf []float64, sr int) []float64 { return dsp.PitchShift(buf, sr, 6.0) },
			func(buf []float64, sr int) []float64 { return dsp.TimeStretch(buf, sr, 1.15) },
			func(buf []float64, sr int) []float64 { return dsp.Brightness(buf, sr, 1.3) },
		},
	},
	{
		Name:        "Robot Voice",
		Description: "Saturated, chorused and compressed metallic timbre",
		chain: []Transform{
			func(buf []float64, sr int) []float64 { return dsp.Distort(buf, 15) },
			func(buf []float64, sr int) []float64 { return dsp.Chorus(buf, sr, 1.5, 0.3, 0.5) },
			func(buf []float64, sr int) []float64 { return dsp.PitchShift(buf, sr, 0.5) },
			func(buf []float64, sr int) []float64 { return dsp.Compress(buf) },
		},
	},
	{
		Name:        "Anime Voice",
		Description: "High pitch with brightness and a light room",
		chain: []Transform{
			func(buf []float64, sr int) []float64 { return dsp.PitchShift(buf, sr, 5.0) },
			func(buf []float64, sr int) []float64 { return dsp.Brightness(buf, sr, 1.4) },
			func(buf []float64, sr int) []float64 { return dsp.Reverb(buf, sr, 0.3, 0.5, 0.15) },
		},
	},
	{
		Name:        "Celebrity (Deep)",
		Description: "Deep, authoritative delivery",
		chain: []Transform{
			func(buf []float64, sr int) []float64 { return dsp.PitchShift(buf, sr, -3.0) },
			func(buf []float64, sr int) []float64 { return dsp.Brightness(buf, sr, 0.7) },
		},
	},
	{
		Name:        "Celebrity (Smooth)",
		Description: "Radio-host smoothness with a small room",
		chain: []Transform{
			func(buf []float64, sr int) []float64 { return dsp.PitchShift(buf, sr, -1.5) },
			func(buf []float64, sr int) []float64 { return dsp.Reverb(buf, sr, 0.2, 0.7, 0.1) },
		},
	},
	{
		Name:        "Celebrity (Energetic)",
		Description: "Upbeat: higher, faster, brighter",
		chain: []Transform{
			func(buf []float64, sr int) []float64 { return dsp.PitchShift(buf, sr, 2.0) },
			func(buf []float64, sr int) []float64 { return dsp.TimeStretch(buf, sr, 1.1) },
			func(buf []float64, sr int) []float64 { return dsp.Brightness(buf, sr, 1.3) },
		},
	},
	{
		Name:        "Echo Effect",
		Description: "Single 0.3 s echo at half level",
		chain: []Transform{
			func(buf []float64, sr int) []float64 { return dsp.Echo(buf, sr, 0.3, 0.5) },
		},
	},
}

var presetIndex = func() map[string]*Preset {
	idx := make(map[string]*Preset, len(presetTable))
	for i := range presetTable {
		idx[presetTable[i].Name] = &presetTable[i]
	}
	return idx
}()

// Names returns every preset identifier in display order.
func Names() []string {
	names := make([]string, len(presetTable))
	for i := range presetTable {
		names[i] = presetTable[i].Name
	}
	return names
}

// All returns the preset table in display order.
func All() []Preset {
	out := make([]Preset, len(presetTable))
	copy(out, presetTable)
	return out
}

// Lookup resolves a preset by its exact identifier. An unrecognized
// identifier is an error naming the offending string, never a silent
// default.
func Lookup(name string) (*Preset, error) {
	p, ok := presetIndex[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return p, nil
}

// ValidateBuffer checks the audio-buffer contract shared by every
// processing entry point: non-empty, duration within configured bounds.
func ValidateBuffer(buf []float64, sampleRate int) error {
	if len(buf) == 0 {
		return ErrEmptyAudio
	}
	duration := dsp.Duration(buf, sampleRate)
	if duration < config.MinDurationSec {
		return fmt.Errorf("%w: %.2fs (min: %.1fs)", ErrTooShort, duration, config.MinDurationSec)
	}
	if duration > config.MaxDurationSec {
		return fmt.Errorf("%w: %.1fs (max: %.0fs)", ErrTooLong, duration, config.MaxDurationSec)
	}
	return nil
}

// Apply validates buf and runs the preset's transform chain over it,
// returning a new buffer clipped to [-1, 1].
func (p *Preset) Apply(buf []float64, sampleRate int) ([]float64, error) {
	if err := ValidateBuffer(buf, sampleRate); err != nil {
		return nil, err
	}

	out := buf
	for _, step := range p.chain {
		out = step(out, sampleRate)
	}
	return dsp.Clamp(out), nil
}

// ApplyByName is the single-call form used by the CLI and HTTP handlers.
func ApplyByName(name string, buf []float64, sampleRate int) ([]float64, error) {
	p, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return p.Apply(buf, sampleRate)
}
