// SPDX-License-Identifier: MIT
package tts

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"voicebox/internal/codec"
)

// espeakVoices maps the user-facing voice names onto espeak-ng voice
// codes. The first entry is the default.
var espeakVoices = []struct {
	Name string
	Code string
}{
	{"Male (Default)", "en"},
	{"Female", "en+f3"},
}

const (
	minWordsPerMinute = 80
	maxWordsPerMinute = 450
)

// ESpeakEngine synthesizes speech with a local espeak-ng subprocess.
// Each call writes a temporary WAV file and decodes it; espeak-ng is
// fast enough that the extra file round trip does not matter.
type ESpeakEngine struct {
	binary      string
	defaultRate int
}

// NewESpeakEngine creates the fast engine. binary is the espeak-ng
// executable name or path; defaultRate is in words per minute.
func NewESpeakEngine(binary string, defaultRate int) *ESpeakEngine {
	if binary == "" {
		binary = "espeak-ng"
	}
	return &ESpeakEngine{binary: binary, defaultRate: defaultRate}
}

func (e *ESpeakEngine) Name() string { return "espeak" }

func (e *ESpeakEngine) Voices() []string {
	names := make([]string, len(espeakVoices))
	for i, v := range espeakVoices {
		names[i] = v.Name
	}
	return names
}

// voiceCode resolves a user-facing voice name. Empty selects the
// default; anything unrecognized is an error rather than a guess.
func (e *ESpeakEngine) voiceCode(name string) (string, error) {
	if name == "" {
		return espeakVoices[0].Code, nil
	}
	for _, v := range espeakVoices {
		if v.Name == name {
			return v.Code, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVoice, name)
}

func (e *ESpeakEngine) rate(requested int) int {
	if requested == 0 {
		return e.defaultRate
	}
	if requested < minWordsPerMinute {
		return minWordsPerMinute
	}
	if requested > maxWordsPerMinute {
		return maxWordsPerMinute
	}
	return requested
}

func (e *ESpeakEngine) Synthesize(ctx context.Context, req Request) ([]float64, int, error) {
	code, err := e.voiceCode(req.Voice)
	if err != nil {
		return nil, 0, err
	}

	tmp, err := os.CreateTemp("", "voicebox-tts-*.wav")
	if err != nil {
		return nil, 0, fmt.Errorf("creating scratch file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(ctx, e.binary,
		"-v", code,
		"-s", strconv.Itoa(e.rate(req.Rate)),
		"-w", tmpPath,
		"--", req.Text,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, 0, fmt.Errorf("espeak-ng failed: %w (output: %s)", err, output)
	}

	samples, sampleRate, err := codec.DecodeFile(tmpPath)
	if err != nil {
		return nil, 0, fmt.Errorf("decoding espeak output: %w", err)
	}
	return samples, sampleRate, nil
}

var _ Engine = (*ESpeakEngine)(nil)
