// SPDX-License-Identifier: MIT
package tts

import (
	"context"
	"errors"
	"testing"
)

func TestESpeakVoiceResolution(t *testing.T) {
	e := NewESpeakEngine("", 150)

	tests := []struct {
		name  string
		voice string
		want  string
	}{
		{"Default When Empty", "", "en"},
		{"Male", "Male (Default)", "en"},
		{"Female", "Female", "en+f3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := e.voiceCode(tt.voice)
			if err != nil {
				t.Fatalf("voiceCode(%q) error = %v", tt.voice, err)
			}
			if code != tt.want {
				t.Errorf("voiceCode(%q) = %q, want %q", tt.voice, code, tt.want)
			}
		})
	}
}

func TestESpeakRejectsUnknownVoice(t *testing.T) {
	e := NewESpeakEngine("", 150)

	// Voice resolution happens before the subprocess runs, so this is
	// safe without espeak-ng installed.
	_, _, err := e.Synthesize(context.Background(), Request{Text: "hi", Voice: "Narrator"})
	if !errors.Is(err, ErrUnknownVoice) {
		t.Errorf("error = %v, want ErrUnknownVoice", err)
	}
}

func TestESpeakRateClamping(t *testing.T) {
	e := NewESpeakEngine("", 150)

	tests := []struct {
		requested, want int
	}{
		{0, 150},
		{200, 200},
		{10, minWordsPerMinute},
		{9000, maxWordsPerMinute},
	}

	for _, tt := range tests {
		if got := e.rate(tt.requested); got != tt.want {
			t.Errorf("rate(%d) = %d, want %d", tt.requested, got, tt.want)
		}
	}
}

func TestESpeakVoicesList(t *testing.T) {
	e := NewESpeakEngine("", 150)
	voices := e.Voices()
	if len(voices) != 2 {
		t.Fatalf("Voices() = %v, want 2 entries", voices)
	}
	if voices[0] != "Male (Default)" || voices[1] != "Female" {
		t.Errorf("Voices() = %v", voices)
	}
}
