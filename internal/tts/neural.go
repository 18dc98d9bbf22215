// SPDX-License-Identifier: MIT
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"voicebox/internal/codec"
)

// Neural service API contract.
const (
	neuralSynthesizePath = "/v1/generate/speech"
	neuralHealthPath     = "/health"

	healthCheckTimeout = 10 * time.Second
)

// neuralVoices lists the persona presets the neural service exposes.
// The first entry is the default.
var neuralVoices = []string{
	"News Anchor (Male)",
	"News Anchor (Female)",
	"Narrator (Male)",
	"Narrator (Female)",
	"Young Energetic (Female)",
	"Deep Voice (Male)",
}

// NeuralEngine synthesizes speech through a standalone neural TTS
// service speaking a small JSON-in, WAV-out HTTP contract.
type NeuralEngine struct {
	baseURL    string
	httpClient *http.Client
}

type neuralRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

type neuralError struct {
	Detail string `json:"detail"`
}

// NewNeuralEngine creates the realistic engine. baseURL includes the
// protocol and port; timeout bounds every synthesis call.
func NewNeuralEngine(baseURL string, timeout time.Duration) *NeuralEngine {
	return &NeuralEngine{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (n *NeuralEngine) Name() string { return "neural" }

func (n *NeuralEngine) Voices() []string {
	voices := make([]string, len(neuralVoices))
	copy(voices, neuralVoices)
	return voices
}

// resolveVoice picks the persona to request. Empty selects the default;
// unrecognized names are an error rather than a guess.
func (n *NeuralEngine) resolveVoice(name string) (string, error) {
	if name == "" {
		return neuralVoices[0], nil
	}
	for _, v := range neuralVoices {
		if v == name {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVoice, name)
}

// Health verifies the service is up. Run it before large workloads to
// fail fast.
func (n *NeuralEngine) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+neuralHealthPath, http.NoBody)
	if err != nil {
		return fmt.Errorf("creating health request: %w", err)
	}
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for %s: %w", n.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned %s", resp.Status)
	}
	return nil
}

func (n *NeuralEngine) Synthesize(ctx context.Context, req Request) ([]float64, int, error) {
	voice, err := n.resolveVoice(req.Voice)
	if err != nil {
		return nil, 0, err
	}

	payload, err := json.Marshal(neuralRequest{Text: req.Text, Voice: voice})
	if err != nil {
		return nil, 0, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		n.baseURL+neuralSynthesizePath, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/wav")

	resp, err := n.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("calling neural service at %s: %w", n.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, n.parseError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading audio response: %w", err)
	}
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("neural service returned empty audio")
	}

	samples, sampleRate, err := codec.DecodeWAV(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("decoding neural audio: %w", err)
	}
	return samples, sampleRate, nil
}

// parseError prefers the service's structured JSON error and falls
// back to the raw body.
func (n *NeuralEngine) parseError(resp *http.Response) error {
	var svcErr neuralError
	if err := json.NewDecoder(resp.Body).Decode(&svcErr); err == nil && svcErr.Detail != "" {
		return fmt.Errorf("neural service error (%s): %s", resp.Status, svcErr.Detail)
	}
	body, _ := io.ReadAll(resp.Body)
	return fmt.Errorf("neural service returned %s: %s", resp.Status, body)
}

var _ Engine = (*NeuralEngine)(nil)
