// SPDX-License-Identifier: MIT
/*
Package tts turns text into mono sample buffers. Two engines are
available: a local espeak-ng subprocess ("fast") and a remote neural
service ("realistic"). The Dispatcher routes requests by quality and
falls back to the fast engine when the neural service cannot deliver,
so a synthesis request only fails outright when both paths fail.
*/
package tts

import (
	"context"
	"errors"
	"fmt"

	"voicebox/internal/config"
	"voicebox/internal/log"
)

// Quality selectors accepted by the Dispatcher.
const (
	QualityFast      = "fast"
	QualityRealistic = "realistic"
)

var (
	ErrEmptyText      = errors.New("text is empty")
	ErrTextTooLong    = errors.New("text too long")
	ErrUnknownVoice   = errors.New("unknown voice")
	ErrUnknownQuality = errors.New("unknown quality")
)

// Request describes one synthesis call. Voice and Rate are optional;
// each engine substitutes its defaults.
type Request struct {
	Text  string
	Voice string
	Rate  int // words per minute
}

// Engine produces mono samples in [-1, 1] from text and reports the
// sample rate of its output.
type Engine interface {
	Name() string
	Voices() []string
	Synthesize(ctx context.Context, req Request) ([]float64, int, error)
}

// ValidateText enforces the shared text contract before any engine
// sees the request.
func ValidateText(text string) error {
	if text == "" {
		return ErrEmptyText
	}
	if len(text) > config.MaxTextLength {
		return fmt.Errorf("%w: %d characters (max %d)",
			ErrTextTooLong, len(text), config.MaxTextLength)
	}
	return nil
}

// Dispatcher routes synthesis requests to an engine by quality.
type Dispatcher struct {
	fast       Engine
	realistic  Engine
	onFallback func()
}

// NewDispatcher wires the two quality tiers. realistic may be nil, in
// which case realistic requests degrade to the fast engine.
func NewDispatcher(fast, realistic Engine) *Dispatcher {
	return &Dispatcher{fast: fast, realistic: realistic}
}

// OnFallback registers fn to run every time a realistic request is
// served by the fast engine instead.
func (d *Dispatcher) OnFallback(fn func()) {
	d.onFallback = fn
}

func (d *Dispatcher) noteFallback() {
	if d.onFallback != nil {
		d.onFallback()
	}
}

// Synthesize validates the request and runs it on the engine selected
// by quality. A failing realistic engine degrades to the fast one.
func (d *Dispatcher) Synthesize(ctx context.Context, quality string, req Request) ([]float64, int, error) {
	if err := ValidateText(req.Text); err != nil {
		return nil, 0, err
	}

	switch quality {
	case QualityFast, "":
		return d.fast.Synthesize(ctx, req)
	case QualityRealistic:
		if d.realistic == nil {
			log.Warnf("tts: no realistic engine configured, using %s", d.fast.Name())
			d.noteFallback()
			req.Voice = "" // persona names mean nothing to the fast engine
			return d.fast.Synthesize(ctx, req)
		}
		samples, rate, err := d.realistic.Synthesize(ctx, req)
		if err == nil {
			return samples, rate, nil
		}
		if errors.Is(err, ErrUnknownVoice) {
			return nil, 0, err
		}
		log.Warnf("tts: %s engine failed (%v), falling back to %s",
			d.realistic.Name(), err, d.fast.Name())
		d.noteFallback()
		req.Voice = ""
		return d.fast.Synthesize(ctx, req)
	default:
		return nil, 0, fmt.Errorf("%w: %q", ErrUnknownQuality, quality)
	}
}

// Voices lists the voices of the engine behind a quality selector.
func (d *Dispatcher) Voices(quality string) ([]string, error) {
	switch quality {
	case QualityFast, "":
		return d.fast.Voices(), nil
	case QualityRealistic:
		if d.realistic == nil {
			return d.fast.Voices(), nil
		}
		return d.realistic.Voices(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownQuality, quality)
	}
}
