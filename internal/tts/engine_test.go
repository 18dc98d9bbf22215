// SPDX-License-Identifier: MIT
package tts

import (
	"context"
	"errors"
	"strings"
	"testing"

	"voicebox/internal/config"
)

// stubEngine records calls and returns canned output.
type stubEngine struct {
	name   string
	err    error
	called int
}

func (s *stubEngine) Name() string     { return s.name }
func (s *stubEngine) Voices() []string { return []string{s.name + " voice"} }

func (s *stubEngine) Synthesize(ctx context.Context, req Request) ([]float64, int, error) {
	s.called++
	if s.err != nil {
		return nil, 0, s.err
	}
	return make([]float64, 100), 22050, nil
}

func TestValidateText(t *testing.T) {
	if err := ValidateText("hello"); err != nil {
		t.Errorf("ValidateText(valid) = %v", err)
	}
	if err := ValidateText(""); !errors.Is(err, ErrEmptyText) {
		t.Errorf("ValidateText(empty) = %v, want ErrEmptyText", err)
	}
	long := strings.Repeat("a", config.MaxTextLength+1)
	if err := ValidateText(long); !errors.Is(err, ErrTextTooLong) {
		t.Errorf("ValidateText(long) = %v, want ErrTextTooLong", err)
	}
	exact := strings.Repeat("a", config.MaxTextLength)
	if err := ValidateText(exact); err != nil {
		t.Errorf("ValidateText(at limit) = %v, want nil", err)
	}
}

func TestDispatcherRoutesByQuality(t *testing.T) {
	fast := &stubEngine{name: "fast"}
	realistic := &stubEngine{name: "realistic"}
	d := NewDispatcher(fast, realistic)
	req := Request{Text: "hello"}

	if _, _, err := d.Synthesize(context.Background(), QualityFast, req); err != nil {
		t.Fatalf("fast synthesis error = %v", err)
	}
	if fast.called != 1 || realistic.called != 0 {
		t.Errorf("fast quality: fast=%d realistic=%d, want 1 and 0", fast.called, realistic.called)
	}

	if _, _, err := d.Synthesize(context.Background(), QualityRealistic, req); err != nil {
		t.Fatalf("realistic synthesis error = %v", err)
	}
	if realistic.called != 1 {
		t.Errorf("realistic quality did not reach realistic engine")
	}
}

func TestDispatcherFallsBackToFast(t *testing.T) {
	fast := &stubEngine{name: "fast"}
	realistic := &stubEngine{name: "realistic", err: errors.New("service down")}
	d := NewDispatcher(fast, realistic)

	fallbacks := 0
	d.OnFallback(func() { fallbacks++ })

	samples, rate, err := d.Synthesize(context.Background(), QualityRealistic, Request{Text: "hello"})
	if err != nil {
		t.Fatalf("expected fallback, got error %v", err)
	}
	if len(samples) == 0 || rate == 0 {
		t.Error("fallback produced no audio")
	}
	if fast.called != 1 || realistic.called != 1 {
		t.Errorf("calls: fast=%d realistic=%d, want 1 and 1", fast.called, realistic.called)
	}
	if fallbacks != 1 {
		t.Errorf("fallback hook ran %d times, want 1", fallbacks)
	}

	// Requests the fast engine serves directly are not fallbacks.
	if _, _, err := d.Synthesize(context.Background(), QualityFast, Request{Text: "hello"}); err != nil {
		t.Fatalf("fast synthesis error = %v", err)
	}
	if fallbacks != 1 {
		t.Errorf("fallback hook ran %d times after direct fast request, want 1", fallbacks)
	}
}

func TestDispatcherWithoutRealisticEngine(t *testing.T) {
	fast := &stubEngine{name: "fast"}
	d := NewDispatcher(fast, nil)

	fallbacks := 0
	d.OnFallback(func() { fallbacks++ })

	if _, _, err := d.Synthesize(context.Background(), QualityRealistic, Request{Text: "hi"}); err != nil {
		t.Fatalf("expected degrade to fast, got %v", err)
	}
	if fast.called != 1 {
		t.Error("fast engine was not used as substitute")
	}
	if fallbacks != 1 {
		t.Errorf("fallback hook ran %d times, want 1", fallbacks)
	}
}

func TestDispatcherRejectsBadInput(t *testing.T) {
	d := NewDispatcher(&stubEngine{name: "fast"}, nil)

	if _, _, err := d.Synthesize(context.Background(), QualityFast, Request{}); !errors.Is(err, ErrEmptyText) {
		t.Errorf("empty text error = %v, want ErrEmptyText", err)
	}
	if _, _, err := d.Synthesize(context.Background(), "studio", Request{Text: "hi"}); !errors.Is(err, ErrUnknownQuality) {
		t.Errorf("bad quality error = %v, want ErrUnknownQuality", err)
	}
}

func TestDispatcherVoices(t *testing.T) {
	fast := &stubEngine{name: "fast"}
	d := NewDispatcher(fast, nil)

	voices, err := d.Voices(QualityFast)
	if err != nil || len(voices) == 0 {
		t.Errorf("Voices(fast) = %v, %v", voices, err)
	}
	if _, err := d.Voices("studio"); !errors.Is(err, ErrUnknownQuality) {
		t.Errorf("Voices(bad quality) error = %v, want ErrUnknownQuality", err)
	}
}
