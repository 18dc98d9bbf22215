// SPDX-License-Identifier: MIT
package batch

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"voicebox/internal/codec"
	"voicebox/internal/config"
	"voicebox/internal/effects"
	"voicebox/internal/transport"
	"voicebox/pkg/utils"
)

// wavBytes renders a one-second voiced tone as a 16-bit mono WAV.
func wavBytes(t *testing.T) []byte {
	t.Helper()
	buf := utils.GenerateVoiceLike(config.DefaultSampleRate, config.DefaultSampleRate, 220)
	path := filepath.Join(t.TempDir(), "in.wav")
	if err := codec.EncodeFile(path, buf, config.DefaultSampleRate); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading fixture: %v", err)
	}
	return data
}

func TestRunProcessesBatch(t *testing.T) {
	data := wavBytes(t)
	files := []File{
		{Name: "alpha.wav", Data: data},
		{Name: "beta.wav", Data: data},
		{Name: "gamma.wav", Data: data},
	}

	progress := &utils.CollectTransport{}
	p := NewProcessor(config.BatchConfig{ScratchDir: t.TempDir()}, progress)

	result, err := p.Run(context.Background(), files, "Echo Effect")
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	defer result.Cleanup()

	if result.Processed != 3 || len(result.Failures) != 0 {
		t.Fatalf("processed = %d, failures = %d, want 3 and 0",
			result.Processed, len(result.Failures))
	}
	if got, want := result.Summary(), "processed 3/3 files (0 failed)"; got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}

	zr, err := zip.OpenReader(result.ZipPath)
	if err != nil {
		t.Fatalf("opening archive: %v", err)
	}
	defer zr.Close()

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"alpha_processed.wav", "beta_processed.wav", "gamma_processed.wav"} {
		if !names[want] {
			t.Errorf("archive missing %q (has %v)", want, names)
		}
	}

	var sawProcessing, sawDone bool
	for _, sent := range progress.Sent {
		ev, ok := sent.(transport.Event)
		if !ok {
			continue
		}
		switch ev.Stage {
		case "processing":
			sawProcessing = true
		case "done":
			sawDone = true
		}
	}
	if !sawProcessing || !sawDone {
		t.Errorf("progress events incomplete: processing=%v done=%v", sawProcessing, sawDone)
	}
}

func TestRunRejectsBatchSize(t *testing.T) {
	p := NewProcessor(config.BatchConfig{ScratchDir: t.TempDir()}, nil)

	_, err := p.Run(context.Background(), nil, "Echo Effect")
	if !errors.Is(err, ErrNoFiles) {
		t.Errorf("empty batch error = %v, want ErrNoFiles", err)
	}

	files := make([]File, config.MaxBatchFiles+1)
	for i := range files {
		files[i] = File{Name: fmt.Sprintf("f%d.wav", i)}
	}
	_, err = p.Run(context.Background(), files, "Echo Effect")
	if !errors.Is(err, ErrTooManyFiles) {
		t.Errorf("oversized batch error = %v, want ErrTooManyFiles", err)
	}
	if err != nil && !strings.Contains(err.Error(), fmt.Sprintf("maximum %d", config.MaxBatchFiles)) {
		t.Errorf("error %q does not state the %d-file limit", err, config.MaxBatchFiles)
	}
}

func TestRunHonorsConfiguredMaxFiles(t *testing.T) {
	data := wavBytes(t)
	files := []File{
		{Name: "a.wav", Data: data},
		{Name: "b.wav", Data: data},
		{Name: "c.wav", Data: data},
	}

	p := NewProcessor(config.BatchConfig{ScratchDir: t.TempDir(), MaxFiles: 2}, nil)
	_, err := p.Run(context.Background(), files, "Echo Effect")
	if !errors.Is(err, ErrTooManyFiles) {
		t.Fatalf("error = %v, want ErrTooManyFiles at configured limit", err)
	}
	if !strings.Contains(err.Error(), "maximum 2") {
		t.Errorf("error %q does not state the configured limit", err)
	}
}

func TestRunRejectsUnknownPreset(t *testing.T) {
	p := NewProcessor(config.BatchConfig{ScratchDir: t.TempDir()}, nil)
	files := []File{{Name: "a.wav", Data: wavBytes(t)}}

	_, err := p.Run(context.Background(), files, "Nonexistent Effect")
	if !errors.Is(err, effects.ErrUnknownPreset) {
		t.Errorf("error = %v, want ErrUnknownPreset", err)
	}
}

func TestRunCollectsPerFileFailures(t *testing.T) {
	data := wavBytes(t)
	files := []File{
		{Name: "good1.wav", Data: data},
		{Name: "corrupt.wav", Data: []byte("not a wav file")},
		{Name: "good2.wav", Data: data},
	}

	p := NewProcessor(config.BatchConfig{ScratchDir: t.TempDir()}, nil)
	result, err := p.Run(context.Background(), files, "Echo Effect")
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	defer result.Cleanup()

	if result.Processed != 2 {
		t.Errorf("processed = %d, want 2", result.Processed)
	}
	if len(result.Failures) != 1 || result.Failures[0].Name != "corrupt.wav" {
		t.Fatalf("failures = %+v, want one for corrupt.wav", result.Failures)
	}
	if result.Failures[0].Index != 2 {
		t.Errorf("failure index = %d, want 2 (second file in the batch)", result.Failures[0].Index)
	}
	if got, want := result.Summary(), "processed 2/3 files (1 failed)"; got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

func TestRunAllFilesFailing(t *testing.T) {
	files := []File{
		{Name: "a.wav", Data: []byte("junk")},
		{Name: "b.txt", Data: wavBytes(t)},
	}

	p := NewProcessor(config.BatchConfig{ScratchDir: t.TempDir()}, nil)
	_, err := p.Run(context.Background(), files, "Echo Effect")
	if !errors.Is(err, ErrAllFailed) {
		t.Errorf("error = %v, want ErrAllFailed", err)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProcessor(config.BatchConfig{ScratchDir: t.TempDir()}, nil)
	files := []File{{Name: "a.wav", Data: wavBytes(t)}}

	_, err := p.Run(ctx, files, "Echo Effect")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestCleanupRemovesScratchDir(t *testing.T) {
	p := NewProcessor(config.BatchConfig{ScratchDir: t.TempDir()}, nil)
	files := []File{{Name: "a.wav", Data: wavBytes(t)}}

	result, err := p.Run(context.Background(), files, "Echo Effect")
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}

	if err := result.Cleanup(); err != nil {
		t.Fatalf("Cleanup error = %v", err)
	}
	if _, err := os.Stat(result.ZipPath); !os.IsNotExist(err) {
		t.Errorf("archive still present after Cleanup: %v", err)
	}
}
