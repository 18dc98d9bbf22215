// SPDX-License-Identifier: MIT
/*
Package batch runs a voice-effect preset over a set of uploaded files
and packages the successes into a zip archive. Individual file failures
do not abort the run; they are collected and reported alongside the
archive. Only a run in which every file fails is an error.
*/
package batch

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"voicebox/internal/codec"
	"voicebox/internal/config"
	"voicebox/internal/dsp"
	"voicebox/internal/effects"
	"voicebox/internal/log"
	"voicebox/internal/transport"
)

var (
	ErrNoFiles      = errors.New("no files uploaded")
	ErrTooManyFiles = errors.New("too many files in batch")
	ErrAllFailed    = errors.New("all files failed to process")
)

// File is one uploaded input, already read into memory.
type File struct {
	Name string
	Data []byte
}

// Failure records why one input was skipped. Index is the 1-based
// position of the file in the submitted batch, matching progress events.
type Failure struct {
	Index int
	Name  string
	Err   error
}

// Result describes a finished run. The zip archive and the processed
// files live in a per-run scratch directory until Cleanup is called.
type Result struct {
	ZipPath   string
	Processed int
	Total     int
	Failures  []Failure

	scratchDir string
}

// Summary renders the run outcome in one line.
func (r *Result) Summary() string {
	return fmt.Sprintf("processed %d/%d files (%d failed)",
		r.Processed, r.Total, len(r.Failures))
}

// Cleanup removes the run's scratch directory, including the archive.
// Callers must copy or stream the archive out first.
func (r *Result) Cleanup() error {
	if r.scratchDir == "" {
		return nil
	}
	return os.RemoveAll(r.scratchDir)
}

// Processor applies one preset across a batch.
type Processor struct {
	scratchRoot string
	maxFiles    int
	progress    transport.Transport
}

// NewProcessor creates a batch processor from the batch configuration.
// An empty scratch dir falls back to the system temp directory, an
// unset file limit to the built-in maximum; progress defaults to the
// logging transport.
func NewProcessor(cfg config.BatchConfig, progress transport.Transport) *Processor {
	scratchRoot := cfg.ScratchDir
	if scratchRoot == "" {
		scratchRoot = os.TempDir()
	}
	maxFiles := cfg.MaxFiles
	if maxFiles < 1 {
		maxFiles = config.MaxBatchFiles
	}
	if progress == nil {
		progress = transport.NewLoggingTransport()
	}
	return &Processor{scratchRoot: scratchRoot, maxFiles: maxFiles, progress: progress}
}

// Run validates the batch, processes every file through the preset and
// zips the successes. Per-file errors are collected in the result; Run
// itself fails only on batch-level problems (bad size, unknown preset,
// nothing processed, archive I/O).
func (p *Processor) Run(ctx context.Context, files []File, presetName string) (*Result, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if len(files) > p.maxFiles {
		return nil, fmt.Errorf("%w: maximum %d files, got %d", ErrTooManyFiles, p.maxFiles, len(files))
	}
	preset, err := effects.Lookup(presetName)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	dir := filepath.Join(p.scratchRoot, "voicebox-batch-"+runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}

	result := &Result{Total: len(files), scratchDir: dir}
	var outputs []string
	usedNames := make(map[string]bool)

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			result.Cleanup()
			return nil, err
		}

		p.progress.Send(transport.Event{
			Job: runID, Stage: "processing", File: file.Name,
			Index: i + 1, Total: len(files),
			Fraction: float64(i) / float64(len(files)),
		})

		outPath, err := p.processOne(dir, file, preset, usedNames)
		if err != nil {
			log.Warnf("batch %s: %s failed: %v", runID, file.Name, err)
			result.Failures = append(result.Failures, Failure{Index: i + 1, Name: file.Name, Err: err})
			p.progress.Send(transport.Event{
				Job: runID, Stage: "failed", File: file.Name,
				Index: i + 1, Total: len(files), Error: err.Error(),
			})
			continue
		}
		outputs = append(outputs, outPath)
		result.Processed++
	}

	if result.Processed == 0 {
		result.Cleanup()
		return nil, fmt.Errorf("%w: %d files rejected", ErrAllFailed, len(result.Failures))
	}

	zipPath := filepath.Join(dir, "voicebox_batch_"+runID[:8]+".zip")
	if err := writeArchive(zipPath, outputs); err != nil {
		result.Cleanup()
		return nil, err
	}
	result.ZipPath = zipPath

	p.progress.Send(transport.Event{
		Job: runID, Stage: "done",
		Index: len(files), Total: len(files), Fraction: 1,
	})
	log.Infof("batch %s: %s", runID, result.Summary())
	return result, nil
}

func (p *Processor) processOne(dir string, file File, preset *effects.Preset, usedNames map[string]bool) (string, error) {
	samples, nativeRate, err := codec.DecodeBytes(file.Name, file.Data)
	if err != nil {
		return "", err
	}
	samples = codec.ToWorkingRate(samples, nativeRate)

	out, err := preset.Apply(samples, config.DefaultSampleRate)
	if err != nil {
		return "", err
	}
	out = dsp.Normalize(out, config.NormalizeTarget)

	outName := outputName(file.Name, usedNames)
	usedNames[outName] = true
	outPath := filepath.Join(dir, outName)
	if err := codec.EncodeFile(outPath, out, config.DefaultSampleRate); err != nil {
		return "", err
	}
	return outPath, nil
}

// outputName derives "{stem}_processed.wav" from the upload name,
// stripping any path components and disambiguating collisions.
func outputName(name string, used map[string]bool) string {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	candidate := stem + "_processed.wav"
	for n := 2; used[candidate]; n++ {
		candidate = fmt.Sprintf("%s_processed_%d.wav", stem, n)
	}
	return candidate
}

func writeArchive(zipPath string, files []string) error {
	f, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}
	zw := zip.NewWriter(f)

	for _, path := range files {
		if err := addToArchive(zw, path); err != nil {
			zw.Close()
			f.Close()
			return err
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalizing archive: %w", err)
	}
	return f.Close()
}

func addToArchive(zw *zip.Writer, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("archiving %s: %w", path, err)
	}
	defer src.Close()

	dst, err := zw.Create(filepath.Base(path))
	if err != nil {
		return fmt.Errorf("archiving %s: %w", path, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("archiving %s: %w", path, err)
	}
	return nil
}
