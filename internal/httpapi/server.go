// SPDX-License-Identifier: MIT
/*
Package httpapi exposes the processing pipeline over HTTP: preset
effects, denoising, batch conversion and speech synthesis, plus the
health, metrics and batch-progress endpoints.
*/
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"voicebox/internal/batch"
	"voicebox/internal/codec"
	"voicebox/internal/config"
	"voicebox/internal/denoise"
	"voicebox/internal/dsp"
	"voicebox/internal/effects"
	"voicebox/internal/log"
	"voicebox/internal/observability"
	"voicebox/internal/transport"
	"voicebox/internal/tts"
)

// multipart uploads spill to disk past this in-memory cap.
const multipartMemoryLimit = 32 << 20

type Server struct {
	cfg        config.Config
	dispatcher *tts.Dispatcher
	batches    *batch.Processor
	metrics    *observability.Metrics
	hub        *transport.Hub
}

// New wires the API server. The hub carries batch progress and is
// mounted on the router; callers must Close it on shutdown.
func New(cfg config.Config, dispatcher *tts.Dispatcher, metrics *observability.Metrics) *Server {
	hub := transport.NewHub(cfg.Server.AllowAnyOrigin)
	dispatcher.OnFallback(metrics.TTSFallbacks.Inc)
	return &Server{
		cfg:        cfg,
		dispatcher: dispatcher,
		batches:    batch.NewProcessor(cfg.Batch, hub),
		metrics:    metrics,
		hub:        hub,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.metrics.Handler().ServeHTTP(w, r)
	})

	r.Get("/v1/presets", s.handlePresets)
	r.Post("/v1/effects", s.handleEffects)
	r.Post("/v1/denoise", s.handleDenoise)
	r.Post("/v1/tts", s.handleTTS)
	r.Get("/v1/tts/voices", s.handleVoices)
	r.Post("/v1/batch", s.handleBatch)
	r.Get("/v1/batch/ws", s.hub.Handler())

	return r
}

// Close releases the progress hub.
func (s *Server) Close() error {
	return s.hub.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type presetInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handlePresets(w http.ResponseWriter, _ *http.Request) {
	all := effects.All()
	out := make([]presetInfo, len(all))
	for i, p := range all {
		out[i] = presetInfo{Name: p.Name, Description: p.Description}
	}
	respondJSON(w, http.StatusOK, map[string]any{"presets": out})
}

func (s *Server) handleEffects(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	name, data, err := s.readUpload(r, "file")
	if err != nil {
		s.fail(w, "effects", start, uploadStatus(err), "invalid_upload", err)
		return
	}
	presetName := r.FormValue("preset")

	samples, nativeRate, err := codec.DecodeBytes(name, data)
	if err != nil {
		s.fail(w, "effects", start, statusFor(err), "invalid_audio", err)
		return
	}
	samples = codec.ToWorkingRate(samples, nativeRate)

	out, err := effects.ApplyByName(presetName, samples, config.DefaultSampleRate)
	if err != nil {
		s.fail(w, "effects", start, statusFor(err), "processing_rejected", err)
		return
	}
	out = dsp.Normalize(out, config.NormalizeTarget)

	s.respondWAV(w, "effects", start, out, config.DefaultSampleRate, "converted.wav")
}

func (s *Server) handleDenoise(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	name, data, err := s.readUpload(r, "file")
	if err != nil {
		s.fail(w, "denoise", start, uploadStatus(err), "invalid_upload", err)
		return
	}

	strength := 50
	if raw := r.FormValue("strength"); raw != "" {
		strength, err = strconv.Atoi(raw)
		if err != nil {
			s.fail(w, "denoise", start, http.StatusBadRequest, "invalid_strength",
				fmt.Errorf("strength must be an integer: %w", err))
			return
		}
	}

	samples, nativeRate, err := codec.DecodeBytes(name, data)
	if err != nil {
		s.fail(w, "denoise", start, statusFor(err), "invalid_audio", err)
		return
	}
	samples = codec.ToWorkingRate(samples, nativeRate)

	if err := effects.ValidateBuffer(samples, config.DefaultSampleRate); err != nil {
		s.fail(w, "denoise", start, statusFor(err), "processing_rejected", err)
		return
	}

	out := denoise.Reduce(samples, config.DefaultSampleRate, denoise.StrengthFromPercent(strength))
	s.respondWAV(w, "denoise", start, out, config.DefaultSampleRate, "denoised.wav")
}

type ttsRequest struct {
	Text    string `json:"text"`
	Voice   string `json:"voice,omitempty"`
	Quality string `json:"quality,omitempty"`
	Rate    int    `json:"rate,omitempty"`
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req ttsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.fail(w, "tts", start, http.StatusBadRequest, "invalid_request", err)
		return
	}

	samples, rate, err := s.dispatcher.Synthesize(r.Context(), req.Quality, tts.Request{
		Text:  req.Text,
		Voice: req.Voice,
		Rate:  req.Rate,
	})
	if err != nil {
		s.fail(w, "tts", start, statusFor(err), "synthesis_failed", err)
		return
	}
	s.respondWAV(w, "tts", start, samples, rate, "speech.wav")
}

func (s *Server) handleVoices(w http.ResponseWriter, r *http.Request) {
	voices, err := s.dispatcher.Voices(r.URL.Query().Get("quality"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_quality", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"voices": voices})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		s.fail(w, "batch", start, http.StatusBadRequest, "invalid_upload", err)
		return
	}
	presetName := r.FormValue("preset")

	var files []batch.File
	for _, header := range r.MultipartForm.File["files"] {
		data, err := s.readPart(header)
		if err != nil {
			s.fail(w, "batch", start, uploadStatus(err), "invalid_upload", err)
			return
		}
		files = append(files, batch.File{Name: header.Filename, Data: data})
	}

	result, err := s.batches.Run(r.Context(), files, presetName)
	if err != nil {
		s.fail(w, "batch", start, statusFor(err), "batch_rejected", err)
		return
	}
	defer result.Cleanup()

	s.metrics.BatchFiles.WithLabelValues("processed").Add(float64(result.Processed))
	s.metrics.BatchFiles.WithLabelValues("failed").Add(float64(len(result.Failures)))

	archive, err := os.ReadFile(result.ZipPath)
	if err != nil {
		s.fail(w, "batch", start, http.StatusInternalServerError, "archive_failed", err)
		return
	}

	s.metrics.ObserveRequest("batch", "ok", time.Since(start))
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="voicebox_batch.zip"`)
	w.Header().Set("X-Processing-Summary", result.Summary())
	if manifest := failureManifest(result.Failures); manifest != "" {
		w.Header().Set("X-Processing-Failures", manifest)
	}
	w.Write(archive)
}

type batchFailure struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// failureManifest renders the per-file failure list as a JSON array for
// the X-Processing-Failures header. JSON escaping keeps error text free
// of control characters, so the value is header-safe.
func failureManifest(failures []batch.Failure) string {
	if len(failures) == 0 {
		return ""
	}
	out := make([]batchFailure, len(failures))
	for i, f := range failures {
		out[i] = batchFailure{Index: f.Index, Name: f.Name, Error: f.Err.Error()}
	}
	encoded, err := json.Marshal(out)
	if err != nil {
		return ""
	}
	return string(encoded)
}

// respondWAV encodes samples and serves them as a WAV download,
// recording the operation as successful.
func (s *Server) respondWAV(w http.ResponseWriter, op string, start time.Time, samples []float64, rate int, filename string) {
	data, err := codec.EncodeBytes(samples, rate)
	if err != nil {
		s.fail(w, op, start, http.StatusInternalServerError, "encoding_failed", err)
		return
	}
	s.metrics.ObserveRequest(op, "ok", time.Since(start))
	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Write(data)
}

func (s *Server) fail(w http.ResponseWriter, op string, start time.Time, status int, code string, err error) {
	log.Warnf("%s request failed: %v", op, err)
	s.metrics.ObserveRequest(op, "error", time.Since(start))
	respondError(w, status, code, err.Error())
}

// uploadLimit is the configured per-file upload cap in bytes. An unset
// configuration falls back to the built-in maximum.
func (s *Server) uploadLimit() int64 {
	mb := s.cfg.Audio.MaxFileSizeMB
	if mb < 1 {
		mb = config.MaxFileSizeMB
	}
	return int64(mb) << 20
}

// readUpload pulls one named file out of a multipart request, enforcing
// the configured size cap.
func (s *Server) readUpload(r *http.Request, field string) (string, []byte, error) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		return "", nil, fmt.Errorf("parsing multipart form: %w", err)
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", nil, fmt.Errorf("missing %q upload: %w", field, err)
	}
	defer file.Close()

	limit := s.uploadLimit()
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return "", nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > limit {
		return "", nil, fmt.Errorf("%w: %s exceeds %d MB", codec.ErrFileTooLarge, header.Filename, limit>>20)
	}
	return header.Filename, data, nil
}

func (s *Server) readPart(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", header.Filename, err)
	}
	defer file.Close()

	limit := s.uploadLimit()
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", header.Filename, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d MB", codec.ErrFileTooLarge, header.Filename, limit>>20)
	}
	return data, nil
}

// uploadStatus maps upload-stage errors onto HTTP status codes.
func uploadStatus(err error) int {
	if errors.Is(err, codec.ErrFileTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// statusFor maps domain errors onto HTTP status codes. Anything
// unrecognized is a server-side failure.
func statusFor(err error) int {
	switch {
	case errors.Is(err, codec.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, codec.ErrInvalidWAV),
		errors.Is(err, codec.ErrUnsupportedFormat),
		errors.Is(err, codec.ErrDisallowedExtension),
		errors.Is(err, effects.ErrEmptyAudio),
		errors.Is(err, effects.ErrTooShort),
		errors.Is(err, effects.ErrTooLong),
		errors.Is(err, effects.ErrUnknownPreset),
		errors.Is(err, batch.ErrNoFiles),
		errors.Is(err, batch.ErrTooManyFiles),
		errors.Is(err, tts.ErrEmptyText),
		errors.Is(err, tts.ErrTextTooLong),
		errors.Is(err, tts.ErrUnknownVoice),
		errors.Is(err, tts.ErrUnknownQuality):
		return http.StatusBadRequest
	case errors.Is(err, batch.ErrAllFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
