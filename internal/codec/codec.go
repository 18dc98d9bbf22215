// SPDX-License-Identifier: MIT
/*
Package codec moves audio between WAV containers and the mono float64
sample buffers the rest of the pipeline works on. Decoding mixes
multi-channel input down to mono and reports the file's native sample
rate; ToWorkingRate brings a clip to the pipeline rate. Encoding always
writes 16-bit PCM mono.
*/
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"voicebox/internal/config"
	"voicebox/internal/dsp"
)

var (
	ErrInvalidWAV          = errors.New("not a valid WAV file")
	ErrUnsupportedFormat   = errors.New("format not supported by this build")
	ErrDisallowedExtension = errors.New("file type not allowed")
	ErrFileTooLarge        = errors.New("file too large")
)

const encodeBitDepth = 16

// DecodeWAV reads a WAV stream into mono samples in [-1, 1] and returns
// them with the file's native sample rate. Multi-channel audio is
// averaged down to one channel.
func DecodeWAV(r io.ReadSeeker) ([]float64, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, ErrInvalidWAV
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("decoding wav: %w", err)
	}
	if pcm.Format == nil || pcm.Format.NumChannels < 1 || len(pcm.Data) == 0 {
		return nil, 0, ErrInvalidWAV
	}

	bitDepth := pcm.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(dec.BitDepth)
	}
	if bitDepth <= 0 || bitDepth > 32 {
		return nil, 0, fmt.Errorf("%w: %d-bit samples", ErrInvalidWAV, bitDepth)
	}

	channels := pcm.Format.NumChannels
	scale := float64(int64(1) << (bitDepth - 1))
	frames := len(pcm.Data) / channels

	out := make([]float64, frames)
	for f := 0; f < frames; f++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += float64(pcm.Data[f*channels+c])
		}
		out[f] = sum / float64(channels) / scale
	}
	return dsp.Clamp(out), pcm.Format.SampleRate, nil
}

// EncodeWAV writes buf as a 16-bit PCM mono WAV stream.
func EncodeWAV(w io.WriteSeeker, buf []float64, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, encodeBitDepth, 1, 1)

	data := make([]int, len(buf))
	for i, v := range buf {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		data[i] = int(math.Round(v * 32767))
	}
	ibuf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: encodeBitDepth,
	}
	if err := enc.Write(ibuf); err != nil {
		return fmt.Errorf("encoding wav: %w", err)
	}
	return enc.Close()
}

// CheckExtension validates a filename against the upload allow list.
// Extensions outside the list are rejected outright; listed extensions
// other than .wav are recognized but not decodable here.
func CheckExtension(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if !config.ExtensionAllowed(ext) {
		return fmt.Errorf("%w: %q", ErrDisallowedExtension, ext)
	}
	if ext != ".wav" {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return nil
}

// DecodeBytes decodes an in-memory upload, enforcing the extension
// allow list and the size cap before touching the payload.
func DecodeBytes(name string, data []byte) ([]float64, int, error) {
	if err := CheckExtension(name); err != nil {
		return nil, 0, err
	}
	if len(data) > config.MaxFileSizeMB*1024*1024 {
		return nil, 0, fmt.Errorf("%w: %d bytes (max %d MB)",
			ErrFileTooLarge, len(data), config.MaxFileSizeMB)
	}
	return DecodeWAV(bytes.NewReader(data))
}

// DecodeFile decodes a WAV file from disk with the same checks as
// DecodeBytes.
func DecodeFile(path string) ([]float64, int, error) {
	if err := CheckExtension(path); err != nil {
		return nil, 0, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, 0, err
	}
	if info.Size() > int64(config.MaxFileSizeMB)*1024*1024 {
		return nil, 0, fmt.Errorf("%w: %d bytes (max %d MB)",
			ErrFileTooLarge, info.Size(), config.MaxFileSizeMB)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()
	return DecodeWAV(f)
}

// EncodeFile writes buf to path as a 16-bit PCM mono WAV file.
func EncodeFile(path string, buf []float64, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeWAV(f, buf, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// memWriter is a minimal in-memory io.WriteSeeker for the wav encoder,
// which must seek back over the header to patch chunk sizes.
type memWriter struct {
	data []byte
	pos  int
}

func (m *memWriter) Write(p []byte) (int, error) {
	if need := m.pos + len(p); need > len(m.data) {
		grown := make([]byte, need)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[m.pos:], p)
	m.pos += len(p)
	return len(p), nil
}

func (m *memWriter) Seek(offset int64, whence int) (int64, error) {
	var next int
	switch whence {
	case io.SeekStart:
		next = int(offset)
	case io.SeekCurrent:
		next = m.pos + int(offset)
	case io.SeekEnd:
		next = len(m.data) + int(offset)
	default:
		return 0, fmt.Errorf("unsupported whence %d", whence)
	}
	if next < 0 {
		return 0, errors.New("seek before start of buffer")
	}
	m.pos = next
	return int64(next), nil
}

// EncodeBytes renders buf as an in-memory 16-bit PCM mono WAV file.
func EncodeBytes(buf []float64, sampleRate int) ([]byte, error) {
	w := &memWriter{}
	if err := EncodeWAV(w, buf, sampleRate); err != nil {
		return nil, err
	}
	return w.data, nil
}

// ToWorkingRate resamples a decoded clip from its native rate to the
// pipeline rate. Clips already at the working rate pass through.
func ToWorkingRate(buf []float64, nativeRate int) []float64 {
	if nativeRate == config.DefaultSampleRate || nativeRate <= 0 {
		return buf
	}
	return dsp.Resample(buf, float64(config.DefaultSampleRate)/float64(nativeRate))
}
