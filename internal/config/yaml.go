// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the main application configuration structure, loaded from YAML.
type Config struct {
	Debug    bool         `yaml:"debug"`     // Enable debug mode (verbose logging).
	LogLevel string       `yaml:"log_level"` // Logging level (e.g., "debug", "info", "warn", "error").
	Audio    AudioConfig  `yaml:"audio"`     // Audio decoding and processing settings.
	Server   ServerConfig `yaml:"server"`    // HTTP API settings.
	TTS      TTSConfig    `yaml:"tts"`       // Speech synthesis settings.
	Batch    BatchConfig  `yaml:"batch"`     // Batch processing settings.
}

// AudioConfig holds settings related to audio decoding and processing.
// The working sample rate and duration bounds are pipeline constants
// (see config.go), not configuration.
type AudioConfig struct {
	MaxFileSizeMB int `yaml:"max_file_size_mb"` // Maximum upload size per file.
}

// ServerConfig holds settings for the embedded HTTP API.
type ServerConfig struct {
	ListenAddr     string `yaml:"listen_addr"`      // Address for the HTTP API (e.g., ":8080").
	AllowAnyOrigin bool   `yaml:"allow_any_origin"` // Accept websocket connections from any Origin header.
}

// TTSConfig holds settings for the speech synthesis engines.
type TTSConfig struct {
	FastBinary    string        `yaml:"fast_binary"`    // Path to the formant synthesizer binary (default "espeak-ng").
	NeuralURL     string        `yaml:"neural_url"`     // Base URL of the neural synthesis service; empty disables it.
	NeuralTimeout time.Duration `yaml:"neural_timeout"` // Per-request timeout for the neural service.
	DefaultRate   int           `yaml:"default_rate"`   // Default speech rate in words per minute.
}

// BatchConfig holds settings for multi-file processing jobs.
type BatchConfig struct {
	MaxFiles   int    `yaml:"max_files"`   // Maximum files in a single batch job.
	ScratchDir string `yaml:"scratch_dir"` // Base directory for per-job scratch dirs; empty uses the OS temp dir.
}

// LoadConfig loads configuration from a YAML file specified by path. If path is
// empty, it searches the default location ("voicebox.yaml"). If no file is
// found, it uses built-in defaults. After loading, it applies environment
// variable overrides and validates the final configuration.
func LoadConfig(path string) (*Config, error) {
	cfg := Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			MaxFileSizeMB: MaxFileSizeMB,
		},
		Server: ServerConfig{
			ListenAddr:     DefaultListenAddr,
			AllowAnyOrigin: false,
		},
		TTS: TTSConfig{
			FastBinary:    "espeak-ng",
			NeuralURL:     "",
			NeuralTimeout: 60 * time.Second,
			DefaultRate:   150,
		},
		Batch: BatchConfig{
			MaxFiles:   MaxBatchFiles,
			ScratchDir: DefaultScratchDir,
		},
	}

	searchPaths := []string{"voicebox.yaml"}
	if path != "" {
		searchPaths = []string{path}
	}

	for _, candidate := range searchPaths {
		data, err := os.ReadFile(candidate)
		if err != nil {
			if path != "" {
				return nil, fmt.Errorf("configuration: reading %s: %w", candidate, err)
			}
			continue // Default search path is optional.
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("configuration: parsing %s: %w", candidate, err)
		}
		break
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for values the pipeline cannot work with.
func (cfg *Config) Validate() error {
	if cfg.Audio.MaxFileSizeMB < 1 {
		return fmt.Errorf("configuration: max file size must be at least 1 MB: %d", cfg.Audio.MaxFileSizeMB)
	}
	if cfg.Batch.MaxFiles < 1 {
		return fmt.Errorf("configuration: batch max files must be at least 1: %d", cfg.Batch.MaxFiles)
	}
	if cfg.TTS.DefaultRate < 80 || cfg.TTS.DefaultRate > 450 {
		return fmt.Errorf("configuration: speech rate must be in [80, 450] wpm: %d", cfg.TTS.DefaultRate)
	}
	if cfg.TTS.NeuralTimeout <= 0 {
		return fmt.Errorf("configuration: neural timeout must be positive: %s", cfg.TTS.NeuralTimeout)
	}
	return nil
}

func (cfg *Config) applyEnvOverrides() {
	// VOICEBOX_{...} overrides take precedence over the config file.

	if val, ok := os.LookupEnv("VOICEBOX_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
		}
	}
	if val, ok := os.LookupEnv("VOICEBOX_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}
	if val, ok := os.LookupEnv("VOICEBOX_LISTEN_ADDR"); ok {
		cfg.Server.ListenAddr = val
	}
	if val, ok := os.LookupEnv("VOICEBOX_TTS_NEURAL_URL"); ok {
		cfg.TTS.NeuralURL = val
	}
	if val, ok := os.LookupEnv("VOICEBOX_TTS_NEURAL_TIMEOUT"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.TTS.NeuralTimeout = dur
		}
	}
	if val, ok := os.LookupEnv("VOICEBOX_SCRATCH_DIR"); ok {
		cfg.Batch.ScratchDir = val
	}
}
