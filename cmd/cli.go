// SPDX-License-Identifier: MIT
// Package cmd defines the command line interface: one-shot processing
// commands (convert, denoise, tts, batch, presets) and the long-running
// serve command for the HTTP API.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"voicebox/internal/batch"
	"voicebox/internal/codec"
	"voicebox/internal/config"
	"voicebox/internal/denoise"
	"voicebox/internal/dsp"
	"voicebox/internal/effects"
	"voicebox/internal/httpapi"
	"voicebox/internal/log"
	"voicebox/internal/observability"
	"voicebox/internal/transport"
	"voicebox/internal/tts"
	"voicebox/pkg/build"
)

// Execute parses arguments and runs the selected command.
func Execute() error {
	buildInfo := build.GetBuildFlags()

	var (
		configPath string
		verbose    bool
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Voice effects, noise reduction and speech synthesis",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
	}
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Show verbose output")

	// loadConfig runs in every command's RunE so flag values are final.
	loadConfig := func() (*config.Config, error) {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		level := cfg.LogLevel
		if verbose || cfg.Debug {
			level = "debug"
		}
		if lvl, ok := log.ParseLevel(level); ok {
			log.SetLevel(lvl)
		}
		return cfg, nil
	}

	rootCmd.AddCommand(
		newConvertCmd(loadConfig),
		newDenoiseCmd(loadConfig),
		newTTSCmd(loadConfig),
		newBatchCmd(loadConfig),
		newPresetsCmd(),
		newServeCmd(loadConfig),
	)

	rootCmd.SetArgs(os.Args[1:])
	return rootCmd.Execute()
}

type configLoader func() (*config.Config, error)

func newConvertCmd(loadConfig configLoader) *cobra.Command {
	var (
		presetName string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "convert <input.wav>",
		Short: "Apply a voice-effect preset to an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}

			samples, nativeRate, err := codec.DecodeFile(args[0])
			if err != nil {
				return err
			}
			samples = codec.ToWorkingRate(samples, nativeRate)

			out, err := effects.ApplyByName(presetName, samples, config.DefaultSampleRate)
			if err != nil {
				return err
			}
			out = dsp.Normalize(out, config.NormalizeTarget)

			if output == "" {
				output = derivedName(args[0], "_processed")
			}
			if err := codec.EncodeFile(output, out, config.DefaultSampleRate); err != nil {
				return err
			}
			fmt.Printf("Wrote %s (%.2fs)\n", output, dsp.Duration(out, config.DefaultSampleRate))
			return nil
		},
	}

	cmd.Flags().StringVarP(&presetName, "preset", "p", "", "Effect preset name (see 'presets')")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	cmd.MarkFlagRequired("preset")
	return cmd
}

func newDenoiseCmd(loadConfig configLoader) *cobra.Command {
	var (
		strength int
		output   string
	)

	cmd := &cobra.Command{
		Use:   "denoise <input.wav>",
		Short: "Reduce stationary background noise in an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := loadConfig(); err != nil {
				return err
			}

			samples, nativeRate, err := codec.DecodeFile(args[0])
			if err != nil {
				return err
			}
			samples = codec.ToWorkingRate(samples, nativeRate)
			if err := effects.ValidateBuffer(samples, config.DefaultSampleRate); err != nil {
				return err
			}

			out := denoise.Reduce(samples, config.DefaultSampleRate,
				denoise.StrengthFromPercent(strength))

			if output == "" {
				output = derivedName(args[0], "_denoised")
			}
			if err := codec.EncodeFile(output, out, config.DefaultSampleRate); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().IntVarP(&strength, "strength", "s", 50, "Reduction strength (0-100)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file path")
	return cmd
}

func newTTSCmd(loadConfig configLoader) *cobra.Command {
	var (
		voice   string
		quality string
		rate    int
		output  string
	)

	cmd := &cobra.Command{
		Use:   "tts <text>",
		Short: "Synthesize speech from text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			dispatcher := buildDispatcher(cfg)
			samples, sampleRate, err := dispatcher.Synthesize(cmd.Context(), quality, tts.Request{
				Text:  args[0],
				Voice: voice,
				Rate:  rate,
			})
			if err != nil {
				return err
			}

			if err := codec.EncodeFile(output, samples, sampleRate); err != nil {
				return err
			}
			fmt.Printf("Wrote %s (%.2fs)\n", output, dsp.Duration(samples, sampleRate))
			return nil
		},
	}

	cmd.Flags().StringVar(&voice, "voice", "", "Voice name (engine default when empty)")
	cmd.Flags().StringVarP(&quality, "quality", "q", tts.QualityFast, "Engine quality: fast or realistic")
	cmd.Flags().IntVarP(&rate, "rate", "r", 0, "Speech rate in words per minute")
	cmd.Flags().StringVarP(&output, "output", "o", "speech.wav", "Output file path")
	return cmd
}

func newBatchCmd(loadConfig configLoader) *cobra.Command {
	var (
		presetName  string
		output      string
		progressUDP string
	)

	cmd := &cobra.Command{
		Use:   "batch <input.wav>...",
		Short: "Apply a preset to many files and package the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			var progress transport.Transport
			if progressUDP != "" {
				progress, err = transport.NewUDPTransport(progressUDP)
				if err != nil {
					return err
				}
				defer progress.Close()
			}

			files := make([]batch.File, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				files = append(files, batch.File{Name: filepath.Base(path), Data: data})
			}

			processor := batch.NewProcessor(cfg.Batch, progress)
			result, err := processor.Run(cmd.Context(), files, presetName)
			if err != nil {
				return err
			}
			defer result.Cleanup()

			if output == "" {
				output = "voicebox_batch.zip"
			}
			if err := copyFile(result.ZipPath, output); err != nil {
				return err
			}

			fmt.Printf("%s -> %s\n", result.Summary(), output)
			for _, failure := range result.Failures {
				fmt.Printf("  failed: %s: %v\n", failure.Name, failure.Err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&presetName, "preset", "p", "", "Effect preset name (see 'presets')")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output archive path")
	cmd.Flags().StringVar(&progressUDP, "progress-udp", "", "Send progress events to a UDP address")
	cmd.MarkFlagRequired("preset")
	return cmd
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the available effect presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range effects.All() {
				fmt.Printf("%-24s %s\n", p.Name, p.Description)
			}
		},
	}
}

func newServeCmd(loadConfig configLoader) *cobra.Command {
	var listenAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP processing API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if listenAddr != "" {
				cfg.Server.ListenAddr = listenAddr
			}

			metrics := observability.NewMetrics("voicebox")
			api := httpapi.New(*cfg, buildDispatcher(cfg), metrics)
			defer api.Close()

			srv := &http.Server{
				Addr:    cfg.Server.ListenAddr,
				Handler: api.Router(),
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Infof("listening on %s", cfg.Server.ListenAddr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			log.Infof("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "Listen address (overrides config)")
	return cmd
}

// buildDispatcher wires the synthesis engines from configuration. A
// missing neural URL leaves only the fast engine.
func buildDispatcher(cfg *config.Config) *tts.Dispatcher {
	fast := tts.NewESpeakEngine(cfg.TTS.FastBinary, cfg.TTS.DefaultRate)
	var realistic tts.Engine
	if cfg.TTS.NeuralURL != "" {
		realistic = tts.NewNeuralEngine(cfg.TTS.NeuralURL, cfg.TTS.NeuralTimeout)
	}
	return tts.NewDispatcher(fast, realistic)
}

// derivedName builds "{stem}{suffix}.wav" next to the input file.
func derivedName(input, suffix string) string {
	base := strings.TrimSuffix(input, filepath.Ext(input))
	return base + suffix + ".wav"
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
