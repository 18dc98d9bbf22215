package config

// Core configuration constants that define the boundaries and defaults
// for the voice processing pipeline.
const (
	// Default values for audio handling
	DefaultSampleRate   = 22050 // Working sample rate for all processing (Hz)
	DefaultOutputFormat = "wav" // Output container for processed audio

	// Resource limits
	MaxFileSizeMB   = 50    // Maximum upload size per file (MB)
	MaxDurationSec  = 300.0 // Maximum clip duration (seconds)
	MinDurationSec  = 0.1   // Minimum clip duration (seconds)
	MaxBatchFiles   = 30    // Maximum files in a single batch job
	MaxTextLength   = 5000  // Maximum text length for speech synthesis
	NormalizeTarget = -20.0 // Batch output level target (dBFS)

	// Server defaults
	DefaultListenAddr = ":8080"
	DefaultScratchDir = "" // Empty means os.TempDir()
)

// AllowedExtensions lists the audio file extensions accepted for upload,
// lowercase with leading dot.
var AllowedExtensions = []string{".wav", ".mp3", ".m4a", ".flac", ".ogg"}

// ExtensionAllowed reports whether ext (lowercase, leading dot) is an
// accepted upload format.
func ExtensionAllowed(ext string) bool {
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
