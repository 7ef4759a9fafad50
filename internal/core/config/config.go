package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ConfigFileName = "config.yml"
	AppDirName     = "sentinel-whisper"

	// EnvConfigPath points at an alternative config file.
	EnvConfigPath = "SENTINEL_WHISPER_CONFIG"
)

// ConfigDir returns the standard config directory.
// Windows: %APPDATA%\sentinel-whisper\
// macOS/Linux: ~/.config/sentinel-whisper/
func ConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, AppDirName), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", AppDirName), nil
}

// ConfigPath returns the path to the config file.
// e.g., ~/.config/sentinel-whisper/config.yml
func ConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return expandPath(p), nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName), nil
}

// Config is resolved once at startup and not modified afterwards.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	ASR        ASRConfig        `yaml:"asr"`
	Transcoder TranscoderConfig `yaml:"transcoder"`
	PCM        PCMConfig        `yaml:"pcm"`
	OpenAI     OpenAIConfig     `yaml:"openai,omitempty"`
	Log        LogConfig        `yaml:"log"`

	// ScratchDir holds per-request temporary files; empty means the system temp dir
	ScratchDir string `yaml:"scratch_dir,omitempty"`

	// AppVersion overrides the build version reported by /version
	AppVersion string `yaml:"app_version,omitempty"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

// ASRConfig is the engine configuration snapshot.
type ASRConfig struct {
	// Engine is "whispercpp" or "openai"
	Engine string `yaml:"engine"`

	// Model is a short name (small, large-v3), a ggml file name or an absolute path
	Model string `yaml:"model"`

	// Device is one of auto, cpu, cuda, metal
	Device string `yaml:"device"`

	// ComputeType selects the model precision: int8, int5, float16, float32 or default
	ComputeType string `yaml:"compute_type"`

	// ModelDir is where model weights are cached
	ModelDir string `yaml:"model_dir,omitempty"`

	// Threads per inference; 0 uses the library default
	Threads int `yaml:"threads,omitempty"`

	// AutoDownload fetches missing known models on first use
	AutoDownload bool `yaml:"auto_download"`
}

type TranscoderConfig struct {
	// Kind is auto, exec or wasm
	Kind string `yaml:"kind"`

	// Path is the ffmpeg executable used by the exec transcoder
	Path string `yaml:"path"`
}

type PCMConfig struct {
	// MaxBytes is the largest accepted raw PCM body; 0 disables the limit
	MaxBytes int64 `yaml:"max_bytes,omitempty"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
	Model   string `yaml:"model,omitempty"`
}

type LogConfig struct {
	// Format is text or json
	Format string `yaml:"format"`
	// Level is debug, info, warn or error
	Level string `yaml:"level"`
}

// DefaultModelDir returns ~/.config/sentinel-whisper/models.
func DefaultModelDir() string {
	dir, err := ConfigDir()
	if err != nil {
		return "models"
	}
	return filepath.Join(dir, "models")
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080},
		ASR: ASRConfig{
			Engine:       EngineWhisperCPP,
			Model:        "small",
			Device:       "cpu",
			ComputeType:  "int8",
			ModelDir:     DefaultModelDir(),
			AutoDownload: true,
		},
		Transcoder: TranscoderConfig{
			Kind: "auto",
			Path: "ffmpeg",
		},
		Log: LogConfig{
			Format: "text",
			Level:  "info",
		},
	}
}

// Exists checks if config file exists
func Exists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// readFile merges the YAML file at path over cfg. A missing file is only
// an error when required is set.
func readFile(cfg *Config, path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// expandPath expands the tilde (~) in the path to the user's home directory.
// It handles both forward and backward slashes to ensure cross-platform compatibility
// for configuration files.
func expandPath(path string) string {
	if path == "" {
		return ""
	}

	if strings.HasPrefix(path, "~") {
		// Only expand if it's explicitly "~", "~/", or "~\"
		if len(path) == 1 || path[1] == '/' || path[1] == '\\' {
			home, err := os.UserHomeDir()
			if err == nil {
				subPath := path[1:]
				if len(subPath) > 0 && (subPath[0] == '/' || subPath[0] == '\\') {
					subPath = subPath[1:]
				}
				return filepath.Join(home, subPath)
			}
		}
	}

	return path
}

// Save writes the config to path, or to the default location when path is empty.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if path == "" {
		path, err = ConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	header := "# sentinel-whisper configuration file\n# Environment variables override these values\n\n"
	return os.WriteFile(path, []byte(header+string(data)), 0600)
}

// Init creates a new config.yml with default values
func Init() (string, error) {
	path, err := ConfigPath()
	if err != nil {
		return "", err
	}
	if Exists() {
		return "", fmt.Errorf("%s already exists", path)
	}
	return path, Save(DefaultConfig(), path)
}
