package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Engines.
const (
	EngineWhisperCPP = "whispercpp"
	EngineOpenAI     = "openai"
)

var (
	engines      = []string{EngineWhisperCPP, EngineOpenAI}
	devices      = []string{"auto", "cpu", "cuda", "metal"}
	computeTypes = []string{"default", "int8", "int5", "float16", "float32"}
	transcoders  = []string{"auto", "exec", "wasm"}
	logFormats   = []string{"text", "json"}
	logLevels    = []string{"debug", "info", "warn", "error"}
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// LoadOptions controls where configuration is read from.
type LoadOptions struct {
	// Path is an explicit config file that must exist. When empty the
	// default location is used if present.
	Path string

	// EnvFiles are dotenv files read before the environment. Missing files
	// are skipped. Nil means ".env".
	EnvFiles []string

	// LookupEnv replaces os.LookupEnv (for testing).
	LookupEnv func(string) (string, bool)
}

// Load resolves the configuration: defaults, then the YAML file, then
// dotenv files, then the process environment.
func Load(opts LoadOptions) (*Config, error) {
	cfg := DefaultConfig()

	if opts.Path != "" {
		if err := readFile(cfg, expandPath(opts.Path), true); err != nil {
			return nil, err
		}
	} else if path, err := ConfigPath(); err == nil {
		if err := readFile(cfg, path, false); err != nil {
			return nil, err
		}
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	envFiles := opts.EnvFiles
	if envFiles == nil {
		envFiles = []string{".env"}
	}
	dotenv, err := readDotEnv(envFiles)
	if err != nil {
		return nil, err
	}

	env := func(key string) (string, bool) {
		if v, ok := lookup(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}

	if err := applyEnv(cfg, env); err != nil {
		return nil, err
	}

	cfg.ASR.ModelDir = expandPath(cfg.ASR.ModelDir)
	cfg.ScratchDir = expandPath(cfg.ScratchDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readDotEnv(files []string) (map[string]string, error) {
	merged := make(map[string]string)
	for _, file := range files {
		values, err := godotenv.Read(file)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		for k, v := range values {
			// earlier files win, as with godotenv.Load
			if _, ok := merged[k]; !ok {
				merged[k] = v
			}
		}
	}
	return merged, nil
}

func applyEnv(cfg *Config, env func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := env(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}

	str("ASR_ENGINE", &cfg.ASR.Engine)
	str("ASR_MODEL", &cfg.ASR.Model)
	str("ASR_DEVICE", &cfg.ASR.Device)
	str("ASR_COMPUTE_TYPE", &cfg.ASR.ComputeType)
	str("ASR_MODEL_DIR", &cfg.ASR.ModelDir)
	str("FFMPEG_PATH", &cfg.Transcoder.Path)
	str("ASR_TRANSCODER", &cfg.Transcoder.Kind)
	str("SCRATCH_DIR", &cfg.ScratchDir)
	str("APP_VERSION", &cfg.AppVersion)
	str("OPENAI_API_KEY", &cfg.OpenAI.APIKey)
	str("OPENAI_BASE_URL", &cfg.OpenAI.BaseURL)
	str("OPENAI_MODEL", &cfg.OpenAI.Model)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("LOG_LEVEL", &cfg.Log.Level)

	if v, ok := env("PORT"); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: PORT=%q is not a number", ErrInvalidConfig, v)
		}
		cfg.Server.Port = port
	}

	if v, ok := env("ASR_THREADS"); ok && strings.TrimSpace(v) != "" {
		threads, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: ASR_THREADS=%q is not a number", ErrInvalidConfig, v)
		}
		cfg.ASR.Threads = threads
	}

	if v, ok := env("ASR_AUTO_DOWNLOAD"); ok && strings.TrimSpace(v) != "" {
		b, err := ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: ASR_AUTO_DOWNLOAD=%q", ErrInvalidConfig, v)
		}
		cfg.ASR.AutoDownload = b
	}

	if v, ok := env("MAX_PCM_BYTES"); ok {
		cfg.PCM.MaxBytes = ParseMaxBytes(v)
	}

	return nil
}

// ParseMaxBytes reads a byte ceiling. Empty, unparsable and non-positive
// values all mean no limit.
func ParseMaxBytes(v string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// ParseBool accepts true/false, 1/0, yes/no and on/off in any case.
func ParseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", v)
	}
}

// Validate checks enumerations and ranges.
func (c *Config) Validate() error {
	oneOf := func(name, value string, allowed []string) error {
		if slices.Contains(allowed, value) {
			return nil
		}
		return fmt.Errorf("%w: %s=%q, expected one of %s", ErrInvalidConfig, name, value, strings.Join(allowed, ", "))
	}

	checks := []error{
		oneOf("asr.engine", c.ASR.Engine, engines),
		oneOf("asr.device", c.ASR.Device, devices),
		oneOf("asr.compute_type", c.ASR.ComputeType, computeTypes),
		oneOf("transcoder.kind", c.Transcoder.Kind, transcoders),
		oneOf("log.format", c.Log.Format, logFormats),
		oneOf("log.level", c.Log.Level, logLevels),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port=%d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.ASR.Model == "" {
		return fmt.Errorf("%w: asr.model is empty", ErrInvalidConfig)
	}
	if c.ASR.Threads < 0 {
		return fmt.Errorf("%w: asr.threads=%d is negative", ErrInvalidConfig, c.ASR.Threads)
	}
	if c.ASR.Engine == EngineOpenAI && c.OpenAI.APIKey == "" {
		return fmt.Errorf("%w: OPENAI_API_KEY is required for the openai engine", ErrInvalidConfig)
	}
	return nil
}
