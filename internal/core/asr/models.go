package asr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DefaultModelBaseURL hosts the ggml conversions of the Whisper models.
const DefaultModelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main/"

// WhisperModel represents a whisper.cpp model family.
type WhisperModel struct {
	Name        string // Short name (e.g., "small", "large-v3-turbo")
	Size        string // Human-readable size of the full precision file
	Description string
	Q5          string // 5-bit quantization suffix published for this model
}

// WhisperModels lists the models that can be downloaded.
var WhisperModels = []WhisperModel{
	{Name: "tiny", Size: "75MB", Description: "Fastest, lowest accuracy", Q5: "q5_1"},
	{Name: "tiny.en", Size: "75MB", Description: "English-only tiny", Q5: "q5_1"},
	{Name: "base", Size: "142MB", Description: "Fast, fair accuracy", Q5: "q5_1"},
	{Name: "base.en", Size: "142MB", Description: "English-only base", Q5: "q5_1"},
	{Name: "small", Size: "466MB", Description: "Good accuracy on CPU (default)", Q5: "q5_1"},
	{Name: "small.en", Size: "466MB", Description: "English-only small", Q5: "q5_1"},
	{Name: "medium", Size: "1.5GB", Description: "Balanced speed and accuracy", Q5: "q5_0"},
	{Name: "medium.en", Size: "1.5GB", Description: "English-only medium", Q5: "q5_0"},
	{Name: "large-v2", Size: "2.9GB", Description: "High accuracy", Q5: "q5_0"},
	{Name: "large-v3", Size: "2.9GB", Description: "Best accuracy, requires GPU", Q5: "q5_0"},
	{Name: "large-v3-turbo", Size: "1.5GB", Description: "Near large-v3 accuracy, much faster", Q5: "q5_0"},
}

// DefaultModel is the recommended model for CPU deployments.
const DefaultModel = "small"

// GetModel returns a model by short name. The "ggml-" prefix, ".bin"
// suffix and any quantization suffix are ignored.
func GetModel(name string) *WhisperModel {
	name = strings.TrimPrefix(name, "ggml-")
	name = strings.TrimSuffix(name, ".bin")
	if i := strings.Index(name, "-q"); i > 0 {
		name = name[:i]
	}

	for _, m := range WhisperModels {
		if m.Name == name {
			return &m
		}
	}
	return nil
}

// FileName returns the ggml file for the model at the given compute type.
func (m WhisperModel) FileName(computeType string) string {
	switch computeType {
	case "int8":
		return "ggml-" + m.Name + "-q8_0.bin"
	case "int5":
		return "ggml-" + m.Name + "-" + m.Q5 + ".bin"
	default:
		return "ggml-" + m.Name + ".bin"
	}
}

// ModelManager handles whisper model downloads and caching.
type ModelManager struct {
	modelsDir string
	baseURL   string
	client    *http.Client
	logger    *slog.Logger
}

// ModelManagerOption configures a ModelManager.
type ModelManagerOption func(*ModelManager)

// WithBaseURL overrides the download location.
func WithBaseURL(u string) ModelManagerOption {
	return func(m *ModelManager) { m.baseURL = strings.TrimSuffix(u, "/") + "/" }
}

// WithHTTPClient sets the client used for downloads.
func WithHTTPClient(c *http.Client) ModelManagerOption {
	return func(m *ModelManager) { m.client = c }
}

// WithModelLogger sets the logger.
func WithModelLogger(logger *slog.Logger) ModelManagerOption {
	return func(m *ModelManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewModelManager creates a new model manager for modelsDir.
func NewModelManager(modelsDir string, opts ...ModelManagerOption) *ModelManager {
	m := &ModelManager{
		modelsDir: modelsDir,
		baseURL:   DefaultModelBaseURL,
		client:    http.DefaultClient,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With("component", "models")
	return m
}

// Dir returns the models directory.
func (m *ModelManager) Dir() string {
	return m.modelsDir
}

// ModelPath returns the path of the model file for a name and compute type.
// Absolute paths and names ending in .bin are used as given.
func (m *ModelManager) ModelPath(modelName, computeType string) string {
	if filepath.IsAbs(modelName) {
		return modelName
	}
	if strings.HasSuffix(modelName, ".bin") {
		return filepath.Join(m.modelsDir, modelName)
	}
	if model := GetModel(modelName); model != nil {
		return filepath.Join(m.modelsDir, model.FileName(computeType))
	}
	return filepath.Join(m.modelsDir, "ggml-"+modelName+".bin")
}

// IsModelDownloaded checks if a non-empty model file exists.
func (m *ModelManager) IsModelDownloaded(modelName, computeType string) bool {
	info, err := os.Stat(m.ModelPath(modelName, computeType))
	if err != nil {
		return false
	}
	return info.Size() > 0
}

// EnsureModel downloads a model if it is not already present and returns its path.
func (m *ModelManager) EnsureModel(ctx context.Context, modelName, computeType string) (string, error) {
	path := m.ModelPath(modelName, computeType)
	if m.IsModelDownloaded(modelName, computeType) {
		return path, nil
	}

	model := GetModel(modelName)
	if model == nil || filepath.IsAbs(modelName) {
		return "", fmt.Errorf("%w: %s", ErrUnknownModel, modelName)
	}

	m.logger.Info("downloading model", "model", model.Name, "file", filepath.Base(path), "size", model.Size)
	if err := m.download(ctx, m.baseURL+filepath.Base(path), path); err != nil {
		return "", err
	}
	return path, nil
}

// download writes to a temporary file and renames it into place.
func (m *ModelManager) download(ctx context.Context, url, destPath string) error {
	if err := os.MkdirAll(m.modelsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to download model: HTTP %d", resp.StatusCode)
	}

	tmpPath := destPath + ".tmp"
	out, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write model file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write model file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename model file: %w", err)
	}
	return nil
}

// WhisperModelInfo contains model info with download status.
type WhisperModelInfo struct {
	Name        string `json:"name"`
	File        string `json:"file"`
	Size        string `json:"size"`
	Description string `json:"description"`
	Downloaded  bool   `json:"downloaded"`
}

// ListAvailableModels returns every known model with its download status
// for the given compute type.
func (m *ModelManager) ListAvailableModels(computeType string) []WhisperModelInfo {
	result := make([]WhisperModelInfo, 0, len(WhisperModels))
	for _, model := range WhisperModels {
		result = append(result, WhisperModelInfo{
			Name:        model.Name,
			File:        model.FileName(computeType),
			Size:        model.Size,
			Description: model.Description,
			Downloaded:  m.IsModelDownloaded(model.Name, computeType),
		})
	}
	return result
}
