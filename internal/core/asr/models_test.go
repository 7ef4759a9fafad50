package asr

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetModel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"small", "small"},
		{"ggml-small.bin", "small"},
		{"ggml-small-q8_0.bin", "small"},
		{"large-v3-turbo", "large-v3-turbo"},
		{"tiny.en", "tiny.en"},
	}
	for _, tt := range tests {
		m := GetModel(tt.in)
		require.NotNil(t, m, tt.in)
		assert.Equal(t, tt.want, m.Name)
	}
	assert.Nil(t, GetModel("gigantic"))
}

func TestModelPath(t *testing.T) {
	dir := t.TempDir()
	m := NewModelManager(dir)

	tests := []struct {
		name        string
		model       string
		computeType string
		want        string
	}{
		{"int8", "small", "int8", filepath.Join(dir, "ggml-small-q8_0.bin")},
		{"int5 q5_1 family", "base", "int5", filepath.Join(dir, "ggml-base-q5_1.bin")},
		{"int5 q5_0 family", "medium", "int5", filepath.Join(dir, "ggml-medium-q5_0.bin")},
		{"float16", "small", "float16", filepath.Join(dir, "ggml-small.bin")},
		{"default", "large-v3", "default", filepath.Join(dir, "ggml-large-v3.bin")},
		{"explicit file", "custom.bin", "int8", filepath.Join(dir, "custom.bin")},
		{"absolute", "/models/x.bin", "int8", "/models/x.bin"},
		{"unknown short name", "distil", "int8", filepath.Join(dir, "ggml-distil.bin")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.ModelPath(tt.model, tt.computeType))
		})
	}
}

func TestEnsureModelDownloads(t *testing.T) {
	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		_, _ = w.Write([]byte("ggml model bytes"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	m := NewModelManager(dir, WithBaseURL(srv.URL+"/models"))

	assert.False(t, m.IsModelDownloaded("tiny", "int8"))
	path, err := m.EnsureModel(context.Background(), "tiny", "int8")
	require.NoError(t, err)
	assert.Equal(t, "/models/ggml-tiny-q8_0.bin", requested)
	assert.Equal(t, filepath.Join(dir, "ggml-tiny-q8_0.bin"), path)
	assert.True(t, m.IsModelDownloaded("tiny", "int8"))
	assert.NoFileExists(t, path+".tmp")

	// cached on the second call
	requested = ""
	_, err = m.EnsureModel(context.Background(), "tiny", "int8")
	require.NoError(t, err)
	assert.Empty(t, requested)
}

func TestEnsureModelHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	dir := t.TempDir()
	m := NewModelManager(dir, WithBaseURL(srv.URL))

	_, err := m.EnsureModel(context.Background(), "base", "int5")
	require.ErrorContains(t, err, "HTTP 404")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEnsureModelUnknown(t *testing.T) {
	m := NewModelManager(t.TempDir())
	_, err := m.EnsureModel(context.Background(), "gigantic", "int8")
	require.ErrorIs(t, err, ErrUnknownModel)
}

func TestListAvailableModels(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ggml-small-q8_0.bin"), []byte("x"), 0o644))

	m := NewModelManager(dir)
	models := m.ListAvailableModels("int8")
	require.Len(t, models, len(WhisperModels))

	for _, info := range models {
		assert.Equal(t, info.Name == "small", info.Downloaded, info.Name)
	}
}
