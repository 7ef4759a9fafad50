package openai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guiyumin/sentinel-whisper-server/internal/core/asr"
)

const verboseResponse = `{
  "task": "transcribe",
  "language": "english",
  "duration": 3.2,
  "text": "Hello there. General Kenobi.",
  "segments": [
    {"id": 0, "start": 0.0, "end": 1.4, "text": " Hello there."},
    {"id": 1, "start": 1.4, "end": 3.2, "text": " General Kenobi."}
  ],
  "words": [
    {"word": "Hello", "start": 0.1, "end": 0.5},
    {"word": "there", "start": 0.6, "end": 1.2},
    {"word": "General", "start": 1.5, "end": 2.1},
    {"word": "Kenobi", "start": 2.2, "end": 3.0}
  ]
}`

type capturedRequest struct {
	path     string
	fields   map[string][]string
	fileSize int
}

func newTestServer(t *testing.T, captured *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(10<<20))
		captured.fields = r.MultipartForm.Value

		f, _, err := r.FormFile("file")
		require.NoError(t, err)
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		captured.fileSize = len(data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, verboseResponse)
	}))
}

func newBackend(t *testing.T, srv *httptest.Server) *Backend {
	t.Helper()
	b, err := New(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1", TempDir: t.TempDir()})
	require.NoError(t, err)
	return b
}

func TestTranscribe(t *testing.T) {
	var captured capturedRequest
	srv := newTestServer(t, &captured)
	defer srv.Close()

	b := newBackend(t, srv)
	segments, info, err := b.Transcribe(context.Background(), make([]float32, 16000), asr.Options{
		Task:           asr.TaskTranscribe,
		WordTimestamps: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/audio/transcriptions", captured.path)
	assert.Equal(t, []string{DefaultModel}, captured.fields["model"])
	assert.Equal(t, []string{"verbose_json"}, captured.fields["response_format"])
	assert.Greater(t, captured.fileSize, 32000)

	require.Len(t, segments, 2)
	assert.Equal(t, " Hello there.", segments[0].Text)
	assert.Equal(t, 1.4, segments[1].Start)

	require.Len(t, segments[0].Words, 2)
	require.Len(t, segments[1].Words, 2)
	assert.Equal(t, " General", segments[1].Words[0].Text)
	assert.Nil(t, segments[1].Words[0].Probability)

	require.NotNil(t, info.Language)
	assert.Equal(t, "en", *info.Language)
	assert.Nil(t, info.LanguageProbability)
}

func TestTranscribeForcedLanguage(t *testing.T) {
	var captured capturedRequest
	srv := newTestServer(t, &captured)
	defer srv.Close()

	lang := "fr"
	b := newBackend(t, srv)
	segments, info, err := b.Transcribe(context.Background(), make([]float32, 1600), asr.Options{
		Task:     asr.TaskTranscribe,
		Language: &lang,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"fr"}, captured.fields["language"])
	assert.Nil(t, segments[0].Words)
	assert.Equal(t, "fr", *info.Language)
}

func TestTranslateUsesTranslationsEndpoint(t *testing.T) {
	var captured capturedRequest
	srv := newTestServer(t, &captured)
	defer srv.Close()

	b := newBackend(t, srv)
	_, _, err := b.Transcribe(context.Background(), make([]float32, 1600), asr.Options{Task: asr.TaskTranslate})
	require.NoError(t, err)
	assert.Equal(t, "/v1/audio/translations", captured.path)
}

func TestTranscribeAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	b := newBackend(t, srv)
	_, _, err := b.Transcribe(context.Background(), make([]float32, 160), asr.Options{})
	require.ErrorContains(t, err, "bad key")
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestAssignWords(t *testing.T) {
	segments := []asr.Segment{{Start: 0, End: 1}, {Start: 1, End: 2}, {Start: 2, End: 3}}
	words := []asr.Word{
		{Start: 0.1, Text: " a"},
		{Start: 1.0, Text: " b"},
		{Start: 1.9, Text: " c"},
		{Start: 3.5, Text: " d"},
	}

	assignWords(segments, words)
	assert.Len(t, segments[0].Words, 1)
	assert.Len(t, segments[1].Words, 2)
	assert.Len(t, segments[2].Words, 1)
	assert.Equal(t, " d", segments[2].Words[0].Text)
}
