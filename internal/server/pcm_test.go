package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guiyumin/sentinel-whisper-server/internal/core/asr"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/audio"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/scratch"
)

func pcmRequest(target string, body []byte) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/octet-stream")
	return req
}

func TestASRPCMSilence(t *testing.T) {
	ts := newTestServer(t, 0)
	body := make([]byte, 16000*4)

	w := ts.do(pcmRequest("/asr/pcm?output=srt", body))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/x-subrip", w.Header().Get("Content-Type"))

	call := ts.engine.lastCall(t)
	require.Len(t, call.samples, 16000)
	for _, s := range call.samples {
		require.Zero(t, s)
	}
	assert.Equal(t, 0, ts.transcoder.calls)
}

func TestASRPCMClampsSamples(t *testing.T) {
	ts := newTestServer(t, 0)
	body := audio.EncodePCM([]float32{2, -3, 0.25})

	w := ts.do(pcmRequest("/asr/pcm", body))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []float32{1, -1, 0.25}, ts.engine.lastCall(t).samples)
}

func TestASRPCMValidation(t *testing.T) {
	valid := make([]byte, 8)

	tests := []struct {
		name        string
		contentType string
		format      *string
		body        []byte
		maxBytes    int64
		status      int
		detail      map[string]any
	}{
		{
			name:        "wrong content type",
			contentType: "audio/wav",
			body:        valid,
			status:      http.StatusUnsupportedMediaType,
			detail:      map[string]any{"error": "UNSUPPORTED_MEDIA_TYPE", "expected": "application/octet-stream"},
		},
		{
			name:        "content type checked before format header",
			contentType: "text/plain",
			format:      ptr("audio/x-s16le"),
			body:        valid,
			status:      http.StatusUnsupportedMediaType,
			detail:      map[string]any{"error": "UNSUPPORTED_MEDIA_TYPE", "expected": "application/octet-stream"},
		},
		{
			name:        "format mismatch echoes raw header",
			contentType: "application/octet-stream",
			format:      ptr(" audio/x-s16le "),
			body:        valid,
			status:      http.StatusBadRequest,
			detail: map[string]any{
				"error":    "UNSUPPORTED_AUDIO_FORMAT",
				"expected": audio.ExpectedFormat,
				"got":      " audio/x-s16le ",
			},
		},
		{
			name:        "format checked before size",
			contentType: "application/octet-stream",
			format:      ptr("pcm"),
			body:        make([]byte, 64),
			maxBytes:    16,
			status:      http.StatusBadRequest,
			detail: map[string]any{
				"error":    "UNSUPPORTED_AUDIO_FORMAT",
				"expected": audio.ExpectedFormat,
				"got":      "pcm",
			},
		},
		{
			name:        "too large",
			contentType: "application/octet-stream",
			body:        make([]byte, 64),
			maxBytes:    16,
			status:      http.StatusRequestEntityTooLarge,
			detail: map[string]any{
				"error":     "PAYLOAD_TOO_LARGE",
				"max_bytes": float64(16),
				"got_bytes": float64(64),
				"expected":  audio.ExpectedFormat,
			},
		},
		{
			name:        "empty body",
			contentType: "application/octet-stream",
			body:        nil,
			status:      http.StatusBadRequest,
			detail:      map[string]any{"error": "EMPTY_BODY", "expected": audio.ExpectedFormat},
		},
		{
			name:        "size checked before length",
			contentType: "application/octet-stream",
			body:        make([]byte, 21),
			maxBytes:    20,
			status:      http.StatusRequestEntityTooLarge,
			detail: map[string]any{
				"error":     "PAYLOAD_TOO_LARGE",
				"max_bytes": float64(20),
				"got_bytes": float64(21),
				"expected":  audio.ExpectedFormat,
			},
		},
		{
			name:        "partial sample",
			contentType: "application/octet-stream",
			body:        make([]byte, 5),
			status:      http.StatusBadRequest,
			detail:      map[string]any{"error": "INVALID_LENGTH", "expected": audio.ExpectedFormat},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, tt.maxBytes)
			req := pcmRequest("/asr/pcm", tt.body)
			req.Header.Set("Content-Type", tt.contentType)
			if tt.format != nil {
				req.Header.Set("X-Audio-Format", *tt.format)
			}

			w := ts.do(req)

			require.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.detail, decodeDetail(t, w))
			assert.Equal(t, 0, ts.engine.callCount())
		})
	}
}

func TestASRPCMAcceptsFormatHeaderVariants(t *testing.T) {
	ts := newTestServer(t, 0)
	req := pcmRequest("/asr/pcm", make([]byte, 8))
	req.Header.Set("Content-Type", "Application/Octet-Stream; charset=binary")
	req.Header.Set("X-Audio-Format", "  AUDIO/X-F32LE;RATE=16000;CHANNELS=1 ")

	w := ts.do(req)

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestASRPCMSizeLimitWithoutContentLength(t *testing.T) {
	ts := newTestServer(t, 16)
	req := pcmRequest("/asr/pcm", make([]byte, 40))
	req.ContentLength = -1

	w := ts.do(req)

	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	detail := decodeDetail(t, w)
	assert.Equal(t, float64(40), detail["got_bytes"])
}

// endlessBody never reaches EOF.
type endlessBody struct{}

func (endlessBody) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

func TestASRPCMSizeLimitStopsDrainingEndlessBody(t *testing.T) {
	ts := newTestServer(t, 16)
	req := httptest.NewRequest(http.MethodPost, "/asr/pcm", endlessBody{})
	req.Header.Set("Content-Type", "application/octet-stream")
	req.ContentLength = -1

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- ts.do(req) }()

	select {
	case w := <-done:
		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		detail := decodeDetail(t, w)
		assert.Equal(t, float64(17+maxPCMDrain), detail["got_bytes"])
		assert.Equal(t, float64(16), detail["max_bytes"])
	case <-time.After(5 * time.Second):
		t.Fatal("handler kept reading an endless body")
	}
	assert.Zero(t, ts.engine.callCount())
}

func TestASRPCMAtLimit(t *testing.T) {
	ts := newTestServer(t, 16)
	w := ts.do(pcmRequest("/asr/pcm", make([]byte, 16)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, ts.engine.lastCall(t).samples, 4)
}

func TestASRPCMInvalidParamsBeforeBody(t *testing.T) {
	ts := newTestServer(t, 0)
	req := pcmRequest("/asr/pcm?output=docx", nil)
	req.Header.Set("Content-Type", "text/plain")

	w := ts.do(req)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "output", decodeDetail(t, w)["param"])
}

func TestASRPCMIgnoresEncodeParam(t *testing.T) {
	ts := newTestServer(t, 0)
	w := ts.do(pcmRequest("/asr/pcm?encode=banana", make([]byte, 4)))

	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestDetectLanguagePCM(t *testing.T) {
	ts := newTestServer(t, 0)
	w := ts.do(pcmRequest("/detect-language/pcm?task=translate", make([]byte, 16000*4)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, fmt.Sprintf(
		`{"detected_language":"en","language_code":"en","confidence":0.93,"expected":%q}`,
		audio.ExpectedFormat,
	), w.Body.String())
	assert.Equal(t, asr.DetectOptions(), ts.engine.lastCall(t).opts)
}

func TestDetectLanguagePCMValidates(t *testing.T) {
	ts := newTestServer(t, 0)
	req := pcmRequest("/detect-language/pcm", make([]byte, 6))

	w := ts.do(req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_LENGTH", decodeDetail(t, w)["error"])
}

// echoBackend returns the first sample of its input as the transcript.
type echoBackend struct {
	inflight atomic.Int32
	overlap  atomic.Bool
}

func (b *echoBackend) Name() string { return "echo" }

func (b *echoBackend) Transcribe(ctx context.Context, samples []float32, opts asr.Options) ([]asr.Segment, asr.Info, error) {
	if b.inflight.Add(1) > 1 {
		b.overlap.Store(true)
	}
	defer b.inflight.Add(-1)

	return []asr.Segment{{Start: 0, End: 1, Text: fmt.Sprintf("%.3f", samples[0])}}, asr.Info{}, nil
}

func (b *echoBackend) Close() error { return nil }

func TestConcurrentRequestsShareOneEngine(t *testing.T) {
	var inits atomic.Int32
	backend := &echoBackend{}
	engine := asr.NewEngine(func(ctx context.Context) (asr.Backend, error) {
		inits.Add(1)
		return backend, nil
	})

	sm, err := scratch.New(t.TempDir(), nil)
	require.NoError(t, err)
	srv := NewServer(Options{}, engine, &fakeTranscoder{}, sm)

	const n = 24
	var wg sync.WaitGroup
	bodies := make([]string, n)
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			value := float32(i) / 100
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, pcmRequest("/asr/pcm?output=json", audio.EncodePCM([]float32{value, 0, 0})))
			codes[i] = w.Code
			bodies[i] = w.Body.String()
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.Equal(t, http.StatusOK, codes[i], bodies[i])
		var resp struct {
			Text string `json:"text"`
		}
		require.NoError(t, json.Unmarshal([]byte(bodies[i]), &resp))
		assert.Equal(t, fmt.Sprintf("%.3f", float32(i)/100), resp.Text)
	}
	assert.Equal(t, int32(1), inits.Load())
	assert.False(t, backend.overlap.Load(), "inference calls overlapped")
}

func ptr(s string) *string { return &s }
