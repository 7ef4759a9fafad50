package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/guiyumin/sentinel-whisper-server/internal/core/asr"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/audio"
)

const (
	octetStream  = "application/octet-stream"
	formatHeader = "X-Audio-Format"

	// maxPCMDrain bounds how much of an oversized body is read and discarded
	// to measure it. Past this got_bytes is a lower bound.
	maxPCMDrain int64 = 8 << 20
)

// handleASRPCM transcribes a raw float32 PCM body.
func (s *Server) handleASRPCM(c *gin.Context) {
	p, err := parseTranscribeParams(c, false)
	if err != nil {
		s.fail(c, err)
		return
	}

	samples, err := s.readPCM(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	segments, info, err := s.engine.TranscribeSamples(c.Request.Context(), samples, p.opts)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.respond(c, segments, info, p.format)
}

// handleDetectLanguagePCM reports the language of a raw float32 PCM body.
func (s *Server) handleDetectLanguagePCM(c *gin.Context) {
	samples, err := s.readPCM(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	_, info, err := s.engine.TranscribeSamples(c.Request.Context(), samples, asr.DetectOptions())
	if err != nil {
		s.fail(c, err)
		return
	}

	resp := detectResponse(info)
	resp["expected"] = audio.ExpectedFormat
	c.JSON(http.StatusOK, resp)
}

// readPCM validates the request headers and body size, then decodes the body
// into clamped samples. Checks run in a fixed order: content type, declared
// format, size, then length.
func (s *Server) readPCM(c *gin.Context) ([]float32, error) {
	ct := strings.ToLower(c.GetHeader("Content-Type"))
	if !strings.HasPrefix(ct, octetStream) {
		return nil, &apiError{
			status: http.StatusUnsupportedMediaType,
			code:   codeUnsupportedMediaType,
			fields: gin.H{"expected": octetStream},
		}
	}

	if values := c.Request.Header.Values(formatHeader); len(values) > 0 {
		got := values[0]
		if !strings.EqualFold(strings.TrimSpace(got), audio.ExpectedFormat) {
			return nil, &apiError{
				status: http.StatusBadRequest,
				code:   codeUnsupportedAudioFormat,
				fields: gin.H{"expected": audio.ExpectedFormat, "got": got},
			}
		}
	}

	body, err := s.readBody(c)
	if err != nil {
		return nil, err
	}

	return audio.DecodePCM(body, true)
}

func (s *Server) readBody(c *gin.Context) ([]byte, error) {
	limit := s.maxPCMBytes
	if limit <= 0 {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		return body, nil
	}

	if c.Request.ContentLength > limit {
		return nil, tooLarge(limit, c.Request.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if int64(len(body)) > limit {
		rest, _ := io.CopyN(io.Discard, c.Request.Body, maxPCMDrain)
		return nil, tooLarge(limit, int64(len(body))+rest)
	}
	return body, nil
}

func tooLarge(limit, got int64) *apiError {
	return &apiError{
		status: http.StatusRequestEntityTooLarge,
		code:   codePayloadTooLarge,
		fields: gin.H{
			"max_bytes": limit,
			"got_bytes": got,
			"expected":  audio.ExpectedFormat,
		},
	}
}
