package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guiyumin/sentinel-whisper-server/internal/core/asr"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/audio"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/transcode"
)

// Error codes returned in {"detail": {"error": ...}}.
const (
	codeUnsupportedMediaType   = "UNSUPPORTED_MEDIA_TYPE"
	codeUnsupportedAudioFormat = "UNSUPPORTED_AUDIO_FORMAT"
	codePayloadTooLarge        = "PAYLOAD_TOO_LARGE"
	codeEmptyBody              = "EMPTY_BODY"
	codeInvalidLength          = "INVALID_LENGTH"
	codeTranscodeFailed        = "TRANSCODE_FAILED"
	codeEngineFailure          = "ENGINE_FAILURE"
	codeInvalidParameter       = "INVALID_PARAMETER"
	codeClientClosedRequest    = "CLIENT_CLOSED_REQUEST"
	codeInternalError          = "INTERNAL_ERROR"
)

// statusClientClosedRequest is nginx's non-standard status for a client that went away.
const statusClientClosedRequest = 499

// apiError is a validation failure with a fixed status and detail body.
type apiError struct {
	status int
	code   string
	fields gin.H
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s (%d)", e.code, e.status)
}

func (e *apiError) detail() gin.H {
	d := gin.H{"error": e.code}
	for k, v := range e.fields {
		d[k] = v
	}
	return d
}

func invalidParam(param string, got any) *apiError {
	return &apiError{
		status: http.StatusUnprocessableEntity,
		code:   codeInvalidParameter,
		fields: gin.H{"param": param, "got": got},
	}
}

// classify maps any handler error to a status and detail body.
func classify(err error) (int, gin.H) {
	var apiErr *apiError
	var tErr *transcode.Error

	switch {
	case errors.As(err, &apiErr):
		return apiErr.status, apiErr.detail()
	case errors.Is(err, audio.ErrEmptyBody):
		return http.StatusBadRequest, gin.H{"error": codeEmptyBody, "expected": audio.ExpectedFormat}
	case errors.Is(err, audio.ErrInvalidLength):
		return http.StatusBadRequest, gin.H{"error": codeInvalidLength, "expected": audio.ExpectedFormat}
	case errors.As(err, &tErr):
		return http.StatusBadGateway, gin.H{"error": codeTranscodeFailed, "message": tErr.Error(), "output": tErr.Output}
	case errors.Is(err, asr.ErrEngineFailure):
		return http.StatusInternalServerError, gin.H{"error": codeEngineFailure, "message": err.Error()}
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest, gin.H{"error": codeClientClosedRequest}
	default:
		return http.StatusInternalServerError, gin.H{"error": codeInternalError, "message": err.Error()}
	}
}

// fail writes the error response and logs it.
func (s *Server) fail(c *gin.Context, err error) {
	status, detail := classify(err)
	if clientGone(c) {
		status, detail = statusClientClosedRequest, gin.H{"error": codeClientClosedRequest}
	}

	switch {
	case status >= http.StatusInternalServerError:
		s.logger.Error("request failed", "path", c.Request.URL.Path, "status", status, "error", err)
	case status == statusClientClosedRequest:
		s.logger.Info("client went away", "path", c.Request.URL.Path)
	default:
		s.logger.Debug("request rejected", "path", c.Request.URL.Path, "status", status, "error", err)
	}

	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
