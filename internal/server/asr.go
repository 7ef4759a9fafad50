package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/guiyumin/sentinel-whisper-server/internal/core/asr"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/render"
)

const (
	uploadField = "audio_file"

	// detectMaxSeconds bounds how much audio language detection transcodes.
	detectMaxSeconds = 30
)

// handleASR transcribes an uploaded media file.
func (s *Server) handleASR(c *gin.Context) {
	p, err := parseTranscribeParams(c, true)
	if err != nil {
		s.fail(c, err)
		return
	}

	segments, info, err := s.transcribeUpload(c, p.opts, p.encode, nil)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.respond(c, segments, info, p.format)
}

// handleDetectLanguage reports the language of an uploaded media file.
func (s *Server) handleDetectLanguage(c *gin.Context) {
	encode, err := queryBool(c, "encode", true)
	if err != nil {
		s.fail(c, err)
		return
	}

	maxSeconds := detectMaxSeconds
	_, info, err := s.transcribeUpload(c, asr.DetectOptions(), encode, &maxSeconds)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, detectResponse(info))
}

// transcribeUpload stores the upload in scratch, optionally transcodes it and
// runs the engine on the result. Every scratch file is removed before it returns.
func (s *Server) transcribeUpload(c *gin.Context, opts asr.Options, encode bool, maxSeconds *int) ([]asr.Segment, asr.Info, error) {
	ctx := c.Request.Context()

	input, err := s.receiveUpload(c)
	defer s.scratch.Cleanup(input)
	if err != nil {
		return nil, asr.Info{}, err
	}

	if !encode {
		return s.engine.TranscribeFile(ctx, input, opts)
	}

	output, err := s.scratch.CreatePath("_out.wav")
	defer s.scratch.Cleanup(output)
	if err != nil {
		return nil, asr.Info{}, err
	}

	if err := s.transcoder.Transcode(ctx, input, output, maxSeconds); err != nil {
		return nil, asr.Info{}, err
	}
	return s.engine.TranscribeFile(ctx, output, opts)
}

// receiveUpload streams the audio_file part of a multipart request into a
// scratch file. The returned path may be set even when err is not nil.
func (s *Server) receiveUpload(c *gin.Context) (string, error) {
	mr, err := c.Request.MultipartReader()
	if err != nil {
		return "", invalidParam(uploadField, nil)
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return "", invalidParam(uploadField, nil)
		}
		if err != nil {
			if ctxErr := c.Request.Context().Err(); ctxErr != nil {
				return "", ctxErr
			}
			return "", invalidParam(uploadField, nil)
		}
		if part.FormName() != uploadField {
			part.Close()
			continue
		}

		path, err := s.scratch.Materialize(part, "_in")
		part.Close()
		if err != nil {
			return "", fmt.Errorf("failed to store upload: %w", err)
		}
		return path, nil
	}
}

func (s *Server) respond(c *gin.Context, segments []asr.Segment, info asr.Info, format render.Format) {
	body, contentType, err := render.Render(segments, info, format)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, contentType, body)
}

func detectResponse(info asr.Info) gin.H {
	confidence := 0.0
	if info.LanguageProbability != nil {
		confidence = *info.LanguageProbability
	}
	return gin.H{
		"detected_language": info.Language,
		"language_code":     info.Language,
		"confidence":        confidence,
	}
}

// clientGone reports whether the request context ended before a response.
func clientGone(c *gin.Context) bool {
	return errors.Is(c.Request.Context().Err(), context.Canceled)
}
