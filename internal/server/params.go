package server

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/guiyumin/sentinel-whisper-server/internal/core/asr"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/config"
	"github.com/guiyumin/sentinel-whisper-server/internal/core/render"
)

// transcribeParams are the query parameters shared by /asr and /asr/pcm.
type transcribeParams struct {
	format render.Format
	opts   asr.Options
	encode bool
}

func parseTranscribeParams(c *gin.Context, withEncode bool) (transcribeParams, error) {
	p := transcribeParams{
		format: render.FormatText,
		opts:   asr.Options{Task: asr.TaskTranscribe},
		encode: true,
	}

	if v, ok := c.GetQuery("output"); ok {
		f, err := render.ParseFormat(v)
		if err != nil {
			return p, invalidParam("output", v)
		}
		p.format = f
	}

	if v, ok := c.GetQuery("task"); ok {
		t, err := asr.ParseTask(v)
		if err != nil {
			return p, invalidParam("task", v)
		}
		p.opts.Task = t
	}

	// An empty language means auto-detect, same as leaving it out
	if v := strings.TrimSpace(c.Query("language")); v != "" {
		p.opts.Language = &v
	}

	var err error
	if p.opts.WordTimestamps, err = queryBool(c, "word_timestamps", false); err != nil {
		return p, err
	}
	if p.opts.VADFilter, err = queryBool(c, "vad_filter", false); err != nil {
		return p, err
	}
	if withEncode {
		if p.encode, err = queryBool(c, "encode", true); err != nil {
			return p, err
		}
	}

	return p, nil
}

func queryBool(c *gin.Context, name string, def bool) (bool, error) {
	v, ok := c.GetQuery(name)
	if !ok {
		return def, nil
	}
	b, err := config.ParseBool(v)
	if err != nil {
		return false, invalidParam(name, v)
	}
	return b, nil
}
