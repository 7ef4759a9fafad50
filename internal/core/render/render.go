package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/guiyumin/sentinel-whisper-server/internal/core/asr"
)

// Format selects the encoding of a rendered transcript.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatVTT  Format = "vtt"
	FormatSRT  Format = "srt"
	FormatTSV  Format = "tsv"
)

// Formats lists every supported output format.
var Formats = []Format{FormatText, FormatJSON, FormatVTT, FormatSRT, FormatTSV}

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported output format: %q", s)
}

// ContentType returns the HTTP content type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatVTT:
		return "text/vtt; charset=utf-8"
	case FormatSRT:
		return "application/x-subrip"
	case FormatTSV:
		return "text/tab-separated-values; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Render encodes segments in the given format and returns the body with its content type.
func Render(segments []asr.Segment, info asr.Info, format Format) ([]byte, string, error) {
	switch format {
	case FormatText:
		return []byte(Text(segments)), format.ContentType(), nil
	case FormatJSON:
		body, err := JSON(segments, info)
		if err != nil {
			return nil, "", err
		}
		return body, format.ContentType(), nil
	case FormatVTT:
		return []byte(VTT(segments)), format.ContentType(), nil
	case FormatSRT:
		return []byte(SRT(segments)), format.ContentType(), nil
	case FormatTSV:
		return []byte(TSV(segments)), format.ContentType(), nil
	default:
		return nil, "", fmt.Errorf("unsupported output format: %q", format)
	}
}

// Text concatenates all segment texts without a separator and trims the result.
func Text(segments []asr.Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteString(seg.Text)
	}
	return strings.TrimSpace(sb.String())
}

// VTT renders a WebVTT document.
func VTT(segments []asr.Segment) string {
	lines := []string{"WEBVTT", ""}
	for i, seg := range segments {
		lines = append(lines,
			strconv.Itoa(i+1),
			VTTTimestamp(seg.Start)+" --> "+VTTTimestamp(seg.End),
			strings.TrimSpace(seg.Text),
			"",
		)
	}
	return finish(lines)
}

// SRT renders a SubRip document.
func SRT(segments []asr.Segment) string {
	var lines []string
	for i, seg := range segments {
		lines = append(lines,
			strconv.Itoa(i+1),
			SRTTimestamp(seg.Start)+" --> "+SRTTimestamp(seg.End),
			strings.TrimSpace(seg.Text),
			"",
		)
	}
	return finish(lines)
}

// TSV renders a tab-separated table with a start/end/text header.
func TSV(segments []asr.Segment) string {
	lines := []string{"start\tend\ttext"}
	for _, seg := range segments {
		lines = append(lines, fmt.Sprintf("%.3f\t%.3f\t%s", seg.Start, seg.End, strings.TrimSpace(seg.Text)))
	}
	return finish(lines)
}

func finish(lines []string) string {
	return strings.TrimSpace(strings.Join(lines, "\n")) + "\n"
}

type jsonWord struct {
	Start       float64  `json:"start"`
	End         float64  `json:"end"`
	Word        string   `json:"word"`
	Probability *float64 `json:"probability"`
}

type jsonSegment struct {
	ID    int        `json:"id"`
	Start float64    `json:"start"`
	End   float64    `json:"end"`
	Text  string     `json:"text"`
	Words []jsonWord `json:"words"`
}

type jsonTranscript struct {
	Text                string        `json:"text"`
	Language            *string       `json:"language"`
	LanguageProbability *float64      `json:"language_probability"`
	Segments            []jsonSegment `json:"segments"`
}

// JSON renders the structured transcript. Segment text is kept as produced by the engine,
// while the top-level text follows the plain text rules.
func JSON(segments []asr.Segment, info asr.Info) ([]byte, error) {
	doc := jsonTranscript{
		Text:                Text(segments),
		Language:            info.Language,
		LanguageProbability: info.LanguageProbability,
		Segments:            make([]jsonSegment, 0, len(segments)),
	}

	for _, seg := range segments {
		js := jsonSegment{
			ID:    seg.ID,
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		}
		if len(seg.Words) > 0 {
			js.Words = make([]jsonWord, 0, len(seg.Words))
			for _, w := range seg.Words {
				js.Words = append(js.Words, jsonWord{
					Start:       w.Start,
					End:         w.End,
					Word:        w.Text,
					Probability: w.Probability,
				})
			}
		}
		doc.Segments = append(doc.Segments, js)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to encode transcript: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
