// Package asr holds the shared transcription engine and its result types.
package asr

import "fmt"

// Task selects between same-language transcription and translation to English.
type Task string

const (
	TaskTranscribe Task = "transcribe"
	TaskTranslate  Task = "translate"
)

// ParseTask validates a task name.
func ParseTask(s string) (Task, error) {
	switch Task(s) {
	case TaskTranscribe, TaskTranslate:
		return Task(s), nil
	default:
		return "", fmt.Errorf("unsupported task: %q", s)
	}
}

// Word is a single timed word inside a segment.
type Word struct {
	Start       float64
	End         float64
	Text        string
	Probability *float64
}

// Segment is a contiguous span of transcribed speech.
type Segment struct {
	ID    int
	Start float64
	End   float64
	Text  string
	Words []Word
}

// Info describes the language of a transcription.
type Info struct {
	Language            *string
	LanguageProbability *float64
}

// Options control a single transcription call.
type Options struct {
	Task Task
	// Language is an ISO code; nil requests automatic detection.
	Language       *string
	VADFilter      bool
	WordTimestamps bool
}

// DetectOptions are the options used for language detection.
func DetectOptions() Options {
	return Options{Task: TaskTranscribe}
}
