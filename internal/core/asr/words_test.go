package asr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeTokens(t *testing.T) {
	tokens := []Token{
		{Text: " Hel", Start: 0.0, End: 0.2, Probability: 0.8},
		{Text: "lo", Start: 0.2, End: 0.4, Probability: 0.6},
		{Text: ",", Start: 0.4, End: 0.45, Probability: 1.0},
		{Text: " world", Start: 0.5, End: 0.9, Probability: 0.9},
		{Text: "", Start: 0.9, End: 0.9, Probability: 0.1},
	}

	words := MergeTokens(tokens)
	require.Len(t, words, 2)

	assert.Equal(t, " Hello,", words[0].Text)
	assert.Equal(t, 0.0, words[0].Start)
	assert.Equal(t, 0.45, words[0].End)
	require.NotNil(t, words[0].Probability)
	assert.InDelta(t, 0.8, *words[0].Probability, 1e-9)

	assert.Equal(t, " world", words[1].Text)
	assert.Equal(t, 0.5, words[1].Start)
	assert.InDelta(t, 0.9, *words[1].Probability, 1e-9)
}

func TestMergeTokensFirstTokenWithoutSpace(t *testing.T) {
	words := MergeTokens([]Token{
		{Text: "Bon", Start: 1, End: 1.2, Probability: 0.5},
		{Text: "jour", Start: 1.2, End: 1.5, Probability: 0.7},
	})
	require.Len(t, words, 1)
	assert.Equal(t, "Bonjour", words[0].Text)
	assert.Equal(t, 1.5, words[0].End)
}

func TestMergeTokensSkipsBlankWords(t *testing.T) {
	assert.Empty(t, MergeTokens([]Token{{Text: " ", Probability: 1}}))
	assert.Empty(t, MergeTokens(nil))
}

func TestLanguageCode(t *testing.T) {
	tests := map[string]string{
		"en":        "en",
		"EN":        "en",
		"english":   "en",
		"German":    "de",
		"cantonese": "yue",
		" french ":  "fr",
		"klingon":   "klingon",
	}
	for in, want := range tests {
		assert.Equal(t, want, LanguageCode(in), in)
	}

	assert.True(t, IsLanguage("ja"))
	assert.False(t, IsLanguage("japanese"))
}

func TestParseTask(t *testing.T) {
	task, err := ParseTask("translate")
	require.NoError(t, err)
	assert.Equal(t, TaskTranslate, task)

	_, err = ParseTask("summarize")
	require.Error(t, err)
}
