package asr

import "strings"

// Token is a timed sub-word unit as produced by token-level decoders.
type Token struct {
	Text        string
	Start       float64
	End         float64
	Probability float64
}

// MergeTokens joins sub-word tokens into words. A token whose text starts
// with whitespace begins a new word. The word probability is the mean of
// its tokens.
func MergeTokens(tokens []Token) []Word {
	var (
		words []Word
		text  strings.Builder
		cur   Word
		sum   float64
		count int
	)

	flush := func() {
		if count == 0 || strings.TrimSpace(text.String()) == "" {
			return
		}
		p := sum / float64(count)
		cur.Text = text.String()
		cur.Probability = &p
		words = append(words, cur)
	}

	for _, tok := range tokens {
		if tok.Text == "" {
			continue
		}
		startsWord := count == 0 || tok.Text[0] == ' '
		if startsWord {
			flush()
			cur = Word{Start: tok.Start}
			text.Reset()
			sum, count = 0, 0
		}
		text.WriteString(tok.Text)
		cur.End = tok.End
		sum += tok.Probability
		count++
	}
	flush()

	return words
}
