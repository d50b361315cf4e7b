package normalize

import (
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Tokenizer scores text by the number of meaningful words it contains.
// It is not safe for concurrent use.
type Tokenizer struct {
	caser     cases.Caser
	stopWords map[string]struct{}
}

func NewTokenizer(lang string, stopWords map[string]struct{}) *Tokenizer {
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.Und
	}

	return &Tokenizer{
		caser:     cases.Lower(tag),
		stopWords: stopWords,
	}
}

// Tokens splits text into words, keeps the purely alphabetic ones,
// lower-cases them and drops stop words.
func (t *Tokenizer) Tokens(text string) []string {
	var tokens []string

	segments := words.FromString(norm.NFC.String(text))
	for segments.Next() {
		word := segments.Value()
		if !isAlpha(word) {
			continue
		}

		word = t.caser.String(word)
		if _, stop := t.stopWords[word]; stop {
			continue
		}
		tokens = append(tokens, word)
	}

	return tokens
}

// Count is the token density metric.
func (t *Tokenizer) Count(text string) int {
	return len(t.Tokens(text))
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// CountTokens sets n_tokens_<column> on every row where column is present.
// Rows with a missing value keep a missing metric.
func CountTokens(rows []Row, column Column, tok *Tokenizer) []Row {
	out := cloneRows(rows)
	for i := range out {
		value := out[i].text(column)
		if !value.Valid {
			continue
		}
		out[i].setTokens(column, tok.Count(value.String))
	}
	return out
}
