// Package chunk splits outbound text into parts the gateway accepts.
package chunk

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxLength is the gateway's text body limit, in characters.
const DefaultMaxLength = 4096

// Split breaks text into ordered parts of at most maxLength characters.
// Words end at any Unicode whitespace and are packed greedily. The
// whitespace between words in the same part is kept as written; the run at
// a part boundary is dropped. A word longer than maxLength is cut at the
// boundary. Text that already fits is returned unchanged. Lengths count
// runes so multi-byte scripts are never cut mid-character.
func Split(text string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if utf8.RuneCountInString(text) <= maxLength {
		return []string{text}
	}

	var parts []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			parts = append(parts, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, tok := range tokenize(text) {
		if currentLen > 0 && currentLen+tok.sepLen+tok.wordLen <= maxLength {
			current.WriteString(tok.sep)
			current.WriteString(tok.word)
			currentLen += tok.sepLen + tok.wordLen
			continue
		}

		flush()

		word, wordLen := tok.word, tok.wordLen
		for wordLen > maxLength {
			head, tail := cut(word, maxLength)
			parts = append(parts, head)
			word = tail
			wordLen -= maxLength
		}
		current.WriteString(word)
		currentLen = wordLen
	}
	flush()

	return parts
}

// token is a word and the whitespace run that precedes it.
type token struct {
	sep     string
	word    string
	sepLen  int
	wordLen int
}

// tokenize splits text into words, remembering the separator before each.
// Trailing whitespace is discarded.
func tokenize(text string) []token {
	var tokens []token
	var tok token
	inWord := false
	start := 0

	for pos, r := range text {
		space := unicode.IsSpace(r)
		switch {
		case space && inWord:
			tok.word = text[start:pos]
			tokens = append(tokens, tok)
			tok = token{}
			inWord = false
			start = pos
		case !space && !inWord:
			tok.sep = text[start:pos]
			tok.sepLen = utf8.RuneCountInString(tok.sep)
			inWord = true
			start = pos
		}
		if !space {
			tok.wordLen++
		}
	}
	if inWord {
		tok.word = text[start:]
		tokens = append(tokens, tok)
	}
	return tokens
}

// cut splits s after n runes.
func cut(s string, n int) (string, string) {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], s[pos:]
		}
		i++
	}
	return s, ""
}
