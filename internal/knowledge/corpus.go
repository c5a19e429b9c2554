// Package knowledge answers free-text questions from a static line-oriented
// corpus, falling back to a text generator when substring search is not
// enough.
package knowledge

import (
	"fmt"
	"os"
	"strings"
)

// Corpus is an immutable newline-delimited knowledge text.
type Corpus struct {
	text  string
	lines []string
}

// NewCorpus builds a corpus from text.
func NewCorpus(text string) *Corpus {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return &Corpus{
		text:  text,
		lines: strings.Split(text, "\n"),
	}
}

// LoadCorpus reads the corpus file at path.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge corpus: %w", err)
	}
	return NewCorpus(string(data)), nil
}

// Empty reports whether the corpus has no usable text.
func (c *Corpus) Empty() bool {
	return c == nil || strings.TrimSpace(c.text) == ""
}

// Text returns the whole corpus.
func (c *Corpus) Text() string {
	if c == nil {
		return ""
	}
	return c.text
}

// Search returns the lines containing query, case-insensitively, in corpus
// order. A blank query matches nothing.
func (c *Corpus) Search(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || c == nil {
		return nil
	}

	var matched []string
	for _, line := range c.lines {
		if strings.Contains(strings.ToLower(line), q) {
			matched = append(matched, line)
		}
	}
	return matched
}
