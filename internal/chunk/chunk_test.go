package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestSplit_ShortTextUnchanged(t *testing.T) {
	text := "OPD timing:\n9am to 5pm  (Mon-Sat)"
	require.Equal(t, []string{text}, Split(text, 4096))
}

func TestSplit_GreedyPacking(t *testing.T) {
	parts := Split("aaa bbb ccc ddd", 7)
	require.Equal(t, []string{"aaa bbb", "ccc ddd"}, parts)

	parts = Split("aaa bbb ccc ddd", 8)
	require.Equal(t, []string{"aaa bbb", "ccc ddd"}, parts)

	parts = Split("aaa bbb ccc ddd", 11)
	require.Equal(t, []string{"aaa bbb ccc", "ddd"}, parts)
}

func TestSplit_HardSplitsLongWord(t *testing.T) {
	parts := Split("hi abcdefghij ok", 4)
	require.Equal(t, []string{"hi", "abcd", "efgh", "ij", "ok"}, parts)
}

func TestSplit_LongWordRemainderJoinsNextWord(t *testing.T) {
	parts := Split("abcdefg h", 5)
	require.Equal(t, []string{"abcde", "fg h"}, parts)
}

func TestSplit_CountsRunes(t *testing.T) {
	word := strings.Repeat("शा", 5) // 10 runes, 30 bytes
	parts := Split(word+" ळा", 4)
	for _, p := range parts {
		require.True(t, utf8.ValidString(p))
		require.LessOrEqual(t, utf8.RuneCountInString(p), 4)
	}
	require.Equal(t, word+"ळा", strings.Join(parts, ""))
}

func TestSplit_PartsBoundedAndRejoinable(t *testing.T) {
	words := []string{"scheme", "pradhan", "mantri", "awas", "yojana", "eligibility", "documents", "a", "zp"}
	var b strings.Builder
	for i := 0; i < 3000; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(words[i%len(words)])
	}
	text := b.String()

	for _, max := range []int{12, 50, 333, 4096} {
		parts := Split(text, max)
		require.Greater(t, len(parts), 1, "max=%d", max)
		for _, p := range parts {
			require.LessOrEqual(t, utf8.RuneCountInString(p), max, "max=%d", max)
			require.NotEmpty(t, p)
		}
		require.Equal(t, text, strings.Join(parts, " "), "max=%d", max)
	}
}

func TestSplit_KeepsSeparatorsWithinParts(t *testing.T) {
	parts := Split("one  two   three", 9)
	require.Equal(t, []string{"one  two", "three"}, parts)
	require.Equal(t, strings.Join(strings.Fields("one  two   three"), " "), strings.Join(strings.Fields(strings.Join(parts, " ")), " "))
}

func TestSplit_BreaksOnAnyWhitespace(t *testing.T) {
	cases := map[string]struct {
		text string
		max  int
		want []string
	}{
		"tabs":     {strings.Repeat("ab\tcd\t", 4), 5, []string{"ab\tcd", "ab\tcd", "ab\tcd", "ab\tcd"}},
		"newlines": {"line one\nline two\n", 9, []string{"line one", "line two"}},
		"mixed":    {"OPD:\n\t9am-5pm\r\nSun closed", 13, []string{"OPD:\n\t9am-5pm", "Sun closed"}},
		"nbsp":     {"ward\u00a0seven desk", 10, []string{"ward\u00a0seven", "desk"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			parts := Split(tc.text, tc.max)
			require.Equal(t, tc.want, parts)

			words := map[string]bool{}
			for _, w := range strings.Fields(tc.text) {
				words[w] = true
			}
			for _, p := range parts {
				require.LessOrEqual(t, utf8.RuneCountInString(p), tc.max)
				for _, w := range strings.Fields(p) {
					require.True(t, words[w], "word %q was cut", w)
				}
			}
			require.Equal(t, strings.Join(strings.Fields(tc.text), " "), strings.Join(strings.Fields(strings.Join(parts, " ")), " "))
		})
	}
}

func TestSplit_DefaultsMaxLength(t *testing.T) {
	text := strings.Repeat("x ", 3000)
	parts := Split(text, 0)
	require.Len(t, parts, 2)
	require.LessOrEqual(t, len(parts[0]), DefaultMaxLength)
}
