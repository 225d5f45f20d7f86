package pattern

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(tokens []Token) []TokenKind {
	out := make([]TokenKind, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, token.Kind)
	}
	return out
}

func words(tokens []Token) []string {
	out := []string{}
	for _, token := range tokens {
		if token.Kind == TokenWord {
			out = append(out, token.Text)
		}
	}
	return out
}

func TestTokenize(t *testing.T) {
	cases := []struct {
		pattern string
		kinds   []TokenKind
		words   []string
	}{
		{
			pattern: "word.rs",
			kinds:   []TokenKind{TokenWord},
			words:   []string{"word.rs"},
		},
		{
			pattern: "***",
			kinds:   []TokenKind{TokenWildCardDepth, TokenWildCard},
			words:   []string{},
		},
		{
			pattern: "./.rs",
			kinds:   []TokenKind{TokenWord, TokenSlash, TokenWord},
			words:   []string{".", ".rs"},
		},
		{
			pattern: "../..",
			kinds:   []TokenKind{TokenWord, TokenSlash, TokenWord},
			words:   []string{"..", ".."},
		},
		{
			pattern: "..test{.rs,.go}",
			kinds:   []TokenKind{TokenWord, TokenOpen, TokenWord, TokenComma, TokenWord, TokenClose},
			words:   []string{"..test", ".rs", ".go"},
		},
		{
			pattern: "/**/something/file.*",
			kinds:   []TokenKind{TokenSlash, TokenWildCardDepth, TokenSlash, TokenWord, TokenSlash, TokenWord, TokenWildCard},
			words:   []string{"something", "file."},
		},
		{
			pattern: "{Cargo.toml,*.rs}/",
			kinds:   []TokenKind{TokenOpen, TokenWord, TokenComma, TokenWildCard, TokenWord, TokenClose, TokenSlash},
			words:   []string{"Cargo.toml", ".rs"},
		},
		{
			pattern: "!a!!b",
			kinds:   []TokenKind{TokenNot, TokenWord, TokenNot, TokenNot, TokenWord},
			words:   []string{"a", "b"},
		},
		{
			pattern: "****",
			kinds:   []TokenKind{TokenWildCardDepth, TokenWildCardDepth},
			words:   []string{},
		},
	}

	for _, testCase := range cases {
		t.Run(testCase.pattern, func(t *testing.T) {
			tokens, err := Tokenize(testCase.pattern)
			require.NoError(t, err)
			assert.Equal(t, testCase.kinds, kinds(tokens))
			assert.Equal(t, testCase.words, words(tokens))
		})
	}
}

func TestTokenizeEmptyFails(t *testing.T) {
	tokens, err := Tokenize("")
	require.Error(t, err)
	assert.Nil(t, tokens)
	assert.True(t, errors.Is(err, ErrEmptyPattern))
}

func TestTokenizeOffsets(t *testing.T) {
	tokens, err := Tokenize("ab/*{c}")
	require.NoError(t, err)

	offsets := make([]int, 0, len(tokens))
	for _, token := range tokens {
		offsets = append(offsets, token.Offset)
	}
	assert.Equal(t, []int{0, 2, 3, 4, 5, 6}, offsets)
}

func TestTokenizeKeepsMultibyteWords(t *testing.T) {
	tokens, err := Tokenize("héllo/wörld")
	require.NoError(t, err)
	assert.Equal(t, []string{"héllo", "wörld"}, words(tokens))
}

func TestTokenizeKeepsInvalidUTF8Bytes(t *testing.T) {
	tokens, err := Tokenize("a\xffb/*\xfe")
	require.NoError(t, err)
	assert.Equal(t, []TokenKind{TokenWord, TokenSlash, TokenWildCard, TokenWord}, kinds(tokens))
	assert.Equal(t, []string{"a\xffb", "\xfe"}, words(tokens))
	assert.Equal(t, 5, tokens[3].Offset)
}
