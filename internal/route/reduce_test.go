package route

import (
	"errors"
	"testing"

	"reburn/internal/pattern"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	cases := []struct {
		pattern  string
		expected []Route
	}{
		{
			pattern:  "word.rs",
			expected: []Route{{Name(Literal("word.rs"))}},
		},
		{
			pattern: "a/b{c,d}",
			expected: []Route{
				{Name(Literal("a")), Name(Literal("b"), Literal("c"))},
				{Name(Literal("a")), Name(Literal("b"), Literal("d"))},
			},
		},
		{
			pattern:  "**/*",
			expected: []Route{{AnySubRoute(), Name(Any())}},
		},
		{
			pattern: "{src,test}/**/*.go",
			expected: []Route{
				{Name(Literal("src")), AnySubRoute(), Name(Any(), Literal(".go"))},
				{Name(Literal("test")), AnySubRoute(), Name(Any(), Literal(".go"))},
			},
		},
		{
			pattern: "{a,b}{c,d}",
			expected: []Route{
				{Name(Literal("a"), Literal("c"))},
				{Name(Literal("a"), Literal("d"))},
				{Name(Literal("b"), Literal("c"))},
				{Name(Literal("b"), Literal("d"))},
			},
		},
		{
			pattern: "x{a/b,c}y",
			expected: []Route{
				{Name(Literal("x"), Literal("a")), Name(Literal("b"), Literal("y"))},
				{Name(Literal("x"), Literal("c"), Literal("y"))},
			},
		},
		{
			pattern: "a,b/c",
			expected: []Route{
				{Name(Literal("a"))},
				{Name(Literal("b")), Name(Literal("c"))},
			},
		},
		{
			pattern:  "*!_gen",
			expected: []Route{{Name(Any(), NegatedLiteral("_gen"))}},
		},
		{
			pattern: "src/!{a,b}",
			expected: []Route{
				{Name(Literal("src")), Name(NegatedLiteral("a"))},
				{Name(Literal("src")), Name(NegatedLiteral("b"))},
			},
		},
		{
			pattern:  "!{!a}",
			expected: []Route{{Name(Literal("a"))}},
		},
		{
			pattern:  "./**",
			expected: []Route{{Name(Literal(".")), AnySubRoute()}},
		},
	}

	for _, testCase := range cases {
		t.Run(testCase.pattern, func(t *testing.T) {
			routes, err := Compile(testCase.pattern)
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, routes)
		})
	}
}

func TestCompileRejects(t *testing.T) {
	cases := []struct {
		pattern string
		err     error
	}{
		{"a**", ErrConcatDepth},
		{"**b", ErrConcatDepth},
		{"{a/**}b", ErrConcatDepth},
		{"!*", ErrNegateAny},
		{"!{a,*}", ErrNegateAny},
		{"!{a/b}", ErrNegateNonLiteral},
		{"!**", ErrNegateNonLiteral},
		{"!{*a}", ErrNegateNonLiteral},
	}

	for _, testCase := range cases {
		t.Run(testCase.pattern, func(t *testing.T) {
			_, err := Compile(testCase.pattern)
			require.Error(t, err)
			assert.True(t, errors.Is(err, testCase.err), "expected %v, got %v", testCase.err, err)

			var reduceErr *ReduceError
			assert.True(t, errors.As(err, &reduceErr))
		})
	}
}

func TestCompilePropagatesSyntaxErrors(t *testing.T) {
	for _, text := range []string{"**//*", "", "{}", "{,a}"} {
		_, err := Compile(text)
		var syntaxErr *pattern.SyntaxError
		assert.True(t, errors.As(err, &syntaxErr), "pattern %q: %v", text, err)
	}
}

func TestExpandNegatedOptionPerAlternative(t *testing.T) {
	routes, err := Expand(pattern.Not(pattern.Option(pattern.Word("a"), pattern.Word("b"))))
	require.NoError(t, err)
	assert.Equal(t, []Route{{Name(NegatedLiteral("a"))}, {Name(NegatedLiteral("b"))}}, routes)

	_, err = Expand(pattern.Not(pattern.Concat(pattern.Word("a"), pattern.WildCard())))
	assert.ErrorIs(t, err, ErrNegateNonLiteral)
}

func TestExpandRejectsEmptyGroups(t *testing.T) {
	for _, selector := range []pattern.Selector{pattern.Option(), pattern.Route(), pattern.Concat()} {
		_, err := Expand(selector)
		assert.ErrorIs(t, err, ErrEmptyGroup, "kind %s", selector.Kind)
	}
}

func TestCompileMatchesInvalidUTF8Names(t *testing.T) {
	routes, err := Compile("\xff*")
	require.NoError(t, err)
	require.Len(t, routes, 1)
	require.Len(t, routes[0], 1)

	item := routes[0][0]
	assert.Equal(t, Name(Literal("\xff"), Any()), item)
	assert.True(t, item.Matches("\xffx"))
	assert.False(t, item.Matches("�x"))
}
