package pattern

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type TokenKind int

const (
	TokenWord TokenKind = iota
	TokenWildCard
	TokenWildCardDepth
	TokenOpen
	TokenClose
	TokenComma
	TokenSlash
	TokenNot
)

// Token is one lexical element of a pattern. Offset is the byte position of
// its first character and only feeds error messages.
type Token struct {
	Kind   TokenKind
	Text   string
	Offset int
}

func (kind TokenKind) String() string {
	switch kind {
	case TokenWord:
		return "word"
	case TokenWildCard:
		return "*"
	case TokenWildCardDepth:
		return "**"
	case TokenOpen:
		return "{"
	case TokenClose:
		return "}"
	case TokenComma:
		return ","
	case TokenSlash:
		return "/"
	case TokenNot:
		return "!"
	default:
		return fmt.Sprintf("token(%d)", int(kind))
	}
}

func (token Token) String() string {
	if token.Kind == TokenWord {
		return fmt.Sprintf("word(%q)", token.Text)
	}
	return token.Kind.String()
}

func singleCharToken(char rune) (TokenKind, bool) {
	switch char {
	case '/':
		return TokenSlash, true
	case '{':
		return TokenOpen, true
	case '}':
		return TokenClose, true
	case ',':
		return TokenComma, true
	case '!':
		return TokenNot, true
	default:
		return 0, false
	}
}

// Tokenize splits a pattern into tokens. Two adjacent stars collapse into a
// depth wildcard; a third one starts a new single wildcard. Word bytes are
// kept as they are, including invalid UTF-8.
func Tokenize(pattern string) ([]Token, error) {
	tokens := make([]Token, 0, 8)
	var pending *Token
	var word strings.Builder

	flush := func() {
		if pending == nil {
			return
		}
		if pending.Kind == TokenWord {
			pending.Text = word.String()
			word.Reset()
		}
		tokens = append(tokens, *pending)
		pending = nil
	}

	for offset, size := 0, 0; offset < len(pattern); offset += size {
		var char rune
		char, size = utf8.DecodeRuneInString(pattern[offset:])
		if kind, ok := singleCharToken(char); ok {
			flush()
			pending = &Token{Kind: kind, Offset: offset}
			continue
		}
		if char == '*' {
			if pending != nil && pending.Kind == TokenWildCard {
				pending.Kind = TokenWildCardDepth
				flush()
				continue
			}
			flush()
			pending = &Token{Kind: TokenWildCard, Offset: offset}
			continue
		}
		if pending == nil || pending.Kind != TokenWord {
			flush()
			pending = &Token{Kind: TokenWord, Offset: offset}
		}
		word.WriteString(pattern[offset : offset+size])
	}
	flush()

	if len(tokens) == 0 {
		return nil, &SyntaxError{Pattern: pattern, Offset: 0, Err: ErrEmptyPattern}
	}
	return tokens, nil
}
