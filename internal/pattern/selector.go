package pattern

import "strings"

type Kind int

const (
	KindWord Kind = iota
	KindWildCard
	KindWildCardDepth
	KindNot
	KindConcat
	KindRoute
	KindOption
)

func (kind Kind) String() string {
	switch kind {
	case KindWord:
		return "word"
	case KindWildCard:
		return "wildcard"
	case KindWildCardDepth:
		return "wildcard-depth"
	case KindNot:
		return "not"
	case KindConcat:
		return "concat"
	case KindRoute:
		return "route"
	case KindOption:
		return "option"
	default:
		return "unknown"
	}
}

// Selector is the parsed form of a pattern.
//
// Option, Route and Concat hold two or more children when built by the
// parser. Not holds exactly one child. Word carries its literal in Text.
type Selector struct {
	Kind     Kind
	Text     string
	Children []Selector
}

func Word(text string) Selector {
	return Selector{Kind: KindWord, Text: text}
}

func WildCard() Selector {
	return Selector{Kind: KindWildCard}
}

func WildCardDepth() Selector {
	return Selector{Kind: KindWildCardDepth}
}

func Not(child Selector) Selector {
	return Selector{Kind: KindNot, Children: []Selector{child}}
}

func Concat(children ...Selector) Selector {
	return Selector{Kind: KindConcat, Children: children}
}

func Route(children ...Selector) Selector {
	return Selector{Kind: KindRoute, Children: children}
}

func Option(children ...Selector) Selector {
	return Selector{Kind: KindOption, Children: children}
}

// Child returns the negated selector of a Not node.
func (selector Selector) Child() (Selector, bool) {
	if selector.Kind != KindNot || len(selector.Children) != 1 {
		return Selector{}, false
	}
	return selector.Children[0], true
}

// String renders pattern text that parses back into the same tree.
func (selector Selector) String() string {
	builder := strings.Builder{}
	selector.write(&builder, true)
	return builder.String()
}

func (selector Selector) write(builder *strings.Builder, top bool) {
	switch selector.Kind {
	case KindWord:
		builder.WriteString(selector.Text)
	case KindWildCard:
		builder.WriteString("*")
	case KindWildCardDepth:
		builder.WriteString("**")
	case KindNot:
		builder.WriteString("!")
		if child, ok := selector.Child(); ok {
			if child.Kind == KindNot {
				child.writeGroup(builder)
				return
			}
			child.writeAtom(builder)
		}
	case KindConcat:
		previous := Kind(-1)
		for _, child := range selector.Children {
			if mergesWith(previous, child.Kind) {
				child.writeGroup(builder)
				previous = KindOption
				continue
			}
			child.writeAtom(builder)
			previous = child.trailingKind()
		}
	case KindRoute:
		for index, child := range selector.Children {
			if index > 0 {
				builder.WriteString("/")
			}
			if child.Kind == KindRoute || child.Kind == KindOption {
				child.writeGroup(builder)
				continue
			}
			child.write(builder, false)
		}
	case KindOption:
		if !top {
			selector.writeGroup(builder)
			return
		}
		for index, child := range selector.Children {
			if index > 0 {
				builder.WriteString(",")
			}
			if child.Kind == KindOption {
				child.writeGroup(builder)
				continue
			}
			child.write(builder, false)
		}
	}
}

// trailingKind reports which atom kind ends the rendered form of selector.
// Groups report KindOption since they end with a closing brace.
func (selector Selector) trailingKind() Kind {
	switch selector.Kind {
	case KindWord, KindWildCard, KindWildCardDepth:
		return selector.Kind
	case KindNot:
		if child, ok := selector.Child(); ok && child.Kind != KindNot {
			return child.trailingKind()
		}
	}
	return KindOption
}

// mergesWith reports whether writing next right after previous would lex
// into a different token sequence.
func mergesWith(previous, next Kind) bool {
	switch previous {
	case KindWord:
		return next == KindWord
	case KindWildCard:
		return next == KindWildCard || next == KindWildCardDepth
	default:
		return false
	}
}

// writeAtom writes a selector in a position where only an atom is allowed.
func (selector Selector) writeAtom(builder *strings.Builder) {
	switch selector.Kind {
	case KindConcat, KindRoute, KindOption:
		selector.writeGroup(builder)
	default:
		selector.write(builder, false)
	}
}

func (selector Selector) writeGroup(builder *strings.Builder) {
	builder.WriteString("{")
	switch selector.Kind {
	case KindOption:
		selector.write(builder, true)
	default:
		selector.write(builder, false)
	}
	builder.WriteString("}")
}
