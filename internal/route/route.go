package route

import "strings"

type MatchKind int

const (
	MatchLiteral MatchKind = iota
	MatchNegatedLiteral
	MatchAny
)

// NameMatch is one fragment of a single path segment matcher.
type NameMatch struct {
	Kind MatchKind
	Text string
}

func Literal(text string) NameMatch {
	return NameMatch{Kind: MatchLiteral, Text: text}
}

func NegatedLiteral(text string) NameMatch {
	return NameMatch{Kind: MatchNegatedLiteral, Text: text}
}

func Any() NameMatch {
	return NameMatch{Kind: MatchAny}
}

// Negate flips a literal. Wildcards cannot be negated.
func (match NameMatch) Negate() (NameMatch, error) {
	switch match.Kind {
	case MatchLiteral:
		return NegatedLiteral(match.Text), nil
	case MatchNegatedLiteral:
		return Literal(match.Text), nil
	default:
		return NameMatch{}, ErrNegateAny
	}
}

func (match NameMatch) String() string {
	switch match.Kind {
	case MatchLiteral:
		return match.Text
	case MatchNegatedLiteral:
		return "!" + match.Text
	default:
		return "*"
	}
}

type ItemKind int

const (
	ItemName ItemKind = iota
	ItemAnySubRoute
)

// Item is one step of a Route: either a matcher for a single path segment
// or a wildcard spanning any number of segments.
type Item struct {
	Kind ItemKind
	Name []NameMatch
}

func Name(matches ...NameMatch) Item {
	return Item{Kind: ItemName, Name: matches}
}

func AnySubRoute() Item {
	return Item{Kind: ItemAnySubRoute}
}

// Omittable reports whether the item may consume no segment at all.
func (item Item) Omittable() bool {
	return item.Kind == ItemAnySubRoute
}

// IsLiteral reports whether the item is a plain segment equal to text.
func (item Item) IsLiteral(text string) bool {
	return item.Kind == ItemName &&
		len(item.Name) == 1 &&
		item.Name[0].Kind == MatchLiteral &&
		item.Name[0].Text == text
}

// Matches reports whether a single file name satisfies the item. Depth
// wildcards match anything; the walker resolves them structurally.
func (item Item) Matches(segment string) bool {
	if item.Kind == ItemAnySubRoute {
		return true
	}

	remain := segment
	free := false
	var blacklist []string
	for _, match := range item.Name {
		switch match.Kind {
		case MatchNegatedLiteral:
			blacklist = append(blacklist, match.Text)
		case MatchAny:
			free = true
		case MatchLiteral:
			index := strings.Index(remain, match.Text)
			if index < 0 {
				return false
			}
			if index > 0 && !(free && allowed(blacklist, remain, free)) {
				return false
			}
			remain = remain[index+len(match.Text):]
			blacklist = nil
			free = false
		}
	}
	if remain == "" {
		return true
	}
	return free && allowed(blacklist, remain, free)
}

// allowed runs the exclusion check: a blacklisted literal blocks the match
// when it starts remain, or appears anywhere in it after a wildcard.
func allowed(blacklist []string, remain string, free bool) bool {
	for _, excluded := range blacklist {
		index := strings.Index(remain, excluded)
		if index == 0 || (index > 0 && free) {
			return false
		}
	}
	return true
}

func (item Item) String() string {
	if item.Kind == ItemAnySubRoute {
		return "**"
	}
	builder := strings.Builder{}
	for _, match := range item.Name {
		builder.WriteString(match.String())
	}
	return builder.String()
}

// Route is one concrete sequence of segment matchers.
type Route []Item

func (route Route) String() string {
	parts := make([]string, 0, len(route))
	for _, item := range route {
		parts = append(parts, item.String())
	}
	return strings.Join(parts, "/")
}
