package route

import (
	"errors"
	"fmt"

	"reburn/internal/pattern"
)

var (
	ErrEmptyGroup       = errors.New("empty group")
	ErrConcatDepth      = errors.New("trying to concat with **")
	ErrEmptyConcat      = errors.New("empty concat")
	ErrNegateAny        = errors.New("can not negate any")
	ErrNegateNonLiteral = errors.New("only literals can be negated")
)

// ReduceError names the selector whose expansion failed.
type ReduceError struct {
	Selector pattern.Selector
	Err      error
}

func (err *ReduceError) Error() string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("expand %s %q: %v", err.Selector.Kind, err.Selector.String(), err.Err)
}

func (err *ReduceError) Unwrap() error {
	if err == nil {
		return nil
	}
	return err.Err
}

// Compile parses a pattern and expands it into routes.
func Compile(text string) ([]Route, error) {
	selector, err := pattern.Parse(text)
	if err != nil {
		return nil, err
	}
	return Expand(selector)
}

// Expand returns every route a selector denotes. Alternation is a union,
// path sequences and same-segment concatenation are cross products.
func Expand(selector pattern.Selector) ([]Route, error) {
	switch selector.Kind {
	case pattern.KindWord:
		return []Route{{Name(Literal(selector.Text))}}, nil
	case pattern.KindWildCard:
		return []Route{{Name(Any())}}, nil
	case pattern.KindWildCardDepth:
		return []Route{{AnySubRoute()}}, nil
	case pattern.KindOption:
		expanded, err := expandChildren(selector)
		if err != nil {
			return nil, err
		}
		routes := make([]Route, 0, len(expanded))
		for _, set := range expanded {
			routes = append(routes, set...)
		}
		return routes, nil
	case pattern.KindRoute:
		expanded, err := expandChildren(selector)
		if err != nil {
			return nil, err
		}
		return fold(selector, expanded, join)
	case pattern.KindConcat:
		expanded, err := expandChildren(selector)
		if err != nil {
			return nil, err
		}
		return fold(selector, expanded, merge)
	case pattern.KindNot:
		child, ok := selector.Child()
		if !ok {
			return nil, &ReduceError{Selector: selector, Err: ErrNegateNonLiteral}
		}
		routes, err := Expand(child)
		if err != nil {
			return nil, err
		}
		negated := make([]Route, 0, len(routes))
		for _, route := range routes {
			flipped, err := negate(route)
			if err != nil {
				return nil, &ReduceError{Selector: selector, Err: err}
			}
			negated = append(negated, flipped)
		}
		return negated, nil
	default:
		return nil, &ReduceError{Selector: selector, Err: fmt.Errorf("unknown selector kind %d", int(selector.Kind))}
	}
}

func expandChildren(selector pattern.Selector) ([][]Route, error) {
	if len(selector.Children) == 0 {
		return nil, &ReduceError{Selector: selector, Err: ErrEmptyGroup}
	}
	expanded := make([][]Route, 0, len(selector.Children))
	for _, child := range selector.Children {
		routes, err := Expand(child)
		if err != nil {
			return nil, err
		}
		expanded = append(expanded, routes)
	}
	return expanded, nil
}

// fold combines the expansion sets left to right, pairing every route of
// the accumulated set with every route of the next one.
func fold(selector pattern.Selector, sets [][]Route, combine func(Route, Route) (Route, error)) ([]Route, error) {
	for _, set := range sets {
		if len(set) == 0 {
			return nil, &ReduceError{Selector: selector, Err: ErrEmptyGroup}
		}
	}
	accumulated := sets[0]
	for _, next := range sets[1:] {
		product := make([]Route, 0, len(accumulated)*len(next))
		for _, left := range accumulated {
			for _, right := range next {
				combined, err := combine(left, right)
				if err != nil {
					return nil, &ReduceError{Selector: selector, Err: err}
				}
				product = append(product, combined)
			}
		}
		accumulated = product
	}
	return accumulated, nil
}

func join(left, right Route) (Route, error) {
	combined := make(Route, 0, len(left)+len(right))
	combined = append(combined, left...)
	combined = append(combined, right...)
	return combined, nil
}

// merge glues the last segment of left and the first segment of right into
// one segment.
func merge(left, right Route) (Route, error) {
	if (len(left) > 0 && left[len(left)-1].Kind == ItemAnySubRoute) ||
		(len(right) > 0 && right[0].Kind == ItemAnySubRoute) {
		return nil, ErrConcatDepth
	}
	if len(left) == 0 || len(right) == 0 {
		return nil, ErrEmptyConcat
	}

	last := left[len(left)-1]
	first := right[0]
	matches := make([]NameMatch, 0, len(last.Name)+len(first.Name))
	matches = append(matches, last.Name...)
	matches = append(matches, first.Name...)

	combined := make(Route, 0, len(left)+len(right)-1)
	combined = append(combined, left[:len(left)-1]...)
	combined = append(combined, Name(matches...))
	combined = append(combined, right[1:]...)
	return combined, nil
}

func negate(route Route) (Route, error) {
	if len(route) != 1 || route[0].Kind != ItemName || len(route[0].Name) != 1 {
		return nil, ErrNegateNonLiteral
	}
	flipped, err := route[0].Name[0].Negate()
	if err != nil {
		return nil, err
	}
	return Route{Name(flipped)}, nil
}
