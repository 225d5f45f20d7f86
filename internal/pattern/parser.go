package pattern

import "errors"

// level holds the accumulators of one brace nesting depth.
type level struct {
	option     []Selector
	route      []Selector
	concat     []Selector
	negateNext bool
}

func (current *level) negate() {
	current.negateNext = true
}

func (current *level) pushAtom(atom Selector) {
	if current.negateNext {
		current.negateNext = false
		atom = Not(atom)
	}
	current.concat = append(current.concat, atom)
}

// moveInto drains from into a single destination element. It reports false
// when from is empty and force is set.
func moveInto(from, into *[]Selector, force bool, compose func([]Selector) Selector) bool {
	switch len(*from) {
	case 0:
		return !force
	case 1:
		*into = append(*into, (*from)[0])
	default:
		*into = append(*into, compose(*from))
	}
	*from = nil
	return true
}

func (current *level) flushConcat(force bool) error {
	if current.negateNext {
		return ErrUnusedNegation
	}
	if ok := moveInto(&current.concat, &current.route, force, func(children []Selector) Selector {
		return Concat(children...)
	}); !ok {
		return ErrNothingBeforeSlash
	}
	return nil
}

func (current *level) flushRoute(force bool) error {
	if err := current.flushConcat(false); err != nil {
		return err
	}
	if ok := moveInto(&current.route, &current.option, force, func(children []Selector) Selector {
		return Route(children...)
	}); !ok {
		return ErrNothingBeforeComma
	}
	return nil
}

func (current *level) collect() (Selector, error) {
	if err := current.flushRoute(false); err != nil {
		return Selector{}, err
	}
	switch len(current.option) {
	case 0:
		return Selector{}, ErrEmptyGroup
	case 1:
		return current.option[0], nil
	default:
		return Option(current.option...), nil
	}
}

type parser struct {
	stack   []*level
	current *level
}

func newParser() *parser {
	return &parser{current: &level{}}
}

func (p *parser) open() {
	p.stack = append(p.stack, p.current)
	p.current = &level{}
}

func (p *parser) close() error {
	if len(p.stack) == 0 {
		return ErrNoOpenedGroup
	}
	group, err := p.current.collect()
	if err != nil {
		return err
	}
	top := p.stack[len(p.stack)-1]
	p.stack = p.stack[:len(p.stack)-1]
	top.pushAtom(group)
	p.current = top
	return nil
}

func (p *parser) append(token Token) error {
	switch token.Kind {
	case TokenWildCard:
		p.current.pushAtom(WildCard())
	case TokenWildCardDepth:
		p.current.pushAtom(WildCardDepth())
	case TokenWord:
		p.current.pushAtom(Word(token.Text))
	case TokenNot:
		p.current.negate()
	case TokenOpen:
		p.open()
	case TokenClose:
		return p.close()
	case TokenComma:
		return p.current.flushRoute(true)
	case TokenSlash:
		return p.current.flushConcat(true)
	}
	return nil
}

func (p *parser) finish() (Selector, error) {
	if len(p.stack) > 0 {
		return Selector{}, ErrUnclosedGroup
	}
	return p.current.collect()
}

// Parse turns pattern text into a Selector tree.
func Parse(pattern string) (Selector, error) {
	tokens, err := Tokenize(pattern)
	if err != nil {
		return Selector{}, err
	}
	selector, err := ParseTokens(tokens)
	if err != nil {
		var syntaxErr *SyntaxError
		if errors.As(err, &syntaxErr) {
			syntaxErr.Pattern = pattern
			if syntaxErr.Offset < 0 {
				syntaxErr.Offset = len(pattern)
			}
		}
		return Selector{}, err
	}
	return selector, nil
}

// ParseTokens builds a Selector from an already tokenized pattern. Errors
// raised at the end of the stream carry an offset of -1.
func ParseTokens(tokens []Token) (Selector, error) {
	if len(tokens) == 0 {
		return Selector{}, &SyntaxError{Err: ErrEmptyPattern}
	}
	p := newParser()
	for _, token := range tokens {
		if err := p.append(token); err != nil {
			return Selector{}, &SyntaxError{Offset: token.Offset, Err: err}
		}
	}
	selector, err := p.finish()
	if err != nil {
		return Selector{}, &SyntaxError{Offset: -1, Err: err}
	}
	return selector, nil
}
