package query

import "strings"

// ParseExpr parses a complete expression and errors if any tokens remain
// unconsumed afterward.
func ParseExpr(tokens []string) (*Expr, error) {
	stream := &tokenStream{tokens: tokens}
	expr, err := parseOr(stream)
	if err != nil {
		return nil, err
	}
	if !stream.empty() {
		return nil, &UnexpectedTokenError{Token: strings.Join(stream.tokens, " ")}
	}
	return expr, nil
}

// parseSubexpr parses a sub-expression without requiring every token to be
// consumed, used inside parentheses where tokens remain after the ")".
func parseSubexpr(s *tokenStream) (*Expr, error) {
	return parseOr(s)
}

// parseOr handles left-associative "+" at the lowest precedence.
func parseOr(s *tokenStream) (*Expr, error) {
	node, err := parseAnd(s)
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := s.front()
		if !ok || tok != "+" {
			break
		}
		s.popFront()
		rhs, err := parseAnd(s)
		if err != nil {
			return nil, err
		}
		node = newOr(node, rhs)
	}
	return node, nil
}

// parseAnd handles left-associative "&" at medium precedence.
func parseAnd(s *tokenStream) (*Expr, error) {
	node, err := parseNot(s)
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := s.front()
		if !ok || tok != "&" {
			break
		}
		s.popFront()
		rhs, err := parseNot(s)
		if err != nil {
			return nil, err
		}
		node = newAnd(node, rhs)
	}
	return node, nil
}

// parseNot handles left-associative "-" at the highest precedence after
// parentheses.
func parseNot(s *tokenStream) (*Expr, error) {
	node, err := parsePrimary(s)
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := s.front()
		if !ok || tok != "-" {
			break
		}
		s.popFront()
		rhs, err := parsePrimary(s)
		if err != nil {
			return nil, err
		}
		node = newNot(node, rhs)
	}
	return node, nil
}

// parsePrimary handles category tokens (joining consecutive words into a
// single multi-word token) and parenthesized sub-expressions.
func parsePrimary(s *tokenStream) (*Expr, error) {
	tok, ok := s.popFront()
	if !ok {
		return nil, &UnexpectedEOFError{}
	}

	switch tok {
	case "(":
		expr, err := parseSubexpr(s)
		if err != nil {
			return nil, err
		}
		next, ok := s.front()
		if !ok {
			return nil, &UnexpectedEOFError{}
		}
		if next != ")" {
			return nil, &UnexpectedTokenError{Token: next}
		}
		s.popFront()
		return expr, nil
	case "&", "+", "-", ")":
		return nil, &UnexpectedTokenError{Token: tok}
	default:
		words := []string{tok}
	wordLoop:
		for {
			next, ok := s.front()
			if !ok {
				break
			}
			switch next {
			case "&", "+", "-", "(", ")":
				break wordLoop
			default:
				s.popFront()
				words = append(words, next)
			}
		}
		return newToken(strings.Join(words, " ")), nil
	}
}

// ParseQuery tokenizes, parses, and validates a query string, returning the
// resolved Selection ready for the question source adapter.
func ParseQuery(queryStr string) (Selection, error) {
	tokens := Tokenize(queryStr)
	expr, err := ParseExpr(tokens)
	if err != nil {
		return Selection{}, err
	}
	return validate(expr)
}
