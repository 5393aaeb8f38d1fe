package query

import "fmt"

// UnexpectedTokenError is returned when the parser sees a token it cannot
// use in its current position, such as an operator where a category name
// or closing parenthesis was expected.
type UnexpectedTokenError struct {
	Token string
}

func (e *UnexpectedTokenError) Error() string {
	return fmt.Sprintf("unexpected token %q", e.Token)
}

// UnexpectedEOFError is returned when the input ends before the expression
// is complete, such as an unclosed parenthesis.
type UnexpectedEOFError struct{}

func (e *UnexpectedEOFError) Error() string {
	return "unexpected end of query"
}

// InvalidCategoryError is returned when a token does not fuzzy-match any
// known category, subcategory, or alternate subcategory.
type InvalidCategoryError struct {
	Token string
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("unknown category %q", e.Token)
}

// ImpossibleBranchError is returned when a query's constraints can never be
// satisfied, such as intersecting two disjoint categories.
type ImpossibleBranchError struct {
	Expr string
}

func (e *ImpossibleBranchError) Error() string {
	return fmt.Sprintf("impossible query: %s", e.Expr)
}
