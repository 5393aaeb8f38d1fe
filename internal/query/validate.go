package query

import (
	"sort"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"

	"github.com/quizbowl/qbbot/internal/taxonomy"
)

// fuzzyThreshold matches the original query compiler: a raw edit distance
// strictly below this counts as a match.
const fuzzyThreshold = 3

// Selection is a resolved query, ready to hand to the question source as
// repeated category/subcategory/alternateSubcategory query parameters.
type Selection struct {
	Categories             []string
	Subcategories          []string
	AlternateSubcategories []string
}

func distance(a, b string) int {
	return levenshtein.DistanceForStrings([]rune(strings.ToLower(a)), []rune(strings.ToLower(b)), levenshtein.DefaultOptions)
}

// matchAgainst returns the single candidate within fuzzyThreshold of token,
// or "" if zero or more than one candidate is close enough to be ambiguous.
func matchAgainst(token string, candidates []string) (string, bool) {
	type scored struct {
		name string
		dist int
	}
	var close []scored
	for _, c := range candidates {
		d := distance(token, c)
		if d < fuzzyThreshold {
			close = append(close, scored{c, d})
		}
	}
	if len(close) == 1 {
		return close[0].name, true
	}
	return "", false
}

// validate walks the expression tree bottom-up, resolving category tokens
// against the taxonomy and combining the results per operator.
func validate(expr *Expr) (Selection, error) {
	switch expr.kind {
	case tokenExpr:
		return validateToken(expr.token)
	case andExpr:
		return validateAnd(expr)
	case orExpr:
		return validateOr(expr)
	case notExpr:
		return validateNot(expr)
	default:
		return Selection{}, &InvalidCategoryError{Token: expr.token}
	}
}

func validateToken(token string) (Selection, error) {
	names := taxonomy.Names()
	for _, name := range names {
		cat := taxonomy.Categories[name]
		if distance(token, name) < fuzzyThreshold {
			return Selection{
				Categories:             []string{name},
				Subcategories:          append([]string(nil), cat.Subcategories...),
				AlternateSubcategories: append([]string(nil), cat.AlternateSubcategories...),
			}, nil
		}
		if result, ok := matchAgainst(token, cat.Subcategories); ok {
			return Selection{Categories: []string{name}, Subcategories: []string{result}}, nil
		}
		if result, ok := matchAgainst(token, cat.AlternateSubcategories); ok {
			return Selection{
				Categories:             []string{name},
				Subcategories:          []string{"Other " + name},
				AlternateSubcategories: []string{result},
			}, nil
		}
	}
	return Selection{}, &InvalidCategoryError{Token: token}
}

func validateAnd(expr *Expr) (Selection, error) {
	a, err := validate(expr.left)
	if err != nil {
		return Selection{}, err
	}
	b, err := validate(expr.right)
	if err != nil {
		return Selection{}, err
	}

	common := intersect(a.Categories, b.Categories)
	if len(common) == 0 {
		return Selection{}, &ImpossibleBranchError{Expr: expr.String()}
	}

	leftSpecific := len(a.Subcategories) > 0 || len(a.AlternateSubcategories) > 0
	rightSpecific := len(b.Subcategories) > 0 || len(b.AlternateSubcategories) > 0

	var subs, alts []string
	switch {
	case !leftSpecific && rightSpecific:
		subs, alts = b.Subcategories, b.AlternateSubcategories
	case leftSpecific && !rightSpecific:
		subs, alts = a.Subcategories, a.AlternateSubcategories
	case leftSpecific && rightSpecific:
		subs = dedupSorted(append(append([]string{}, a.Subcategories...), b.Subcategories...))
		alts = dedupSorted(append(append([]string{}, a.AlternateSubcategories...), b.AlternateSubcategories...))
	}

	return Selection{Categories: common, Subcategories: subs, AlternateSubcategories: alts}, nil
}

func validateOr(expr *Expr) (Selection, error) {
	a, err := validate(expr.left)
	if err != nil {
		return Selection{}, err
	}
	b, err := validate(expr.right)
	if err != nil {
		return Selection{}, err
	}

	return Selection{
		Categories:             dedupSorted(append(append([]string{}, a.Categories...), b.Categories...)),
		Subcategories:          dedupSorted(append(append([]string{}, a.Subcategories...), b.Subcategories...)),
		AlternateSubcategories: dedupSorted(append(append([]string{}, a.AlternateSubcategories...), b.AlternateSubcategories...)),
	}, nil
}

func validateNot(expr *Expr) (Selection, error) {
	a, err := validate(expr.left)
	if err != nil {
		return Selection{}, err
	}
	b, err := validate(expr.right)
	if err != nil {
		return Selection{}, err
	}

	result := a
	common := intersect(a.Categories, b.Categories)
	if len(common) > 0 {
		result.Subcategories = subtract(a.Subcategories, b.Subcategories)
		result.AlternateSubcategories = subtract(a.AlternateSubcategories, b.AlternateSubcategories)
		result.Categories = common
	} else {
		result.Categories = subtract(a.Categories, b.Categories)
		if len(result.Categories) == 0 {
			return Selection{}, &ImpossibleBranchError{Expr: expr.String()}
		}
	}

	if len(result.Categories) == 0 && len(result.Subcategories) == 0 && len(result.AlternateSubcategories) == 0 {
		return Selection{}, &ImpossibleBranchError{Expr: expr.String()}
	}
	return result, nil
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, x := range b {
		set[x] = struct{}{}
	}
	var out []string
	for _, x := range a {
		if _, ok := set[x]; ok {
			out = append(out, x)
		}
	}
	return out
}

func subtract(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, x := range b {
		set[x] = struct{}{}
	}
	var out []string
	for _, x := range a {
		if _, ok := set[x]; !ok {
			out = append(out, x)
		}
	}
	return out
}

func dedupSorted(a []string) []string {
	sort.Strings(a)
	out := a[:0]
	var last string
	seen := false
	for _, x := range a {
		if seen && x == last {
			continue
		}
		out = append(out, x)
		last = x
		seen = true
	}
	return out
}
