// Package taxonomy holds the static category, subcategory, and alternate
// subcategory tree the query compiler resolves tokens against.
package taxonomy

import "sort"

// Category describes a top-level quiz-bowl category and the subcategories
// and alternate subcategories that fall under it.
type Category struct {
	Subcategories          []string
	AlternateSubcategories []string
}

// Categories maps a main category name to its subcategory tree, the Go
// analogue of a static lookup table: no alternate subcategory appears
// without a corresponding "Other <Category>" subcategory entry to file it
// under.
var Categories = map[string]Category{
	"Literature": {
		Subcategories: []string{
			"American Literature", "British Literature", "Classical Literature",
			"European Literature", "World Literature", "Other Literature",
		},
		AlternateSubcategories: []string{
			"Drama", "Long Fiction", "Poetry", "Short Fiction", "Misc Literature",
		},
	},
	"History": {
		Subcategories: []string{
			"American History", "Ancient History", "European History",
			"World History", "Other History",
		},
	},
	"Science": {
		Subcategories: []string{
			"Biology", "Chemistry", "Physics", "Other Science",
		},
		AlternateSubcategories: []string{
			"Math", "Astronomy", "Computer Science", "Earth Science", "Engineering", "Misc Science",
		},
	},
	"Fine Arts": {
		Subcategories: []string{
			"Visual Fine Arts", "Auditory Fine Arts", "Other Fine Arts",
		},
		AlternateSubcategories: []string{
			"Architecture", "Dance", "Film", "Jazz", "Musicals", "Opera", "Photography", "Misc Arts",
		},
	},
	"Religion":   {},
	"Mythology":  {},
	"Philosophy": {},
	"Social Science": {
		Subcategories: []string{
			"Other Social Science",
		},
		AlternateSubcategories: []string{
			"Anthropology", "Economics", "Linguistics", "Psychology", "Sociology",
		},
	},
	"Current Events": {},
	"Geography":      {},
	"Other Academic":  {},
	"Pop Culture": {
		Subcategories: []string{
			"Movies", "Music", "Sports", "Television", "Video Games", "Other Pop Culture",
		},
	},
}

// Names returns the main category names, for commands that list the
// taxonomy back to a user.
func Names() []string {
	names := make([]string, 0, len(Categories))
	for name := range Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
