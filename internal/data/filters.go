package data

import (
	"strings"

	"github.com/hafizmfadli/go-catalog/internal/validator"
)

// Filters holds the list/search query parameters.
type Filters struct {
	Search string
}

// likeEscaper escapes the LIKE metacharacters so search text always matches
// literally. Backslash is the escape character named in the query.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// searchPattern returns the lower-cased, escaped LIKE pattern matching
// Search anywhere in a name key. Whitespace is part of the term.
func (f Filters) searchPattern() string {
	return "%" + likeEscaper.Replace(nameKey(f.Search)) + "%"
}

// Filtered reports whether a search term was supplied.
func (f Filters) Filtered() bool {
	return f.Search != ""
}

// ValidateFilters checks the query parameters.
func ValidateFilters(v *validator.Validator, f Filters) {
	v.Check(validator.MaxBytes(f.Search, 200), "search", "must not be more than 200 bytes long")
}
