package repository

import (
	"fmt"
	"strings"

	"github.com/sakif/omi/internal/apperror"
)

// Sort is a validated ORDER BY clause. Column always comes from an
// allow-list, so it is safe to place in SQL text.
type Sort struct {
	Column string
	Desc   bool
}

// Clause renders the ORDER BY expression, e.g. "created_date DESC".
func (s Sort) Clause() string {
	if s.Desc {
		return s.Column + " DESC"
	}
	return s.Column + " ASC"
}

// Sortable columns per table.
var (
	ThoughtSortColumns = []string{"created_date", "updated_at", "priority", "category", "status", "mood_score"}
	GoalSortColumns    = []string{"created_date", "updated_at", "title", "status"}
)

// DefaultSort is newest first.
var DefaultSort = Sort{Column: "created_date", Desc: true}

// ParseSort turns a client-supplied orderBy value into a Sort.
//
// Accepted forms: "col", "-col" (descending), "col ASC", "col DESC".
// An empty value yields def. Anything naming a column outside allowed, or
// carrying extra tokens, is a validation error.
func ParseSort(raw string, allowed []string, def Sort) (Sort, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}

	var s Sort
	fields := strings.Fields(raw)
	switch len(fields) {
	case 1:
		col := fields[0]
		if strings.HasPrefix(col, "-") {
			col = col[1:]
			s.Desc = true
		}
		s.Column = col
	case 2:
		s.Column = fields[0]
		switch strings.ToUpper(fields[1]) {
		case "ASC":
		case "DESC":
			s.Desc = true
		default:
			return Sort{}, apperror.ValidationFailed("orderBy",
				fmt.Sprintf("invalid sort direction %q", fields[1]))
		}
	default:
		return Sort{}, apperror.ValidationFailed("orderBy", "invalid orderBy value")
	}

	for _, col := range allowed {
		if col == s.Column {
			return s, nil
		}
	}

	return Sort{}, apperror.ValidationFailed("orderBy",
		fmt.Sprintf("cannot sort by %q; allowed: %s", s.Column, strings.Join(allowed, ", ")))
}
