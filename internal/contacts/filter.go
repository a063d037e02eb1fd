package contacts

import (
	"strings"

	"gorm.io/gorm"
)

// Filter narrows List results. Each non-empty field is a case-insensitive
// substring match; fields combine with AND.
type Filter struct {
	Name     string
	Email    string
	Timezone string
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (f Filter) apply(query *gorm.DB) *gorm.DB {
	clauses := []struct {
		column string
		value  string
	}{
		{"name", f.Name},
		{"email", f.Email},
		{"timezone", f.Timezone},
	}

	for _, c := range clauses {
		if c.value == "" {
			continue
		}
		query = query.Where("LOWER("+c.column+") LIKE LOWER(?) ESCAPE '\\'", containsPattern(c.value))
	}
	return query
}

// containsPattern keeps the value's case; the database lowers both sides so
// column and pattern fold the same way.
func containsPattern(value string) string {
	return "%" + likeEscaper.Replace(value) + "%"
}
