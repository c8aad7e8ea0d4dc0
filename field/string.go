package field

import "github.com/arllen133/ormx/clause"

// String is a handle for string, text, email, enum and password columns.
type String struct {
	ordered[string]
}

var _ clause.Columnar = String{}

// NewString returns a handle for a column path such as "email" or "Parent.email".
func NewString(path string) String {
	return String{ordered[string]{handle[string]{clause.Col(path)}}}
}

// WithColumn returns a copy naming another column.
func (s String) WithColumn(name string) String {
	return String{ordered[string]{handle[string]{s.named(name)}}}
}

// WithTable returns a copy qualified by a table alias or relation path.
func (s String) WithTable(path string) String {
	return String{ordered[string]{handle[string]{s.through(path)}}}
}

// Like creates field LIKE pattern.
func (s String) Like(pattern string) clause.Expression {
	return clause.Like{Column: s.column, Value: pattern}
}

// NotLike creates field NOT LIKE pattern.
func (s String) NotLike(pattern string) clause.Expression {
	return clause.NotLike{Column: s.column, Value: pattern}
}
