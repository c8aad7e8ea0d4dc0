package field

import (
	"encoding/json"
	"fmt"

	"github.com/arllen133/ormx/clause"
	jsonpkg "github.com/arllen133/ormx/field/json"
)

// JSON is a handle for json_array and json_object columns.
// T is the Go shape stored in the column; Decode reads it back. Comparisons
// go through Path since whole documents are not compared by value.
type JSON[T any] struct {
	h handle[T]
}

var _ clause.Columnar = JSON[any]{}

// NewJSON returns a handle for a column path such as "settings" or "Parent.settings".
func NewJSON[T any](path string) JSON[T] {
	return JSON[T]{handle[T]{clause.Col(path)}}
}

func (j JSON[T]) Column() clause.Column { return j.h.column }

func (j JSON[T]) ColumnName() string { return j.h.ColumnName() }

func (j JSON[T]) WithColumn(name string) JSON[T] { return JSON[T]{handle[T]{j.h.named(name)}} }

// WithTable returns a copy qualified by a table alias or relation path.
func (j JSON[T]) WithTable(path string) JSON[T] { return JSON[T]{handle[T]{j.h.through(path)}} }

func (j JSON[T]) IsNull() clause.Expression { return j.h.IsNull() }

func (j JSON[T]) IsNotNull() clause.Expression { return j.h.IsNotNull() }

// Set writes value to the column on r; the record encodes it as JSON text.
func (j JSON[T]) Set(r Setter, value T) error { return j.h.Set(r, value) }

// Decode reads the column from r and decodes the stored JSON text into T.
// ok is false when the column is NULL.
func (j JSON[T]) Decode(r Getter) (value T, ok bool, err error) {
	raw, err := r.Get(j.h.column.ColumnName())
	if err != nil || raw == nil {
		return value, false, err
	}
	var text []byte
	switch v := raw.(type) {
	case string:
		text = []byte(v)
	case []byte:
		text = v
	default:
		return value, false, fmt.Errorf("%w: %s holds %T, not JSON text", ErrConversion, j.h.column.ColumnName(), raw)
	}
	if err := json.Unmarshal(text, &value); err != nil {
		return value, false, fmt.Errorf("%w: %s: %w", ErrConversion, j.h.column.ColumnName(), err)
	}
	return value, true, nil
}

// Path returns a path inside the column. Bind it to a dialect with With or For:
//
//	settings.Path("$.theme").With(json.MySQL).Eq("dark")
//	settings.Path("theme").For(ormx.PostgreSQL).Eq("dark")
func (j JSON[T]) Path(path string) jsonpkg.JSONPath {
	return jsonpkg.JSONPath{Column: j.h.column, Path: path}
}

// PathEq creates an equality expression for this JSON path using the default dialect.
// For explicit dialect control, use Path("...").With(dialect).Eq(value).
func (j JSON[T]) PathEq(path string, value any) clause.Expression {
	return j.Path(path).Eq(value)
}

// withColumn renders a dialect update expression with the column as its first var.
func (j JSON[T]) withColumn(expr clause.Expr) clause.Expr {
	return clause.Expr{SQL: expr.SQL, Vars: append([]any{j.h.column}, expr.Vars...)}
}

// SetPath returns an expression usable as a record value that sets a JSON path.
func (j JSON[T]) SetPath(dialect jsonpkg.JSONDialect, path string, value any) clause.Expr {
	return j.withColumn(dialect.SetPath("?", path, value))
}

// RemovePath returns an expression usable as a record value that removes a JSON path.
func (j JSON[T]) RemovePath(dialect jsonpkg.JSONDialect, path string) clause.Expr {
	return j.withColumn(dialect.RemovePath("?", path))
}

// MergePatch returns an expression usable as a record value that merges value
// into the stored document (RFC 7396).
func (j JSON[T]) MergePatch(dialect jsonpkg.JSONDialect, value any) clause.Expr {
	return j.withColumn(dialect.MergePatch("?", value))
}
