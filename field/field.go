// Package field provides typed column handles. A handle names a column of the
// main table, or of a joined table through a relation path, and builds clause
// expressions that a Select resolves against its table structure:
//
//	email := field.NewString("email")
//	parentEmail := field.NewString("Parent.email")
//	sel.Where(email.Like("%@example.com"), parentEmail.IsNotNull())
//
// Handles also read and write typed values on records (see Getter and Setter).
package field

import (
	"errors"
	"fmt"

	"github.com/arllen133/ormx/clause"
)

// ErrConversion is returned when a stored value cannot be read as the handle's type.
var ErrConversion = errors.New("field: value conversion failed")

// Getter reads a column value by name. *ormx.Record implements it.
type Getter interface {
	Get(name string) (any, error)
}

// Setter writes a column value by name. *ormx.Record implements it.
type Setter interface {
	Set(name string, value any) error
}

// handle is shared by all typed fields.
type handle[T any] struct {
	column clause.Column
}

// Column returns the underlying column.
func (h handle[T]) Column() clause.Column { return h.column }

// ColumnName implements clause.Columnar.
func (h handle[T]) ColumnName() string { return h.column.ColumnName() }

func (h handle[T]) named(name string) clause.Column {
	c := h.column
	c.Name = name
	return c
}

func (h handle[T]) through(path string) clause.Column {
	c := h.column
	c.Table = path
	return c
}

// Eq creates field = value.
func (h handle[T]) Eq(value T) clause.Expression {
	return clause.Eq{Column: h.column, Value: value}
}

// Neq creates field <> value.
func (h handle[T]) Neq(value T) clause.Expression {
	return clause.Neq{Column: h.column, Value: value}
}

// In creates field IN (values...).
func (h handle[T]) In(values ...T) clause.Expression {
	return clause.IN{Column: h.column, Values: anys(values)}
}

// NotIn creates NOT (field IN (values...)).
func (h handle[T]) NotIn(values ...T) clause.Expression {
	return clause.Not{Expr: clause.IN{Column: h.column, Values: anys(values)}}
}

func (h handle[T]) IsNull() clause.Expression {
	return clause.IsNull{Column: h.column}
}

func (h handle[T]) IsNotNull() clause.Expression {
	return clause.IsNotNull{Column: h.column}
}

// InExpr creates field IN (sub-query).
func (h handle[T]) InExpr(expr clause.Expression) clause.Expression {
	return clause.InExpr{Column: h.column, Expr: expr}
}

// NotInExpr creates field NOT IN (sub-query).
func (h handle[T]) NotInExpr(expr clause.Expression) clause.Expression {
	return clause.NotInExpr{Column: h.column, Expr: expr}
}

func (h handle[T]) Asc() clause.OrderByColumn {
	return clause.OrderByColumn{Column: h.column}
}

func (h handle[T]) Desc() clause.OrderByColumn {
	return clause.OrderByColumn{Column: h.column, Desc: true}
}

// Get reads the column from r and converts it to T. ok is false when the
// stored value is NULL. Relation paths are passed to r as is, so a record
// only answers for its own columns.
func (h handle[T]) Get(r Getter) (value T, ok bool, err error) {
	raw, err := r.Get(h.column.ColumnName())
	if err != nil || raw == nil {
		return value, false, err
	}
	value, err = convert[T](raw)
	if err != nil {
		return value, false, fmt.Errorf("%w: %s: %w", ErrConversion, h.column.ColumnName(), err)
	}
	return value, true, nil
}

// Set writes value to the column on r. The record normalizes and validates it.
func (h handle[T]) Set(r Setter, value T) error {
	return r.Set(h.column.ColumnName(), value)
}

// ordered adds range comparisons.
type ordered[T any] struct {
	handle[T]
}

// Gt creates field > value.
func (o ordered[T]) Gt(value T) clause.Expression {
	return clause.Gt{Column: o.column, Value: value}
}

// Gte creates field >= value.
func (o ordered[T]) Gte(value T) clause.Expression {
	return clause.Gte{Column: o.column, Value: value}
}

// Lt creates field < value.
func (o ordered[T]) Lt(value T) clause.Expression {
	return clause.Lt{Column: o.column, Value: value}
}

// Lte creates field <= value.
func (o ordered[T]) Lte(value T) clause.Expression {
	return clause.Lte{Column: o.column, Value: value}
}

// Between creates field BETWEEN low AND high.
func (o ordered[T]) Between(low, high T) clause.Expression {
	return clause.Between{Column: o.column, Min: low, Max: high}
}

// Field is an untyped handle for columns without a dedicated type.
type Field struct {
	handle[any]
}

var _ clause.Columnar = Field{}

// NewField returns a handle for a column path such as "note" or "Parent.note".
func NewField(path string) Field {
	return Field{handle[any]{clause.Col(path)}}
}

// WithColumn returns a copy naming another column.
func (f Field) WithColumn(name string) Field { return Field{handle[any]{f.named(name)}} }

// WithTable returns a copy qualified by a table alias or relation path.
func (f Field) WithTable(path string) Field { return Field{handle[any]{f.through(path)}} }

func anys[T any](values []T) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
