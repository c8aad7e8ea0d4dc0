// Package clause holds the SQL expression tree used by ormx conditions,
// ordering and join predicates.
//
// Expressions never embed identifiers directly: column paths such as
// "Parent.email" are resolved through a Builder supplied by the query being
// compiled, which validates the path, adds joins when allowed and quotes the
// result for the target dialect. Values are always bound with "?" placeholders.
package clause

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConditionValue reports a malformed condition value.
var ErrInvalidConditionValue = errors.New("ormx: invalid condition value")

// Builder resolves column paths and quotes identifiers while an expression is rendered.
type Builder interface {
	// Column resolves a column path ("id", "Parent.id", "Parent.Parent2.id")
	// and returns the quoted SQL reference.
	Column(path string) (string, error)

	// Quote quotes a single identifier.
	Quote(identifier string) string
}

// Columnar defines an interface for providing a column name.
type Columnar interface {
	ColumnName() string
}

// Column represents a database column with optional table or join path qualifier.
type Column struct {
	Table string
	Name  string
}

// Col builds a Column from a dotted path. The last segment is the column name.
//
//	clause.Col("Parent.id") // Column{Table: "Parent", Name: "id"}
func Col(path string) Column {
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		return Column{Table: path[:idx], Name: path[idx+1:]}
	}
	return Column{Name: path}
}

func (c Column) Column() Column { return c }

// ColumnName returns the full column path (with table prefix if specified)
func (c Column) ColumnName() string {
	if c.Table != "" {
		return c.Table + "." + c.Name
	}
	return c.Name
}

// Build renders the column as a resolved reference.
func (c Column) Build(b Builder) (string, []any, error) {
	ref, err := b.Column(c.ColumnName())
	return ref, nil, err
}

var (
	_ Columnar   = Column{}
	_ Expression = Column{}
)

// Expression is the base interface for all SQL expressions
type Expression interface {
	Build(b Builder) (sql string, args []any, err error)
}

// buildValue renders the right hand side of a comparison. Columns render as
// references, other expressions are parenthesized and plain values are bound.
func buildValue(b Builder, value any) (string, []any, error) {
	switch v := value.(type) {
	case Column:
		return v.Build(b)
	case Expression:
		sql, args, err := v.Build(b)
		if err != nil {
			return "", nil, err
		}
		return "(" + sql + ")", args, nil
	}
	return "?", []any{value}, nil
}

func buildComparison(b Builder, col Column, op string, value any) (string, []any, error) {
	ref, _, err := col.Build(b)
	if err != nil {
		return "", nil, err
	}
	rhs, args, err := buildValue(b, value)
	if err != nil {
		return "", nil, err
	}
	return ref + " " + op + " " + rhs, args, nil
}

// Eq represents an equality expression (column = value)
type Eq struct {
	Column Column
	Value  any
}

func (e Eq) Build(b Builder) (string, []any, error) {
	return buildComparison(b, e.Column, "=", e.Value)
}

// Neq represents a not equal expression (column != value)
type Neq struct {
	Column Column
	Value  any
}

func (n Neq) Build(b Builder) (string, []any, error) {
	return buildComparison(b, n.Column, "<>", n.Value)
}

// Gt represents a greater than expression (column > value)
type Gt struct {
	Column Column
	Value  any
}

func (g Gt) Build(b Builder) (string, []any, error) {
	return buildComparison(b, g.Column, ">", g.Value)
}

// Gte represents a greater than or equal expression (column >= value)
type Gte struct {
	Column Column
	Value  any
}

func (g Gte) Build(b Builder) (string, []any, error) {
	return buildComparison(b, g.Column, ">=", g.Value)
}

// Lt represents a less than expression (column < value)
type Lt struct {
	Column Column
	Value  any
}

func (l Lt) Build(b Builder) (string, []any, error) {
	return buildComparison(b, l.Column, "<", l.Value)
}

// Lte represents a less than or equal expression (column <= value)
type Lte struct {
	Column Column
	Value  any
}

func (l Lte) Build(b Builder) (string, []any, error) {
	return buildComparison(b, l.Column, "<=", l.Value)
}

// Like represents a LIKE expression
type Like struct {
	Column Column
	Value  string
}

func (l Like) Build(b Builder) (string, []any, error) {
	return buildComparison(b, l.Column, "LIKE", l.Value)
}

// NotLike represents a NOT LIKE expression
type NotLike struct {
	Column Column
	Value  string
}

func (n NotLike) Build(b Builder) (string, []any, error) {
	return buildComparison(b, n.Column, "NOT LIKE", n.Value)
}

// IsNull represents an IS NULL expression
type IsNull struct {
	Column Column
}

func (i IsNull) Build(b Builder) (string, []any, error) {
	ref, _, err := i.Column.Build(b)
	if err != nil {
		return "", nil, err
	}
	return ref + " IS NULL", nil, nil
}

// IsNotNull represents an IS NOT NULL expression
type IsNotNull struct {
	Column Column
}

func (i IsNotNull) Build(b Builder) (string, []any, error) {
	ref, _, err := i.Column.Build(b)
	if err != nil {
		return "", nil, err
	}
	return ref + " IS NOT NULL", nil, nil
}

// IN represents an IN expression
type IN struct {
	Column Column
	Values []any
}

func (i IN) Build(b Builder) (string, []any, error) {
	ref, _, err := i.Column.Build(b)
	if err != nil {
		return "", nil, err
	}
	return buildIn(ref, "IN", i.Values)
}

func buildIn(ref, op string, values []any) (string, []any, error) {
	switch len(values) {
	case 0:
		if op == "IN" {
			return "1 = 0", nil, nil // IN with empty list is always false
		}
		return "1 = 1", nil, nil
	case 1:
		if op == "IN" {
			return ref + " = ?", []any{values[0]}, nil
		}
		return ref + " <> ?", []any{values[0]}, nil
	default:
		placeholders := make([]string, len(values))
		for idx := range values {
			placeholders[idx] = "?"
		}
		return fmt.Sprintf("%s %s (%s)", ref, op, strings.Join(placeholders, ", ")), values, nil
	}
}

// Between represents a BETWEEN expression
type Between struct {
	Column Column
	Min    any
	Max    any
}

func (bt Between) Build(b Builder) (string, []any, error) {
	ref, _, err := bt.Column.Build(b)
	if err != nil {
		return "", nil, err
	}
	return ref + " BETWEEN ? AND ?", []any{bt.Min, bt.Max}, nil
}

// And represents an AND expression
type And []Expression

func (a And) Build(b Builder) (string, []any, error) {
	if len(a) == 0 {
		return "1 = 1", nil, nil // Empty AND is always true
	}
	return joinExpressions(b, a, " AND ")
}

// Or represents an OR expression
type Or []Expression

func (o Or) Build(b Builder) (string, []any, error) {
	if len(o) == 0 {
		return "1 = 0", nil, nil // Empty OR is always false
	}
	return joinExpressions(b, o, " OR ")
}

func joinExpressions(b Builder, exprs []Expression, sep string) (string, []any, error) {
	var (
		sqls []string
		args []any
	)
	for _, expr := range exprs {
		sql, exprArgs, err := expr.Build(b)
		if err != nil {
			return "", nil, err
		}
		sqls = append(sqls, "("+sql+")")
		args = append(args, exprArgs...)
	}
	return strings.Join(sqls, sep), args, nil
}

// Not represents a NOT expression
type Not struct {
	Expr Expression
}

func (n Not) Build(b Builder) (string, []any, error) {
	sql, args, err := n.Expr.Build(b)
	if err != nil {
		return "", nil, err
	}
	return "NOT (" + sql + ")", args, nil
}

// Expr represents a custom SQL expression.
//
// Identifiers wrapped in backticks are quoted for the target dialect, each
// dotted segment separately. A var that is itself an Expression replaces its
// "?" placeholder with the rendered expression.
//
//	clause.Expr{SQL: "COUNT(`Parent`.`id`) > ?", Vars: []any{1}}
type Expr struct {
	SQL  string
	Vars []any
}

func (e Expr) Build(b Builder) (string, []any, error) {
	var (
		out     strings.Builder
		args    []any
		varIdx  int
		inQuote byte
	)
	for i := 0; i < len(e.SQL); i++ {
		ch := e.SQL[i]
		switch {
		case inQuote != 0:
			out.WriteByte(ch)
			if ch == inQuote {
				inQuote = 0
			}
		case ch == '\'' || ch == '"':
			inQuote = ch
			out.WriteByte(ch)
		case ch == '`':
			end := strings.IndexByte(e.SQL[i+1:], '`')
			if end < 0 {
				return "", nil, fmt.Errorf("%w: unterminated identifier in expression %q", ErrInvalidConditionValue, e.SQL)
			}
			parts := strings.Split(e.SQL[i+1:i+1+end], ".")
			for idx, part := range parts {
				if idx > 0 {
					out.WriteByte('.')
				}
				if part == "*" {
					out.WriteString(part)
					continue
				}
				out.WriteString(b.Quote(part))
			}
			i += end + 1
		case ch == '?':
			if varIdx >= len(e.Vars) {
				return "", nil, fmt.Errorf("%w: expression %q has more placeholders than vars", ErrInvalidConditionValue, e.SQL)
			}
			v := e.Vars[varIdx]
			varIdx++
			if expr, ok := v.(Expression); ok {
				sql, exprArgs, err := expr.Build(b)
				if err != nil {
					return "", nil, err
				}
				out.WriteString(sql)
				args = append(args, exprArgs...)
				continue
			}
			out.WriteByte('?')
			args = append(args, v)
		default:
			out.WriteByte(ch)
		}
	}
	if varIdx < len(e.Vars) {
		args = append(args, e.Vars[varIdx:]...)
	}
	return out.String(), args, nil
}

// OrderByColumn represents an ORDER BY column
type OrderByColumn struct {
	Column Column
	Desc   bool
}

func (o OrderByColumn) Build(b Builder) (string, []any, error) {
	sql, _, err := o.Column.Build(b)
	if err != nil {
		return "", nil, err
	}
	if o.Desc {
		sql += " DESC"
	}
	return sql, nil, nil
}

// InExpr represents column IN (expression) - typically used for subqueries
type InExpr struct {
	Column Column
	Expr   Expression
}

func (i InExpr) Build(b Builder) (string, []any, error) {
	return buildComparison(b, i.Column, "IN", i.Expr)
}

// NotInExpr represents column NOT IN (expression) - typically used for subqueries
type NotInExpr struct {
	Column Column
	Expr   Expression
}

func (n NotInExpr) Build(b Builder) (string, []any, error) {
	return buildComparison(b, n.Column, "NOT IN", n.Expr)
}

// ExistsExpr represents EXISTS (expression)
type ExistsExpr struct {
	Expr Expression
}

func (e ExistsExpr) Build(b Builder) (string, []any, error) {
	sql, args, err := e.Expr.Build(b)
	if err != nil {
		return "", nil, err
	}
	return "EXISTS (" + sql + ")", args, nil
}

// NotExistsExpr represents NOT EXISTS (expression)
type NotExistsExpr struct {
	Expr Expression
}

func (n NotExistsExpr) Build(b Builder) (string, []any, error) {
	sql, args, err := n.Expr.Build(b)
	if err != nil {
		return "", nil, err
	}
	return "NOT EXISTS (" + sql + ")", args, nil
}
