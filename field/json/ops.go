package json

import "github.com/arllen133/ormx/clause"

// JSONPathOps provides JSON path operations with a specific dialect.
// The column is resolved when the expression is built, so relation paths
// such as "Parent.settings" work like any other column reference.
type JSONPathOps struct {
	column  clause.Column
	path    string
	dialect JSONDialect
}

// NewPathOps creates a JSONPathOps for the given column, path, and dialect.
func NewPathOps(column clause.Column, path string, dialect JSONDialect) JSONPathOps {
	return JSONPathOps{column: column, path: path, dialect: dialect}
}

// pathExpr defers SQL generation until the column reference is resolved.
type pathExpr struct {
	column clause.Column
	render func(column string) (string, []any)
}

func (e pathExpr) Build(b clause.Builder) (string, []any, error) {
	ref, _, err := e.column.Build(b)
	if err != nil {
		return "", nil, err
	}
	sql, vars := e.render(ref)
	return sql, vars, nil
}

func (p JSONPathOps) expr(render func(column string) (string, []any)) clause.Expression {
	return pathExpr{column: p.column, render: render}
}

// Eq creates a JSON path equality expression.
func (p JSONPathOps) Eq(value any) clause.Expression {
	return p.expr(func(col string) (string, []any) { return p.dialect.PathEq(col, p.path, value) })
}

// Neq creates a JSON path inequality expression.
func (p JSONPathOps) Neq(value any) clause.Expression {
	return p.expr(func(col string) (string, []any) { return p.dialect.PathNeq(col, p.path, value) })
}

// Gt creates a JSON path greater-than expression.
func (p JSONPathOps) Gt(value any) clause.Expression {
	return p.expr(func(col string) (string, []any) { return p.dialect.PathGt(col, p.path, value) })
}

// Gte creates a JSON path greater-than-or-equal expression.
func (p JSONPathOps) Gte(value any) clause.Expression {
	return p.expr(func(col string) (string, []any) { return p.dialect.PathGte(col, p.path, value) })
}

// Lt creates a JSON path less-than expression.
func (p JSONPathOps) Lt(value any) clause.Expression {
	return p.expr(func(col string) (string, []any) { return p.dialect.PathLt(col, p.path, value) })
}

// Lte creates a JSON path less-than-or-equal expression.
func (p JSONPathOps) Lte(value any) clause.Expression {
	return p.expr(func(col string) (string, []any) { return p.dialect.PathLte(col, p.path, value) })
}

// Contains creates a JSON containment expression.
func (p JSONPathOps) Contains(value any) clause.Expression {
	return p.expr(func(col string) (string, []any) { return p.dialect.Contains(col, value, p.path) })
}

// Extract selects the value under the path as text.
func (p JSONPathOps) Extract() clause.Expression {
	return p.expr(func(col string) (string, []any) { return p.dialect.Extract(col, SplitPath(p.path), true) })
}
