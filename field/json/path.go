package json

import (
	"github.com/arllen133/ormx/clause"
)

// DialectProvider exposes a JSON dialect. ormx.Dialect implements it, so a
// path can follow the session it runs on:
//
//	meta.Path("theme").For(session.Dialect()).Eq("dark")
type DialectProvider interface {
	JSON() JSONDialect
}

// JSONPath is a path inside a JSON column. The column may carry a relation
// path ("Parent.settings"), which the select resolves into a join.
type JSONPath struct {
	Column clause.Column
	Path   string // "$.name" or "name"
}

// With binds the path to a dialect.
func (p JSONPath) With(dialect JSONDialect) JSONPathOps {
	return NewPathOps(p.Column, p.Path, dialect)
}

// For binds the path to the JSON dialect of d.
func (p JSONPath) For(d DialectProvider) JSONPathOps {
	return p.With(d.JSON())
}

// The shortcuts below use DefaultDialect.

func (p JSONPath) Eq(value any) clause.Expression { return p.With(DefaultDialect()).Eq(value) }

func (p JSONPath) Neq(value any) clause.Expression { return p.With(DefaultDialect()).Neq(value) }

func (p JSONPath) Contains(value any) clause.Expression {
	return p.With(DefaultDialect()).Contains(value)
}

func (p JSONPath) Gt(value any) clause.Expression { return p.With(DefaultDialect()).Gt(value) }

func (p JSONPath) Gte(value any) clause.Expression { return p.With(DefaultDialect()).Gte(value) }

func (p JSONPath) Lt(value any) clause.Expression { return p.With(DefaultDialect()).Lt(value) }

func (p JSONPath) Lte(value any) clause.Expression { return p.With(DefaultDialect()).Lte(value) }
