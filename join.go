package ormx

import (
	"github.com/arllen133/ormx/clause"
)

// JoinType is the SQL join flavor.
type JoinType string

const (
	LeftJoin  JoinType = "LEFT"
	InnerJoin JoinType = "INNER"
	RightJoin JoinType = "RIGHT"
	FullJoin  JoinType = "FULL"
)

// Join describes one JOIN clause of a Select.
//
// The ON clause is rendered as
//
//	("{LocalAlias}"."{LocalColumn}" = "{Name}"."{ForeignColumn}" AND {Conditions})
//
// Conditions may reference the joined table with bare column names or with
// the join name, and other tables of the query by their alias.
//
// Usage example:
//
//	// LEFT JOIN "admins" AS "Creator" ON ("Admins"."created_by" = "Creator"."id")
//	sel.Join(ormx.NewJoin("Creator", "Admins", "created_by", admins, "id"), "email")
type Join struct {
	Name          string
	Type          JoinType
	LocalAlias    string
	LocalColumn   string
	Foreign       *TableStructure
	ForeignColumn string
	Conditions    clause.Conds

	// Columns of the joined table added to the select list.
	Columns []string

	relation *Relation
}

// NewJoin creates a LEFT join descriptor not backed by a declared relation.
func NewJoin(name, localAlias, localColumn string, foreign *TableStructure, foreignColumn string) *Join {
	return &Join{
		Name:          name,
		Type:          LeftJoin,
		LocalAlias:    localAlias,
		LocalColumn:   localColumn,
		Foreign:       foreign,
		ForeignColumn: foreignColumn,
	}
}

// WithType sets the join type.
func (j *Join) WithType(t JoinType) *Join {
	j.Type = t
	return j
}

// Where appends conditions to the ON clause.
func (j *Join) Where(conds ...clause.Expression) *Join {
	j.Conditions = append(j.Conditions, conds...)
	return j
}

// Select sets the joined table columns added to the select list.
func (j *Join) Select(columns ...string) *Join {
	j.Columns = columns
	return j
}

// Relation returns the relation the join was lowered from, if any.
func (j *Join) Relation() *Relation { return j.relation }

// sameTarget reports whether two joins attach the same table the same way.
func (j *Join) sameTarget(other *Join) bool {
	return j.Name == other.Name &&
		j.Type == other.Type &&
		j.LocalAlias == other.LocalAlias &&
		j.LocalColumn == other.LocalColumn &&
		j.Foreign == other.Foreign &&
		j.ForeignColumn == other.ForeignColumn &&
		len(j.Conditions) == len(other.Conditions)
}

// Exists creates an EXISTS subquery expression.
//
// Usage example:
//
//	// admins having at least one child
//	children := ormx.NewSelect(admins, dialect, ormx.WithTableAlias("Child")).
//	    Columns(clause.Expr{SQL: "1"}).
//	    Where(clause.C("parent_id", clause.Expr{SQL: "`Admins`.`id`"}))
//	sel.Where(ormx.Exists(children))
func Exists(expr clause.Expression) clause.Expression {
	return clause.ExistsExpr{Expr: expr}
}

// NotExists creates a NOT EXISTS subquery expression.
func NotExists(expr clause.Expression) clause.Expression {
	return clause.NotExistsExpr{Expr: expr}
}
