package ormx

import (
	"fmt"
	"regexp"

	"github.com/arllen133/ormx/clause"
)

// RelationKind is the cardinality of a relation seen from its local table.
type RelationKind int

const (
	// BelongsTo: the local column references the foreign table (foreign key).
	BelongsTo RelationKind = iota
	// HasOne: one foreign row references the local column.
	HasOne
	// HasMany: many foreign rows reference the local column.
	HasMany
)

func (k RelationKind) String() string {
	switch k {
	case BelongsTo:
		return "BELONGS TO"
	case HasOne:
		return "HAS ONE"
	case HasMany:
		return "HAS MANY"
	}
	return fmt.Sprintf("RelationKind(%d)", int(k))
}

var relationNameRegexp = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*$`)

// Relation is a named association between a local column and a column of a
// foreign table structure.
//
//	parent, err := ormx.NewRelation("Parent", "parent_id", ormx.BelongsTo, admins, "id")
//	children, err := ormx.NewRelation("Children", "id", ormx.HasMany, admins, "parent_id")
type Relation struct {
	name          string
	localColumn   string
	kind          RelationKind
	foreign       *TableStructure
	foreignColumn string
	joinType      JoinType

	conditions     clause.Conds
	conditionsFunc func(r *Relation, localAlias string) clause.Conds

	local *TableStructure
}

// NewRelation validates and creates a relation. The foreign column must exist
// in the foreign structure, and a HAS MANY relation cannot point at the
// foreign primary key.
func NewRelation(name, localColumn string, kind RelationKind, foreign *TableStructure, foreignColumn string) (*Relation, error) {
	if !relationNameRegexp.MatchString(name) {
		return nil, fmt.Errorf("%w: relation name %q must be in CamelCase", ErrSchemaDefinition, name)
	}
	if localColumn == "" {
		return nil, fmt.Errorf("%w: relation %q has no local column", ErrMissingConfiguration, name)
	}
	if kind < BelongsTo || kind > HasMany {
		return nil, fmt.Errorf("%w: relation %q has unknown kind %d", ErrInvalidArgumentType, name, int(kind))
	}
	if foreign == nil {
		return nil, fmt.Errorf("%w: relation %q has no foreign table structure", ErrMissingConfiguration, name)
	}
	col, ok := foreign.Column(foreignColumn)
	if !ok {
		return nil, fmt.Errorf("%w: relation %q refers to column %q that does not exist in table structure %s",
			ErrUnknownColumn, name, foreignColumn, foreign)
	}
	if kind == HasMany && col.IsPrimaryKey() {
		return nil, fmt.Errorf("%w: HAS MANY relation %q cannot use primary key %s.%s as foreign column",
			ErrInvalidRelation, name, foreign.Name(), foreignColumn)
	}
	return &Relation{
		name:          name,
		localColumn:   localColumn,
		kind:          kind,
		foreign:       foreign,
		foreignColumn: foreignColumn,
		joinType:      LeftJoin,
	}, nil
}

// MustRelation is like NewRelation but panics on error. Intended for
// package level schema declarations.
func MustRelation(name, localColumn string, kind RelationKind, foreign *TableStructure, foreignColumn string) *Relation {
	r, err := NewRelation(name, localColumn, kind, foreign, foreignColumn)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Relation) Name() string                      { return r.name }
func (r *Relation) LocalColumnName() string           { return r.localColumn }
func (r *Relation) Kind() RelationKind                { return r.kind }
func (r *Relation) ForeignStructure() *TableStructure { return r.foreign }
func (r *Relation) ForeignColumnName() string         { return r.foreignColumn }
func (r *Relation) JoinType() JoinType                { return r.joinType }

// LocalStructure returns the structure the relation was added to.
func (r *Relation) LocalStructure() *TableStructure { return r.local }

// WithJoinType overrides the default LEFT join.
func (r *Relation) WithJoinType(t JoinType) *Relation {
	r.joinType = t
	return r
}

// WithConditions sets static conditions added to the join predicate.
// Bare column names refer to the foreign table.
func (r *Relation) WithConditions(conds ...clause.Expression) *Relation {
	r.conditions = conds
	r.conditionsFunc = nil
	return r
}

// WithConditionsFunc sets a function computing the additional join conditions
// for the alias of the table the relation is joined to.
func (r *Relation) WithConditionsFunc(fn func(r *Relation, localAlias string) clause.Conds) *Relation {
	r.conditionsFunc = fn
	r.conditions = nil
	return r
}

// AdditionalConditions returns the extra join conditions for localAlias.
func (r *Relation) AdditionalConditions(localAlias string) clause.Conds {
	if r.conditionsFunc != nil {
		return r.conditionsFunc(r, localAlias)
	}
	return r.conditions
}

// JoinConditions returns the additional conditions of a join named joinName
// attached to localAlias, minus any keyed on the join column.
func (r *Relation) JoinConditions(localAlias, joinName string) clause.Conds {
	return r.AdditionalConditions(localAlias).Without(joinName+"."+r.foreignColumn, r.foreignColumn)
}

// ToJoin lowers the relation into a join attached to localAlias. joinName
// defaults to the relation name.
//
// The base predicate is {joinName}.{foreignColumn} = {localAlias}.{localColumn}.
// Additional conditions are merged after it; one keyed on the same column
// path as the base predicate is dropped, so the base predicate always wins.
func (r *Relation) ToJoin(localAlias, joinName string) *Join {
	if joinName == "" {
		joinName = r.name
	}
	extra := r.JoinConditions(localAlias, joinName)
	return &Join{
		Name:          joinName,
		Type:          r.joinType,
		LocalAlias:    localAlias,
		LocalColumn:   r.localColumn,
		Foreign:       r.foreign,
		ForeignColumn: r.foreignColumn,
		Conditions:    extra,
		relation:      r,
	}
}
