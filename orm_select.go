package ormx

import (
	"context"
	"fmt"

	"github.com/arllen133/ormx/clause"
)

// OrmSelect is a Select that hydrates Record values instead of maps.
// Columns of joins named after a relation populate the related records:
//
//	admin, err := ormx.NewOrmSelect(admins, session).
//	    Columns(ormx.All(), ormx.Rel("Parent")).
//	    Where(clause.C("id", 1)).
//	    FetchRecord(ctx)
//	parent, err := admin.Related(ctx, "Parent") // no extra query
//
// The primary key of the main table is always selected.
type OrmSelect struct {
	*Select
}

func NewOrmSelect(structure *TableStructure, q Querier, opts ...SelectOption) *OrmSelect {
	return &OrmSelect{Select: NewSelect(structure, q, opts...)}
}

// Orm wraps the select into an OrmSelect sharing its state.
func (s *Select) Orm() *OrmSelect {
	return &OrmSelect{Select: s}
}

// The builder methods below mirror Select so chains keep the record fetchers.

func (s *OrmSelect) Columns(specs ...any) *OrmSelect {
	s.Select.Columns(specs...)
	return s
}

func (s *OrmSelect) SetColumns(specs ...any) *OrmSelect {
	s.Select.SetColumns(specs...)
	return s
}

func (s *OrmSelect) Join(join *Join, columns ...string) *OrmSelect {
	s.Select.Join(join, columns...)
	return s
}

func (s *OrmSelect) Where(conds ...clause.Expression) *OrmSelect {
	s.Select.Where(conds...)
	return s
}

func (s *OrmSelect) Having(conds ...clause.Expression) *OrmSelect {
	s.Select.Having(conds...)
	return s
}

func (s *OrmSelect) OrderBy(columns ...string) *OrmSelect {
	s.Select.OrderBy(columns...)
	return s
}

func (s *OrmSelect) OrderByExpr(exprs ...clause.Expression) *OrmSelect {
	s.Select.OrderByExpr(exprs...)
	return s
}

func (s *OrmSelect) GroupBy(columns ...string) *OrmSelect {
	s.Select.GroupBy(columns...)
	return s
}

func (s *OrmSelect) With(sub *Select, name string) *OrmSelect {
	s.Select.With(sub, name)
	return s
}

func (s *OrmSelect) WithRecursive(sub *Select, name string) *OrmSelect {
	s.Select.WithRecursive(sub, name)
	return s
}

func (s *OrmSelect) From(cteName string) *OrmSelect {
	s.Select.From(cteName)
	return s
}

func (s *OrmSelect) Distinct() *OrmSelect {
	s.Select.Distinct()
	return s
}

func (s *OrmSelect) Limit(n uint64) *OrmSelect {
	s.Select.Limit(n)
	return s
}

func (s *OrmSelect) Offset(n uint64) *OrmSelect {
	s.Select.Offset(n)
	return s
}

func (s *OrmSelect) Page(page, perPage uint64) *OrmSelect {
	s.Select.Page(page, perPage)
	return s
}

// FetchRecord returns the first matching record or ErrNotFound.
func (s *OrmSelect) FetchRecord(ctx context.Context) (*Record, error) {
	c, rows, err := s.run(ctx, buildOptions{limit: 1, hasLimit: true, ensurePK: true})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.structure)
	}
	return s.hydrate(c.nest(rows[0]))
}

// FetchRecords returns all matching records.
func (s *OrmSelect) FetchRecords(ctx context.Context) ([]*Record, error) {
	c, rows, err := s.run(ctx, buildOptions{ensurePK: true})
	if err != nil {
		return nil, err
	}
	records := make([]*Record, 0, len(rows))
	for _, row := range rows {
		r, err := s.hydrate(c.nest(row))
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// FetchRecordByPK returns the record with the given primary key value.
// Conditions already added to the select still apply.
func (s *OrmSelect) FetchRecordByPK(ctx context.Context, pk any) (*Record, error) {
	col := s.structure.PrimaryKey()
	if col == nil {
		return nil, fmt.Errorf("%w: table structure %s has no primary key", ErrMissingConfiguration, s.structure)
	}
	clone := *s.Select
	clone.where = append(append([]clause.Expression{}, s.where...), clause.C(col.Name(), pk))
	return (&OrmSelect{Select: &clone}).FetchRecord(ctx)
}

func (s *OrmSelect) hydrate(row map[string]any) (*Record, error) {
	r := NewRecord(s.structure, WithQuerier(s.querier))
	if err := r.SetFromDB(row); err != nil {
		return nil, err
	}
	return r, nil
}
