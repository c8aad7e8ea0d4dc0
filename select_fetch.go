// This file implements the fetch terminals of Select.
//
// Rows are returned as nested maps. Columns of the main table sit at the top
// level, columns of joined tables under their join name, following the join
// chain:
//
//	// Columns("id", "Parent.email", "Parent as Creator.Parent.id")
//	map[string]any{
//	    "id": 1,
//	    "Parent": map[string]any{"email": "root@example.com"},
//	    "Creator": map[string]any{"Parent": map[string]any{"id": 3}},
//	}
//
// Aggregate helpers (Sum, Avg, Min, Max) respect WHERE, JOIN and GROUP BY
// conditions and ignore LIMIT and OFFSET.
package ormx

import (
	"context"
	"fmt"

	"github.com/spf13/cast"

	"github.com/arllen133/ormx/clause"
)

func (s *Select) requireQuerier() error {
	if s.querier == nil {
		return fmt.Errorf("%w: select on %s has no querier", ErrMissingConfiguration, s.structure)
	}
	return nil
}

// run compiles the query with opts and returns the raw rows with the
// compiled state used to decode them.
func (s *Select) run(ctx context.Context, opts buildOptions) (*compiled, []map[string]any, error) {
	if err := s.requireQuerier(); err != nil {
		return nil, nil, err
	}
	c, err := s.compile(opts)
	if err != nil {
		return nil, nil, err
	}
	query, args, err := c.selectBuilder(true).ToSql()
	if err != nil {
		return nil, nil, err
	}
	query, args, err = s.placeholders(query, args)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.querier.QueryMaps(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	return c, rows, nil
}

// joinChain returns the join names leading from the main table to join.
func (c *compiled) joinChain(join string) []string {
	var chain []string
	for join != c.s.tableAlias {
		j, ok := c.joinIndex[join]
		if !ok {
			break
		}
		chain = append([]string{join}, chain...)
		join = j.LocalAlias
	}
	return chain
}

// nest converts a flat row keyed by column aliases into nested maps.
func (c *compiled) nest(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	known := make(map[string]bool, len(c.items))
	for _, item := range c.items {
		if item.alias == "" {
			continue
		}
		known[item.alias] = true
		value, ok := row[item.alias]
		if !ok {
			continue
		}
		target := out
		for _, name := range c.joinChain(item.join) {
			next, ok := target[name].(map[string]any)
			if !ok {
				next = make(map[string]any)
				target[name] = next
			}
			target = next
		}
		target[item.key] = value
	}
	// unaliased expressions keep the name chosen by the database
	for key, value := range row {
		if !known[key] {
			out[key] = value
		}
	}
	return out
}

// FetchMany executes the query and returns all rows as nested maps.
//
// Parameters:
//   - ctx: Context for cancellation and tracing
//
// Returns:
//   - []map[string]any: Rows in query order (empty slice if none)
//   - error: Query building or execution error
//
// Usage example:
//
//	rows, err := ormx.NewSelect(admins, session).
//	    Columns("id", "email", "Parent.email").
//	    Where(clause.C("is_active", true)).
//	    OrderBy("id DESC").
//	    FetchMany(ctx)
func (s *Select) FetchMany(ctx context.Context) ([]map[string]any, error) {
	c, rows, err := s.run(ctx, buildOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, c.nest(row))
	}
	return out, nil
}

// FetchOne executes the query with LIMIT 1 and returns the first row.
// Returns ErrNotFound when the query matches nothing.
//
// Usage example:
//
//	row, err := ormx.NewSelect(admins, session).Where(clause.C("id", 1)).FetchOne(ctx)
//	if errors.Is(err, ormx.ErrNotFound) {
//	    // handle missing admin
//	}
func (s *Select) FetchOne(ctx context.Context) (map[string]any, error) {
	c, rows, err := s.run(ctx, buildOptions{limit: 1, hasLimit: true})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.structure)
	}
	return c.nest(rows[0]), nil
}

// FetchNextPage returns the rows of the current page and moves OFFSET to the
// next page. Requires Limit. An empty result means there are no more pages.
//
// Usage example:
//
//	sel := ormx.NewSelect(admins, session).OrderBy("id").Limit(100)
//	for {
//	    rows, err := sel.FetchNextPage(ctx)
//	    if err != nil || len(rows) == 0 {
//	        break
//	    }
//	    // process rows
//	}
func (s *Select) FetchNextPage(ctx context.Context) ([]map[string]any, error) {
	if !s.hasLimit || s.limit == 0 {
		return nil, fmt.Errorf("%w: FetchNextPage requires a limit", ErrIllegalState)
	}
	rows, err := s.FetchMany(ctx)
	if err != nil {
		return nil, err
	}
	s.offset += s.limit
	return rows, nil
}

// FetchColumn returns the values of a single column for all rows.
//
// Usage example:
//
//	emails, err := ormx.NewSelect(admins, session).FetchColumn(ctx, "email")
//	parentIDs, err := ormx.NewSelect(admins, session).FetchColumn(ctx, "Parent.id")
func (s *Select) FetchColumn(ctx context.Context, column any) ([]any, error) {
	c, rows, err := s.run(ctx, buildOptions{columns: []any{column}})
	if err != nil {
		return nil, err
	}
	key, err := c.singleKey()
	if err != nil {
		return nil, err
	}
	values := make([]any, 0, len(rows))
	for _, row := range rows {
		values = append(values, valueOf(row, key))
	}
	return values, nil
}

// FetchAssoc returns a map of keyColumn values to valueColumn values.
// Keys are converted to strings; later rows overwrite earlier ones.
//
// Usage example:
//
//	emailsByID, err := ormx.NewSelect(admins, session).FetchAssoc(ctx, "id", "email")
func (s *Select) FetchAssoc(ctx context.Context, keyColumn, valueColumn any) (map[string]any, error) {
	c, rows, err := s.run(ctx, buildOptions{columns: []any{keyColumn, valueColumn}})
	if err != nil {
		return nil, err
	}
	if len(c.items) != 2 {
		return nil, fmt.Errorf("%w: FetchAssoc expects exactly two columns, got %d", ErrInvalidArgumentType, len(c.items))
	}
	keyAlias, valueAlias := c.items[0].alias, c.items[1].alias
	out := make(map[string]any, len(rows))
	for _, row := range rows {
		key, err := cast.ToStringE(valueOf(row, keyAlias))
		if err != nil {
			return nil, fmt.Errorf("%w: assoc key: %v", ErrInvalidArgumentType, err)
		}
		out[key] = valueOf(row, valueAlias)
	}
	return out, nil
}

// FetchValue returns the value of a single expression or column from the
// first row, nil when there are no rows.
//
// Usage example:
//
//	last, err := ormx.NewSelect(admins, session).
//	    FetchValue(ctx, ormx.RawAs(clause.Expr{SQL: `MAX("Admins"."created_at")`}, "last"))
func (s *Select) FetchValue(ctx context.Context, column any) (any, error) {
	c, rows, err := s.run(ctx, buildOptions{columns: []any{column}, limit: 1, hasLimit: true})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	key, err := c.singleKey()
	if err != nil {
		return nil, err
	}
	return valueOf(rows[0], key), nil
}

// FetchCount returns the number of rows the query matches, ignoring LIMIT,
// OFFSET and ORDER BY. DISTINCT and GROUP BY queries are counted through a
// subquery.
//
// Usage example:
//
//	total, err := ormx.NewSelect(admins, session).Where(clause.C("is_active", true)).FetchCount(ctx)
func (s *Select) FetchCount(ctx context.Context) (int64, error) {
	if err := s.requireQuerier(); err != nil {
		return 0, err
	}
	query, args, err := s.CountQuery()
	if err != nil {
		return 0, err
	}
	rows, err := s.querier.QueryMaps(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	for _, v := range rows[0] {
		return cast.ToInt64E(v)
	}
	return 0, nil
}

// Exists reports whether the query matches at least one row.
func (s *Select) Exists(ctx context.Context) (bool, error) {
	count, err := s.FetchCount(ctx)
	return count > 0, err
}

// Sum returns the sum of a numeric column, 0 when no rows match.
//
// Usage example:
//
//	total, err := ormx.NewSelect(orders, session).Where(clause.C("status", "paid")).Sum(ctx, "total")
func (s *Select) Sum(ctx context.Context, column any) (float64, error) {
	return s.aggregateFloat(ctx, "SUM", column)
}

// Avg returns the average of a numeric column, 0 when no rows match.
func (s *Select) Avg(ctx context.Context, column any) (float64, error) {
	return s.aggregateFloat(ctx, "AVG", column)
}

// Min returns the minimum value of a column, nil when no rows match.
//
// Usage example:
//
//	first, err := ormx.NewSelect(admins, session).Min(ctx, "created_at")
func (s *Select) Min(ctx context.Context, column any) (any, error) {
	return s.aggregate(ctx, "MIN", column)
}

// Max returns the maximum value of a column, nil when no rows match.
func (s *Select) Max(ctx context.Context, column any) (any, error) {
	return s.aggregate(ctx, "MAX", column)
}

func (s *Select) aggregateFloat(ctx context.Context, fn string, column any) (float64, error) {
	v, err := s.aggregate(ctx, fn, column)
	if err != nil || v == nil {
		return 0, err
	}
	return cast.ToFloat64E(v)
}

// aggregate runs fn over column without ORDER BY, LIMIT or OFFSET.
func (s *Select) aggregate(ctx context.Context, fn string, column any) (any, error) {
	path, err := columnPath(column)
	if err != nil {
		return nil, err
	}
	clone := *s
	clone.orderBy, clone.hasLimit, clone.limit, clone.offset = nil, false, 0, 0
	expr := clause.Expr{SQL: fn + "(?)", Vars: []any{clause.Col(path)}}
	return clone.FetchValue(ctx, RawAs(expr, "aggregate"))
}

// columnPath accepts a column path string or a field handle.
func columnPath(column any) (string, error) {
	switch v := column.(type) {
	case string:
		return v, nil
	case clause.Columnar:
		return v.ColumnName(), nil
	}
	return "", fmt.Errorf("%w: expected column path or clause.Columnar, got %T", ErrInvalidArgumentType, column)
}

func (c *compiled) singleKey() (string, error) {
	if len(c.items) != 1 {
		return "", fmt.Errorf("%w: expected exactly one column, got %d", ErrInvalidArgumentType, len(c.items))
	}
	return c.items[0].alias, nil
}

// valueOf reads an aliased value from a flat row. Unaliased expressions
// have a database chosen name, so a single column row is read as is.
func valueOf(row map[string]any, alias string) any {
	if alias != "" {
		return row[alias]
	}
	for _, v := range row {
		return v
	}
	return nil
}
