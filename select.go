// This file implements Select, the relation aware SELECT builder.
//
// Select resolves column paths through the relations declared on table
// structures and turns every distinct relation path into one JOIN:
//
//	// SELECT "Admins"."id" AS "_Admins__id", "Parent"."email" AS "_Parent__email"
//	// FROM "admins" AS "Admins"
//	// LEFT JOIN "admins" AS "Parent" ON ("Admins"."parent_id" = "Parent"."id")
//	// WHERE "Admins"."is_active" = $1
//	rows, err := ormx.NewSelect(admins, session).
//	    Columns("id", "Parent.email").
//	    Where(clause.C("is_active", true)).
//	    FetchMany(ctx)
//
// Supported clauses:
//   - Column lists with relation paths, aliases, wildcards, casts and JSON selectors
//   - JOINs derived from relations or added manually
//   - WHERE and HAVING (may add joins for relation paths)
//   - ORDER BY and GROUP BY (may only use joins that already exist)
//   - WITH (CTE), DISTINCT, LIMIT and OFFSET
//
// All path resolution happens when the query is built, so schema mistakes are
// reported by ToSQL, GetQuery and the fetch methods before anything is sent
// to the database.
package ormx

import (
	"fmt"
	"reflect"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/arllen133/ormx/clause"
)

// Select is a query builder for one table structure.
//
// Select is a builder, not a shared value: it keeps join, alias and
// pagination state and must not be used from several goroutines.
type Select struct {
	structure  *TableStructure
	querier    Querier
	dialect    Dialect
	tableAlias string
	from       string

	columns []any
	joins   []*Join
	where   []clause.Expression
	having  []clause.Expression
	orderBy []orderSpec
	groupBy []string
	ctes    []cte

	distinct bool
	limit    uint64
	offset   uint64
	hasLimit bool

	aliases *aliaser

	// err stores the first error that occurred during query building
	err error
}

type orderSpec struct {
	column string
	desc   bool
	expr   clause.Expression
}

type cte struct {
	name      string
	query     *Select
	recursive bool
}

// SelectOption configures a Select.
type SelectOption func(*Select)

// WithTableAlias overrides the alias of the main table (the structure alias
// by default).
func WithTableAlias(alias string) SelectOption {
	return func(s *Select) { s.tableAlias = alias }
}

// WithDialect sets the dialect of a Select that has no querier, typically to
// render SQL without a database.
func WithDialect(d Dialect) SelectOption {
	return func(s *Select) { s.dialect = d }
}

// NewSelect creates a Select over structure. q executes the fetch methods and
// provides the dialect; it may be nil when only SQL text is needed, in which
// case WithDialect selects the dialect (PostgreSQL by default).
func NewSelect(structure *TableStructure, q Querier, opts ...SelectOption) *Select {
	s := &Select{
		structure: structure,
		querier:   q,
	}
	if structure != nil {
		s.tableAlias = structure.Alias()
	}
	if q != nil {
		s.dialect = q.Dialect()
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dialect == nil {
		s.dialect = PostgreSQL
	}
	if structure == nil {
		s.err = fmt.Errorf("%w: select requires a table structure", ErrMissingConfiguration)
	}
	s.aliases = newAliaser(s.dialect.MaxIdentifierLength())
	return s
}

// Structure returns the main table structure.
func (s *Select) Structure() *TableStructure { return s.structure }

// TableAlias returns the alias of the main table.
func (s *Select) TableAlias() string { return s.tableAlias }

func (s *Select) Dialect() Dialect { return s.dialect }

// Err returns the first error recorded by a builder method.
func (s *Select) Err() error { return s.err }

// Columns adds columns to the select list. Accepted specifications:
//
//   - string: "id", "id as pk", "Parent.id", "Parent as Creator.id", "*",
//     "Parent.*", "data->a->>b", "id::text"
//   - RelSpec: Rel("Parent", "id", Rel("Parent as Grand", "id"))
//   - WildcardSpec: All("password")
//   - RawSpec: Raw(expr), RawAs(expr, alias)
//   - clause.Columnar (field handles) and clause.Expression values
//
// When Columns is never called the main table wildcard is selected.
//
// Usage example:
//
//	// identical SQL
//	sel.Columns("id", "Parent.id")
//	sel.Columns("id", ormx.Rel("Parent", "id"))
func (s *Select) Columns(specs ...any) *Select {
	s.columns = append(s.columns, specs...)
	return s
}

// SetColumns replaces the select list.
func (s *Select) SetColumns(specs ...any) *Select {
	s.columns = append([]any(nil), specs...)
	return s
}

// Join adds a manual join and, optionally, columns of the joined table.
//
// Usage example:
//
//	creator := ormx.NewJoin("Creator", "Admins", "created_by", admins, "id").
//	    Where(clause.C("is_active", true))
//	sel.Join(creator, "id", "email")
func (s *Select) Join(join *Join, columns ...string) *Select {
	if join == nil {
		s.setErr(fmt.Errorf("%w: nil join", ErrInvalidArgumentType))
		return s
	}
	if len(columns) > 0 {
		join.Columns = columns
	}
	s.joins = append(s.joins, join)
	return s
}

// Where adds WHERE conditions. Conditions of all calls are joined with AND.
// Relation paths in conditions add the joins they need.
//
// Usage example:
//
//	sel.Where(
//	    clause.C("email LIKE", "%@example.com"),
//	    clause.C("Parent.id", []int{1, 2}),
//	    clause.Or{clause.C("id >", 10), clause.C("parent_id", nil)},
//	)
func (s *Select) Where(conds ...clause.Expression) *Select {
	s.where = append(s.where, conds...)
	return s
}

// Having adds HAVING conditions, resolved like Where.
func (s *Select) Having(conds ...clause.Expression) *Select {
	s.having = append(s.having, conds...)
	return s
}

// OrderBy adds ORDER BY columns: "id", "Parent.email DESC", "created_at asc".
// Relation paths must refer to joins added by columns, conditions or Join.
func (s *Select) OrderBy(columns ...string) *Select {
	for _, col := range columns {
		spec := orderSpec{column: strings.TrimSpace(col)}
		upper := strings.ToUpper(spec.column)
		switch {
		case strings.HasSuffix(upper, " DESC"):
			spec.column, spec.desc = strings.TrimSpace(spec.column[:len(spec.column)-5]), true
		case strings.HasSuffix(upper, " ASC"):
			spec.column = strings.TrimSpace(spec.column[:len(spec.column)-4])
		}
		s.orderBy = append(s.orderBy, spec)
	}
	return s
}

// OrderByExpr adds ORDER BY expressions such as field.Desc() or a raw
// clause.Expr.
func (s *Select) OrderByExpr(exprs ...clause.Expression) *Select {
	for _, expr := range exprs {
		s.orderBy = append(s.orderBy, orderSpec{expr: expr})
	}
	return s
}

// GroupBy adds GROUP BY columns. Like OrderBy it cannot add joins.
func (s *Select) GroupBy(columns ...string) *Select {
	s.groupBy = append(s.groupBy, columns...)
	return s
}

// With registers sub as a CTE named name. CTEs are emitted in registration
// order, each once. Registering a different query under a used name fails.
//
// Usage example:
//
//	active := ormx.NewSelect(admins, session).Columns("id").Where(clause.C("is_active", true))
//	sel := ormx.NewSelect(admins, session).With(active, "active_admins").From("active_admins")
func (s *Select) With(sub *Select, name string) *Select {
	return s.with(sub, name, false)
}

// WithRecursive registers a recursive CTE.
func (s *Select) WithRecursive(sub *Select, name string) *Select {
	return s.with(sub, name, true)
}

func (s *Select) with(sub *Select, name string, recursive bool) *Select {
	if sub == nil || name == "" {
		s.setErr(fmt.Errorf("%w: WITH requires a query and a name", ErrEmptyArgument))
		return s
	}
	for _, existing := range s.ctes {
		if existing.name == name {
			if existing.query != sub {
				s.setErr(fmt.Errorf("%w: WITH %q is already registered with another query", ErrIllegalState, name))
			}
			return s
		}
	}
	s.ctes = append(s.ctes, cte{name: name, query: sub, recursive: recursive})
	return s
}

// From selects from a registered CTE instead of the table. Columns are still
// resolved against the table structure.
func (s *Select) From(cteName string) *Select {
	s.from = cteName
	return s
}

func (s *Select) Distinct() *Select {
	s.distinct = true
	return s
}

func (s *Select) Limit(n uint64) *Select {
	s.limit, s.hasLimit = n, true
	return s
}

func (s *Select) Offset(n uint64) *Select {
	s.offset = n
	return s
}

// Page sets LIMIT and OFFSET for a 1-based page number.
func (s *Select) Page(page, perPage uint64) *Select {
	if page == 0 {
		page = 1
	}
	return s.Limit(perPage).Offset((page - 1) * perPage)
}

func (s *Select) setErr(err error) {
	if s.err == nil {
		s.err = err
	}
}

// ShortAlias returns the identifier used in SQL for name, shortened when it
// exceeds the dialect limit.
func (s *Select) ShortAlias(name string) (string, error) {
	return s.aliases.shorten(name)
}

// ToSQL returns the SQL string in the dialect placeholder format and its
// arguments without executing the query.
func (s *Select) ToSQL() (string, []any, error) {
	query, args, err := s.rawSQL(buildOptions{})
	if err != nil {
		return "", nil, err
	}
	return s.placeholders(query, args)
}

// GetQuery returns the SQL with arguments embedded as literals. Intended for
// logs, tests and debugging.
func (s *Select) GetQuery() (string, error) {
	query, args, err := s.rawSQL(buildOptions{})
	if err != nil {
		return "", err
	}
	return InlineArgs(s.dialect, query, args), nil
}

// CountQuery returns the SQL counting the rows of the query.
func (s *Select) CountQuery() (string, []any, error) {
	query, args, err := s.countSQL()
	if err != nil {
		return "", nil, err
	}
	return s.placeholders(query, args)
}

// Build implements clause.Expression, enabling Select to be used as a
// subquery: clause.InExpr{Column: clause.Col("id"), Expr: sub}.
func (s *Select) Build(clause.Builder) (string, []any, error) {
	return s.rawSQL(buildOptions{})
}

func (s *Select) placeholders(query string, args []any) (string, []any, error) {
	query, err := s.dialect.PlaceholderFormat().ReplacePlaceholders(query)
	if err != nil {
		return "", nil, err
	}
	return query, args, nil
}

// buildOptions adjust one build of the query for fetch helpers.
type buildOptions struct {
	// columns replaces the select list when set.
	columns []any
	// limit overrides LIMIT when hasLimit is set.
	limit    uint64
	hasLimit bool
	// ensurePK adds the main primary key to the select list.
	ensurePK bool
	// cteNames are the WITH queries of the enclosing statement. A CTE body
	// compiled with them may select from any of them, itself included, and
	// renders no WITH prefix of its own.
	cteNames map[string]bool
}

// rawSQL builds the query with "?" placeholders.
func (s *Select) rawSQL(opts buildOptions) (string, []any, error) {
	c, err := s.compile(opts)
	if err != nil {
		return "", nil, err
	}
	return c.selectBuilder(true).ToSql()
}

func (s *Select) countSQL() (string, []any, error) {
	c, err := s.compile(buildOptions{})
	if err != nil {
		return "", nil, err
	}
	if s.distinct || len(s.groupBy) > 0 {
		inner := *c
		inner.prefixSQL = nil
		sub := inner.selectBuilder(false).RemoveLimit().RemoveOffset()
		return c.prefixed(sq.Select("COUNT(*)").FromSelect(sub, "_count")).ToSql()
	}
	return c.countBuilder().ToSql()
}

// compiled holds one resolved build of a Select.
type compiled struct {
	s         *Select
	items     []selectItem
	joins     []*Join
	joinIndex map[string]*Join

	fromSQL    string
	joinSQL    []sq.Sqlizer
	whereSQL   sq.Sqlizer
	havingSQL  sq.Sqlizer
	groupSQL   []string
	orderSQL   []sq.Sqlizer
	prefixSQL  sq.Sqlizer
	limit      uint64
	hasLimit   bool
	itemByName map[string]selectItem
	cteNames   map[string]bool
}

// selectItem is one entry of the select list.
type selectItem struct {
	sql   string
	args  []any
	alias string // short alias, empty for unaliased expressions
	join  string // join name, the main table alias for main columns
	key   string // row key below the join
}

func (c *compiled) prefixed(b sq.SelectBuilder) sq.SelectBuilder {
	if c.prefixSQL != nil {
		b = b.PrefixExpr(c.prefixSQL)
	}
	return b
}

func (c *compiled) base() sq.SelectBuilder {
	b := c.prefixed(sq.Select()).From(c.fromSQL)
	for _, j := range c.joinSQL {
		b = b.JoinClause(j)
	}
	if c.whereSQL != nil {
		b = b.Where(c.whereSQL)
	}
	if len(c.groupSQL) > 0 {
		b = b.GroupBy(c.groupSQL...)
	}
	if c.havingSQL != nil {
		b = b.Having(c.havingSQL)
	}
	return b
}

func (c *compiled) selectBuilder(withOrder bool) sq.SelectBuilder {
	b := c.base()
	if c.s.distinct {
		b = b.Distinct()
	}
	for _, item := range c.items {
		b = b.Column(sq.Expr(item.columnSQL(c.s.dialect), item.args...))
	}
	if withOrder {
		for _, o := range c.orderSQL {
			b = b.OrderByClause(o)
		}
	}
	if c.hasLimit {
		b = b.Limit(c.limit)
	}
	if c.s.offset > 0 {
		b = b.Offset(c.s.offset)
	}
	return b
}

func (c *compiled) countBuilder() sq.SelectBuilder {
	return c.base().Column("COUNT(*)")
}

func (item selectItem) columnSQL(d Dialect) string {
	if item.alias == "" {
		return item.sql
	}
	return item.sql + " AS " + d.QuoteIdentifier(item.alias)
}

// compile resolves columns, joins and conditions in that order: columns and
// conditions may add joins, ordering and grouping may not.
func (s *Select) compile(opts buildOptions) (*compiled, error) {
	if s.err != nil {
		return nil, s.err
	}
	c := &compiled{
		s:          s,
		joinIndex:  make(map[string]*Join),
		limit:      s.limit,
		hasLimit:   s.hasLimit,
		itemByName: make(map[string]selectItem),
		cteNames:   opts.cteNames,
	}
	if opts.hasLimit {
		c.limit, c.hasLimit = opts.limit, true
	}

	if err := c.compileFrom(); err != nil {
		return nil, err
	}
	for _, j := range s.joins {
		if err := c.addJoin(j); err != nil {
			return nil, err
		}
	}

	specs := s.columns
	if opts.columns != nil {
		specs = opts.columns
	} else if len(specs) == 0 {
		specs = []any{"*"}
	}
	if err := c.compileColumns(nil, specs); err != nil {
		return nil, err
	}
	if opts.columns == nil {
		for _, j := range s.joins {
			if len(j.Columns) == 0 {
				continue
			}
			cols := make([]any, len(j.Columns))
			for i, col := range j.Columns {
				cols[i] = col
			}
			if err := c.compileColumns([]string{j.Name}, cols); err != nil {
				return nil, err
			}
		}
	}
	if opts.ensurePK {
		if pk := s.structure.PrimaryKey(); pk != nil {
			if err := c.compileColumns(nil, []any{pk.Name()}); err != nil {
				return nil, err
			}
		}
	}

	var err error
	if c.whereSQL, err = c.compileConditions(s.where); err != nil {
		return nil, err
	}
	if c.havingSQL, err = c.compileConditions(s.having); err != nil {
		return nil, err
	}
	if err = c.compileGroupBy(); err != nil {
		return nil, err
	}
	if err = c.compileOrderBy(); err != nil {
		return nil, err
	}
	if err = c.compileJoins(); err != nil {
		return nil, err
	}
	if c.cteNames == nil {
		if err = c.compileCTEs(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *compiled) quoteAlias(name string) (string, error) {
	short, err := c.s.aliases.shorten(name)
	if err != nil {
		return "", err
	}
	return c.s.dialect.QuoteIdentifier(short), nil
}

func (c *compiled) compileFrom() error {
	alias, err := c.quoteAlias(c.s.tableAlias)
	if err != nil {
		return err
	}
	if c.s.from != "" {
		found := c.cteNames[c.s.from]
		for _, ct := range c.s.ctes {
			found = found || ct.name == c.s.from
		}
		if !found {
			return fmt.Errorf("%w: FROM %q does not name a registered WITH query", ErrUnknownReference, c.s.from)
		}
		c.fromSQL = c.s.dialect.QuoteIdentifier(c.s.from) + " AS " + alias
		return nil
	}
	c.fromSQL = quoteTable(c.s.dialect, c.s.structure) + " AS " + alias
	return nil
}

// structureOf returns the table structure behind a table or join alias.
func (c *compiled) structureOf(alias string) (*TableStructure, bool) {
	if alias == c.s.tableAlias {
		return c.s.structure, true
	}
	if j, ok := c.joinIndex[alias]; ok {
		return j.Foreign, true
	}
	return nil, false
}

func (c *compiled) addJoin(j *Join) error {
	if j.Name == "" {
		return fmt.Errorf("%w: join without name", ErrMissingConfiguration)
	}
	if j.Foreign == nil {
		return fmt.Errorf("%w: join %q has no foreign table structure", ErrMissingConfiguration, j.Name)
	}
	if r := j.Relation(); r != nil && r.Kind() == HasMany {
		return hasManyJoinError(r)
	}
	if j.Name == c.s.tableAlias {
		return fmt.Errorf("%w: join name %q equals the main table alias", ErrDuplicateJoin, j.Name)
	}
	if existing, ok := c.joinIndex[j.Name]; ok {
		if existing.sameTarget(j) {
			return nil
		}
		return fmt.Errorf("%w: join name %q is already used for %s.%s; use \"Relation as OtherName\" to join it again",
			ErrDuplicateJoin, j.Name, existing.LocalAlias, existing.LocalColumn)
	}
	local, ok := c.structureOf(j.LocalAlias)
	if !ok {
		return fmt.Errorf("%w: Select does not have joins with next names: %s (local table of join %q)",
			ErrUnknownJoin, j.LocalAlias, j.Name)
	}
	if !local.HasColumn(j.LocalColumn) {
		return fmt.Errorf("%w: column %q does not exist in table structure %s (join %q)",
			ErrUnknownColumn, j.LocalColumn, local, j.Name)
	}
	if !j.Foreign.HasColumn(j.ForeignColumn) {
		return fmt.Errorf("%w: column %q does not exist in table structure %s (join %q)",
			ErrUnknownColumn, j.ForeignColumn, j.Foreign, j.Name)
	}
	c.joins = append(c.joins, j)
	c.joinIndex[j.Name] = j
	return nil
}

func hasManyJoinError(r *Relation) error {
	return fmt.Errorf("%w: relation %q is %s and should not be used as JOIN; select those records separately",
		ErrInvalidJoinKind, r.Name(), r.Kind())
}

// resolvePath walks join path segments from the main table and returns the
// alias and structure reached. With allowCreate, missing joins are created
// from relations.
func (c *compiled) resolvePath(segments []string, allowCreate bool) (string, *TableStructure, error) {
	alias, structure := c.s.tableAlias, c.s.structure
	if len(segments) > 0 && segments[0] == c.s.tableAlias {
		segments = segments[1:]
	}
	for i, segment := range segments {
		relName, joinName := splitJoinSegment(segment)
		if j, ok := c.joinIndex[joinName]; ok {
			if i == 0 || j.LocalAlias == alias {
				if r := j.Relation(); r != nil && relName != joinName && r.Name() != relName {
					return "", nil, fmt.Errorf("%w: join %q is already used for relation %q, not %q",
						ErrDuplicateJoin, joinName, r.Name(), relName)
				}
				alias, structure = j.Name, j.Foreign
				continue
			}
			return "", nil, fmt.Errorf("%w: join name %q is already used for %s.%s; use \"%s as OtherName\" to join it again",
				ErrDuplicateJoin, joinName, j.LocalAlias, j.LocalColumn, relName)
		}

		r, ok := structure.Relation(relName)
		if ok && r.Kind() == HasMany {
			return "", nil, hasManyJoinError(r)
		}
		if !allowCreate {
			names := make([]string, 0, len(segments)-i)
			for _, rest := range segments[i:] {
				_, name := splitJoinSegment(rest)
				names = append(names, name)
			}
			return "", nil, fmt.Errorf("%w: Select does not have joins with next names: %s",
				ErrUnknownJoin, strings.Join(names, ", "))
		}
		if !ok {
			return "", nil, fmt.Errorf("%w: relation %q does not exist in table structure %s (path %q)",
				ErrUnknownRelation, relName, structure, strings.Join(segments[:i+1], "."))
		}
		j := r.ToJoin(alias, joinName)
		if err := c.addJoin(j); err != nil {
			return "", nil, err
		}
		alias, structure = joinName, r.ForeignStructure()
	}
	return alias, structure, nil
}

// resolveColumn renders a column reference. It returns the SQL, the join
// alias the column belongs to and the column.
func (c *compiled) resolveColumn(ref columnRef, allowCreate bool) (string, string, *Column, error) {
	alias, structure, err := c.resolvePath(ref.path, allowCreate)
	if err != nil {
		return "", "", nil, err
	}
	col, ok := structure.Column(ref.name)
	if !ok {
		return "", "", nil, fmt.Errorf("%w: column %q does not exist in table structure %s (join %q, path %q)",
			ErrUnknownColumn, ref.name, structure, alias, ref.describe())
	}
	if col.IsVirtual() {
		return "", "", nil, fmt.Errorf("%w: column %q of table structure %s is virtual and does not exist in the database",
			ErrUnknownColumn, ref.name, structure)
	}
	quoted, err := c.quoteAlias(alias)
	if err != nil {
		return "", "", nil, err
	}
	sql := quoted + "." + c.s.dialect.QuoteIdentifier(col.Name())
	if len(ref.jsonKeys) > 0 {
		extract, vars := c.s.dialect.JSON().Extract(sql, ref.jsonKeys, ref.jsonText)
		sql = InlineArgs(c.s.dialect, extract, vars)
	}
	if ref.cast != "" {
		sql = c.s.dialect.CastExpr(sql, ref.cast)
	}
	return sql, alias, col, nil
}

func (c *compiled) compileColumns(prefix []string, specs []any) error {
	refs, err := parseColumnSpecs(prefix, specs)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		switch ref.kind {
		case refWildcard:
			if err := c.addWildcard(ref); err != nil {
				return err
			}
		case refExpr:
			if err := c.addExpression(ref); err != nil {
				return err
			}
		default:
			sql, alias, _, err := c.resolveColumn(ref, true)
			if err != nil {
				return err
			}
			if err := c.addItem(sql, nil, alias, ref.columnKey()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *compiled) addWildcard(ref columnRef) error {
	alias, structure, err := c.resolvePath(ref.path, true)
	if err != nil {
		return err
	}
	except := make(map[string]bool, len(ref.except))
	for _, name := range ref.except {
		if !structure.HasColumn(name) {
			return fmt.Errorf("%w: excluded column %q does not exist in table structure %s",
				ErrUnknownColumn, name, structure)
		}
		except[name] = true
	}
	for _, col := range structure.WildcardColumns() {
		if except[col.Name()] {
			continue
		}
		colRef := columnRef{path: ref.path, name: col.Name()}
		sql, _, _, err := c.resolveColumn(colRef, true)
		if err != nil {
			return err
		}
		if err := c.addItem(sql, nil, alias, col.Name()); err != nil {
			return err
		}
	}
	return nil
}

func (c *compiled) addExpression(ref columnRef) error {
	alias, _, err := c.resolvePath(ref.path, true)
	if err != nil {
		return err
	}
	sql, args, err := ref.expr.Build(c.builder(true))
	if err != nil {
		return err
	}
	if ref.alias == "" {
		c.items = append(c.items, selectItem{sql: sql, args: args})
		return nil
	}
	return c.addItem(sql, args, alias, ref.alias)
}

func (c *compiled) addItem(sql string, args []any, join, key string) error {
	short, err := c.s.aliases.shorten(columnAlias(join, key))
	if err != nil {
		return err
	}
	item := selectItem{sql: sql, args: args, alias: short, join: join, key: key}
	if prev, ok := c.itemByName[short]; ok {
		if prev.sql == sql && prev.join == join && prev.key == key && reflect.DeepEqual(prev.args, args) {
			return nil
		}
		return fmt.Errorf("%w: %q is selected as both %s and %s", ErrDuplicateAlias, columnAlias(join, key), prev.sql, sql)
	}
	c.itemByName[short] = item
	c.items = append(c.items, item)
	return nil
}

// builder resolves condition column paths for this build.
func (c *compiled) builder(allowCreate bool) clause.Builder {
	return &pathBuilder{c: c, allowCreate: allowCreate}
}

type pathBuilder struct {
	c           *compiled
	allowCreate bool
	// join, when set, makes bare column names refer to the joined table.
	join *Join
}

func (b *pathBuilder) Quote(identifier string) string {
	return b.c.s.dialect.QuoteIdentifier(identifier)
}

func (b *pathBuilder) Column(path string) (string, error) {
	ref, err := parseColumnRef(path)
	if err != nil {
		return "", err
	}
	if ref.kind == refWildcard {
		return "", fmt.Errorf("%w: wildcard %q cannot be used in conditions", ErrInvalidArgumentType, path)
	}
	if b.join != nil && len(ref.path) == 0 {
		ref.path = []string{b.join.Name}
	}
	sql, _, _, err := b.c.resolveColumn(ref, b.allowCreate)
	return sql, err
}

func (c *compiled) compileConditions(conds []clause.Expression) (sq.Sqlizer, error) {
	if len(conds) == 0 {
		return nil, nil
	}
	sql, args, err := clause.Conds(conds).Build(c.builder(true))
	if err != nil {
		return nil, err
	}
	return sq.Expr(sql, args...), nil
}

func (c *compiled) compileGroupBy() error {
	b := c.builder(false)
	for _, col := range c.s.groupBy {
		sql, err := b.Column(col)
		if err != nil {
			return err
		}
		c.groupSQL = append(c.groupSQL, sql)
	}
	return nil
}

func (c *compiled) compileOrderBy() error {
	b := c.builder(false)
	for _, o := range c.s.orderBy {
		if o.expr != nil {
			sql, args, err := o.expr.Build(b)
			if err != nil {
				return err
			}
			c.orderSQL = append(c.orderSQL, sq.Expr(sql, args...))
			continue
		}
		sql, err := b.Column(o.column)
		if err != nil {
			return err
		}
		if o.desc {
			sql += " DESC"
		}
		c.orderSQL = append(c.orderSQL, sq.Expr(sql))
	}
	return nil
}

// compileJoins renders ON clauses once every join is known:
//
//	LEFT JOIN "admins" AS "Parent" ON ("Admins"."parent_id" = "Parent"."id" AND ...)
func (c *compiled) compileJoins() error {
	for _, j := range c.joins {
		local, err := c.quoteAlias(j.LocalAlias)
		if err != nil {
			return err
		}
		foreign, err := c.quoteAlias(j.Name)
		if err != nil {
			return err
		}
		on := local + "." + c.s.dialect.QuoteIdentifier(j.LocalColumn) + " = " +
			foreign + "." + c.s.dialect.QuoteIdentifier(j.ForeignColumn)

		var args []any
		if len(j.Conditions) > 0 {
			b := &pathBuilder{c: c, join: j}
			extra, extraArgs, err := j.Conditions.Build(b)
			if err != nil {
				return fmt.Errorf("join %q: %w", j.Name, err)
			}
			on += " AND " + extra
			args = extraArgs
		}

		joinType := j.Type
		if joinType == "" {
			joinType = LeftJoin
		}
		sql := fmt.Sprintf("%s JOIN %s AS %s ON (%s)", joinType, quoteTable(c.s.dialect, j.Foreign), foreign, on)
		c.joinSQL = append(c.joinSQL, sq.Expr(sql, args...))
	}
	return nil
}

// compileCTEs renders the WITH prefix. CTEs of sub-queries are hoisted
// before the CTE that uses them.
func (c *compiled) compileCTEs() error {
	var (
		ordered   []cte
		seen      = make(map[string]*Select)
		visiting  = make(map[string]*Select)
		recursive bool
	)
	var collect func(list []cte) error
	collect = func(list []cte) error {
		for _, ct := range list {
			prev, ok := seen[ct.name]
			if !ok {
				prev, ok = visiting[ct.name]
			}
			if ok {
				if prev != ct.query {
					return fmt.Errorf("%w: WITH %q is registered with different queries", ErrIllegalState, ct.name)
				}
				// already rendered, or a reference back to the CTE being defined
				continue
			}
			visiting[ct.name] = ct.query
			if err := collect(ct.query.ctes); err != nil {
				return err
			}
			delete(visiting, ct.name)
			seen[ct.name] = ct.query
			ordered = append(ordered, ct)
			recursive = recursive || ct.recursive
		}
		return nil
	}
	if err := collect(c.s.ctes); err != nil {
		return err
	}
	if len(ordered) == 0 {
		return nil
	}

	names := make(map[string]bool, len(ordered))
	for _, ct := range ordered {
		names[ct.name] = true
	}
	var (
		parts []string
		args  []any
	)
	for _, ct := range ordered {
		sub, err := ct.query.compile(buildOptions{cteNames: names})
		if err != nil {
			return fmt.Errorf("WITH %q: %w", ct.name, err)
		}
		sql, subArgs, err := sub.selectBuilder(true).ToSql()
		if err != nil {
			return err
		}
		parts = append(parts, c.s.dialect.QuoteIdentifier(ct.name)+" AS ("+sql+")")
		args = append(args, subArgs...)
	}
	keyword := "WITH "
	if recursive {
		keyword = "WITH RECURSIVE "
	}
	c.prefixSQL = sq.Expr(keyword+strings.Join(parts, ", "), args...)
	return nil
}
