package ormx

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/arllen133/ormx/clause"
)

// Record holds the values of one row of a table structure. Every column
// value lives in a ValueContainer created on first use.
//
//	admin := ormx.NewRecord(admins, ormx.WithQuerier(session))
//	_ = admin.Set("email", "Root@Example.com ")
//	err := admin.Save(ctx) // INSERT, email stored as "root@example.com"
//
// Records are not safe for concurrent use.
type Record struct {
	structure *TableStructure
	querier   Querier
	values    map[string]*ValueContainer

	// related caches relation lookups; a nil record means the relation
	// was loaded and is empty.
	related     map[string]*Record
	relatedMany map[string][]*Record
}

type RecordOption func(*Record)

// WithQuerier binds the record to a database for Save, Delete, Reload and
// lazy relation loading.
func WithQuerier(q Querier) RecordOption {
	return func(r *Record) { r.querier = q }
}

func NewRecord(structure *TableStructure, opts ...RecordOption) *Record {
	r := &Record{
		structure:   structure,
		values:      make(map[string]*ValueContainer),
		related:     make(map[string]*Record),
		relatedMany: make(map[string][]*Record),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Record) Structure() *TableStructure { return r.structure }

func (r *Record) Querier() Querier { return r.querier }

// String identifies the record in error messages: admins(id=1) or admins(new).
func (r *Record) String() string {
	pk := r.structure.PrimaryKey()
	if pk == nil || !r.HasPrimaryKeyValue() {
		return r.structure.String() + "(new)"
	}
	v, _ := r.values[pk.Name()].Value()
	return fmt.Sprintf("%s(%s=%v)", r.structure, pk.Name(), v)
}

// Container returns the value container of a column, creating it on first use.
func (r *Record) Container(name string) (*ValueContainer, error) {
	if c, ok := r.values[name]; ok {
		return c, nil
	}
	col, ok := r.structure.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: column %q does not exist in table structure %s", ErrUnknownColumn, name, r.structure)
	}
	c := NewValueContainer(col, r)
	r.values[name] = c
	return c, nil
}

// Set normalizes and validates value and stores it in the column container.
// Invalid values are kept together with their validation errors; Save
// refuses to write them. Database expressions (clause.Expr) are stored as is.
func (r *Record) Set(name string, value any) error {
	c, err := r.Container(name)
	if err != nil {
		return err
	}
	col := c.Column()
	if col.IsReadonly() {
		return fmt.Errorf("%w: column %q of table structure %s is read only", ErrIllegalState, name, r.structure)
	}
	if expr, ok := value.(clause.Expr); ok {
		return c.SetValue(expr, expr, false)
	}

	normalized := col.NormalizeValue(value, false)
	if err := c.SetRawValue(value, normalized, false); err != nil {
		return err
	}
	if errs := col.ValidateValue(normalized, false); len(errs) > 0 {
		c.SetValidationErrors(errs)
		return nil
	}
	return c.SetValidValue(normalized, value)
}

// SetMany calls Set for every entry in column order.
func (r *Record) SetMany(values map[string]any) error {
	for _, name := range sortedKeys(values) {
		if err := r.Set(name, values[name]); err != nil {
			return err
		}
	}
	return nil
}

// SetFromDB loads a row read from the database. Nested maps keyed by a
// relation name populate related records. Unknown keys are ignored.
func (r *Record) SetFromDB(row map[string]any) error {
	for _, name := range sortedKeys(row) {
		value := row[name]
		if nested, ok := value.(map[string]any); ok {
			if err := r.setRelatedFromDB(name, nested); err != nil {
				return err
			}
			continue
		}
		if !r.structure.HasColumn(name) {
			continue
		}
		c, err := r.Container(name)
		if err != nil {
			return err
		}
		normalized := c.Column().NormalizeValue(value, true)
		if err := c.SetValue(value, normalized, true); err != nil {
			return err
		}
	}
	return nil
}

func (r *Record) setRelatedFromDB(name string, row map[string]any) error {
	rel, ok := r.structure.Relation(name)
	if !ok || rel.Kind() == HasMany {
		return nil
	}
	if allNil(row) {
		r.related[name] = nil
		return nil
	}
	related := NewRecord(rel.ForeignStructure(), WithQuerier(r.querier))
	if err := related.SetFromDB(row); err != nil {
		return fmt.Errorf("relation %q: %w", name, err)
	}
	r.related[name] = related
	return nil
}

// Get returns the value of a column or its default.
func (r *Record) Get(name string) (any, error) {
	c, err := r.Container(name)
	if err != nil {
		return nil, err
	}
	return c.ValueOrDefault()
}

// Has reports whether the column holds a value. Defaults are not considered.
func (r *Record) Has(name string) bool {
	c, ok := r.values[name]
	return ok && c.HasValue()
}

func (r *Record) PrimaryKeyValue() (any, error) {
	pk := r.structure.PrimaryKey()
	if pk == nil {
		return nil, fmt.Errorf("%w: table structure %s has no primary key", ErrMissingConfiguration, r.structure)
	}
	c, ok := r.values[pk.Name()]
	if !ok {
		return nil, fmt.Errorf("%w: primary key of %s(new)", ErrValueNotSet, r.structure)
	}
	return c.Value()
}

// HasPrimaryKeyValue reports whether the primary key holds a non NULL value.
func (r *Record) HasPrimaryKeyValue() bool {
	pk := r.structure.PrimaryKey()
	if pk == nil {
		return false
	}
	c, ok := r.values[pk.Name()]
	if !ok || !c.HasValue() {
		return false
	}
	v, _ := c.Value()
	return v != nil
}

// Exists reports whether the record was read from or written to the database.
func (r *Record) Exists() bool {
	if !r.HasPrimaryKeyValue() {
		return false
	}
	return r.values[r.structure.PrimaryKey().Name()].IsFromDB()
}

func (r *Record) IsValid() bool {
	for _, c := range r.values {
		if !c.IsValid() {
			return false
		}
	}
	return true
}

// ValidationErrors returns validation messages per column.
func (r *Record) ValidationErrors() map[string][]string {
	out := make(map[string][]string)
	for name, c := range r.values {
		if errs := c.ValidationErrors(); len(errs) > 0 {
			out[name] = errs
		}
	}
	return out
}

// Changed lists, in column order, the columns holding values that were not
// read from or saved to the database.
func (r *Record) Changed() []string {
	var names []string
	for _, col := range r.structure.Columns() {
		if c, ok := r.values[col.Name()]; ok && c.HasValue() && !c.IsFromDB() {
			names = append(names, col.Name())
		}
	}
	return names
}

// Formatted returns a formatted value of a column. Results are cached in
// the container payload until the value changes.
func (r *Record) Formatted(name, format string) (any, error) {
	c, err := r.Container(name)
	if err != nil {
		return nil, err
	}
	value, err := c.ValueOrDefault()
	if err != nil {
		return nil, err
	}
	produce := func() (any, error) { return c.Column().FormatValue(value, format) }
	if !c.HasValue() {
		return produce()
	}
	return c.RememberPayload("format:"+format, produce)
}

// Related returns the record of a BELONGS TO or HAS ONE relation, loading it
// on first use. ErrNotFound is returned when there is no related row.
func (r *Record) Related(ctx context.Context, name string) (*Record, error) {
	rel, err := r.relation(name)
	if err != nil {
		return nil, err
	}
	if rel.Kind() == HasMany {
		return nil, fmt.Errorf("%w: relation %q is %s; use RelatedMany", ErrInvalidJoinKind, name, rel.Kind())
	}
	if cached, ok := r.related[name]; ok {
		if cached == nil {
			return nil, fmt.Errorf("%w: relation %q of %s", ErrNotFound, name, r)
		}
		return cached, nil
	}

	sel, err := r.relatedSelect(rel)
	if err != nil {
		return nil, err
	}
	related, err := sel.FetchRecord(ctx)
	if errors.Is(err, ErrNotFound) {
		r.related[name] = nil
	}
	if err != nil {
		return nil, err
	}
	r.related[name] = related
	return related, nil
}

// RelatedMany returns the records of a HAS MANY relation, loading them on
// first use.
func (r *Record) RelatedMany(ctx context.Context, name string) ([]*Record, error) {
	rel, err := r.relation(name)
	if err != nil {
		return nil, err
	}
	if rel.Kind() != HasMany {
		return nil, fmt.Errorf("%w: relation %q is %s; use Related", ErrInvalidJoinKind, name, rel.Kind())
	}
	if cached, ok := r.relatedMany[name]; ok {
		return cached, nil
	}
	sel, err := r.relatedSelect(rel)
	if err != nil {
		return nil, err
	}
	records, err := sel.FetchRecords(ctx)
	if err != nil {
		return nil, err
	}
	r.relatedMany[name] = records
	return records, nil
}

func (r *Record) relation(name string) (*Relation, error) {
	rel, ok := r.structure.Relation(name)
	if !ok {
		return nil, fmt.Errorf("%w: relation %q does not exist in table structure %s", ErrUnknownRelation, name, r.structure)
	}
	if r.querier == nil {
		return nil, fmt.Errorf("%w: record %s has no querier", ErrMissingConfiguration, r)
	}
	return rel, nil
}

// relatedSelect selects the rows of rel matching the local column value.
// The relation name is the table alias and the record's own alias is the
// local alias, so relation conditions resolve and filter as in a join.
func (r *Record) relatedSelect(rel *Relation) (*OrmSelect, error) {
	local, err := r.Get(rel.LocalColumnName())
	if err != nil {
		return nil, err
	}
	if local == nil {
		return nil, fmt.Errorf("%w: column %q of %s is NULL (relation %q)", ErrNotFound, rel.LocalColumnName(), r, rel.Name())
	}
	sel := NewOrmSelect(rel.ForeignStructure(), r.querier, WithTableAlias(rel.Name()))
	sel.Where(clause.C(rel.ForeignColumnName(), local))
	if extra := rel.JoinConditions(r.structure.Alias(), rel.Name()); len(extra) > 0 {
		sel.Where(extra...)
	}
	return sel, nil
}

// SetRelated attaches an already loaded related record.
func (r *Record) SetRelated(name string, related *Record) error {
	rel, ok := r.structure.Relation(name)
	if !ok {
		return fmt.Errorf("%w: relation %q does not exist in table structure %s", ErrUnknownRelation, name, r.structure)
	}
	if related != nil && related.structure != rel.ForeignStructure() {
		return fmt.Errorf("%w: relation %q expects a record of %s, got %s",
			ErrInvalidArgumentType, name, rel.ForeignStructure(), related.structure)
	}
	r.related[name] = related
	return nil
}

// ToMap returns column values keyed by name. Without arguments it returns
// every non private column holding a value or default, plus loaded related
// records. Named columns are returned even when private.
func (r *Record) ToMap(columns ...string) (map[string]any, error) {
	out := make(map[string]any)
	if len(columns) > 0 {
		for _, name := range columns {
			v, err := r.Get(name)
			if err != nil {
				return nil, err
			}
			out[name] = v
		}
		return out, nil
	}

	for _, col := range r.structure.Columns() {
		if col.IsPrivate() {
			continue
		}
		c, err := r.Container(col.Name())
		if err != nil {
			return nil, err
		}
		if !c.HasValueOrDefault() {
			continue
		}
		v, err := c.ValueOrDefault()
		if err != nil {
			return nil, err
		}
		out[col.Name()] = v
	}
	for name, related := range r.related {
		if related == nil {
			out[name] = nil
			continue
		}
		m, err := related.ToMap()
		if err != nil {
			return nil, err
		}
		out[name] = m
	}
	return out, nil
}

// Clone returns an independent copy of the record. Related records are shared.
func (r *Record) Clone() *Record {
	clone := NewRecord(r.structure, WithQuerier(r.querier))
	for name, c := range r.values {
		cc := c.Clone()
		cc.record = clone
		clone.values[name] = cc
	}
	for name, related := range r.related {
		clone.related[name] = related
	}
	for name, records := range r.relatedMany {
		clone.relatedMany[name] = records
	}
	return clone
}

// Reset drops all values and cached relations.
func (r *Record) Reset() {
	r.values = make(map[string]*ValueContainer)
	r.related = make(map[string]*Record)
	r.relatedMany = make(map[string][]*Record)
}

func (r *Record) validationError() error {
	errs := r.ValidationErrors()
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Table: r.structure.String(), Errors: errs}
}

// Save inserts a new record or updates the changed columns of an existing
// one, running the create or update hooks around the statement.
func (r *Record) Save(ctx context.Context) error {
	if r.querier == nil {
		return fmt.Errorf("%w: record %s has no querier", ErrMissingConfiguration, r)
	}
	if r.Exists() {
		return r.update(ctx)
	}
	return r.insert(ctx)
}

func (r *Record) insert(ctx context.Context) error {
	hooks := r.structure.hooks
	if err := triggerHooks(ctx, hooks.beforeCreate, r); err != nil {
		return err
	}
	if err := r.validationError(); err != nil {
		return err
	}

	d := r.querier.Dialect()
	pk := r.structure.PrimaryKey()
	var (
		columns []string
		values  []any
		hasExpr bool
	)
	for _, col := range r.structure.RealColumns() {
		c, err := r.Container(col.Name())
		if err != nil {
			return err
		}
		if !c.HasValue() {
			if !c.IsDefaultValueCanBeSet() || !c.hasDefault() {
				continue
			}
			def, err := c.ValueOrDefault()
			if err != nil {
				return err
			}
			if err := c.SetValue(def, def, false); err != nil {
				return err
			}
		}
		v, _ := c.Value()
		if col == pk && v == nil {
			continue
		}
		value, isExpr, err := r.sqlValue(v)
		if err != nil {
			return err
		}
		hasExpr = hasExpr || isExpr
		columns = append(columns, d.QuoteIdentifier(col.Name()))
		values = append(values, value)
	}

	table := quoteTable(d, r.structure)
	build := func(suffix string) execSqlizer {
		if len(columns) == 0 {
			defaults := " DEFAULT VALUES "
			if d.Name() == MySQL.Name() {
				defaults = " () VALUES () "
			}
			return sq.Expr(strings.TrimSpace("INSERT INTO " + table + defaults + suffix))
		}
		b := sq.Insert(table).Columns(columns...).Values(values...)
		if suffix != "" {
			b = b.Suffix(suffix)
		}
		return b
	}

	var id any
	switch {
	case pk != nil && r.HasPrimaryKeyValue():
		id, _ = r.values[pk.Name()].Value()
		if err := r.exec(ctx, build("")); err != nil {
			return err
		}
	case pk != nil && d.SupportsReturning():
		query, args, err := build("RETURNING " + d.QuoteIdentifier(pk.Name())).ToSql()
		if err != nil {
			return err
		}
		if query, err = d.PlaceholderFormat().ReplacePlaceholders(query); err != nil {
			return err
		}
		rows, err := r.querier.QueryMaps(ctx, query, args...)
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			id = rows[0][pk.Name()]
		}
	default:
		query, args, err := build("").ToSql()
		if err != nil {
			return err
		}
		if query, err = d.PlaceholderFormat().ReplacePlaceholders(query); err != nil {
			return err
		}
		res, err := r.querier.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		if pk != nil {
			if id, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("%s: reading inserted primary key: %w", r.structure, err)
			}
		}
	}

	if pk != nil && id != nil {
		c, _ := r.Container(pk.Name())
		if err := c.SetValue(id, pk.NormalizeValue(id, true), true); err != nil {
			return err
		}
	}
	r.markSaved()
	if hasExpr {
		if err := r.Reload(ctx); err != nil {
			return err
		}
	}
	return triggerHooks(ctx, hooks.afterCreate, r)
}

func (r *Record) update(ctx context.Context) error {
	hooks := r.structure.hooks
	if err := triggerHooks(ctx, hooks.beforeUpdate, r); err != nil {
		return err
	}
	if err := r.validationError(); err != nil {
		return err
	}

	changed := r.Changed()
	if len(changed) > 0 {
		d := r.querier.Dialect()
		pk := r.structure.PrimaryKey()
		pkValue, err := r.PrimaryKeyValue()
		if err != nil {
			return err
		}

		b := sq.Update(quoteTable(d, r.structure))
		hasExpr := false
		written := 0
		for _, name := range changed {
			col, _ := r.structure.Column(name)
			if col.IsVirtual() {
				continue
			}
			v, _ := r.values[name].Value()
			value, isExpr, err := r.sqlValue(v)
			if err != nil {
				return err
			}
			hasExpr = hasExpr || isExpr
			b = b.Set(d.QuoteIdentifier(name), value)
			written++
		}
		if written > 0 {
			b = b.Where(sq.Expr(d.QuoteIdentifier(pk.Name())+" = ?", pkValue))
			if err := r.exec(ctx, b); err != nil {
				return err
			}
		}
		r.markSaved()
		if hasExpr {
			if err := r.Reload(ctx); err != nil {
				return err
			}
		}
	}
	return triggerHooks(ctx, hooks.afterUpdate, r)
}

// Delete deletes the record by primary key. The primary key value is
// dropped afterwards so a later Save inserts a new row.
func (r *Record) Delete(ctx context.Context) error {
	if r.querier == nil {
		return fmt.Errorf("%w: record %s has no querier", ErrMissingConfiguration, r)
	}
	if !r.Exists() {
		return fmt.Errorf("%w: record %s does not exist in the database", ErrIllegalState, r)
	}
	hooks := r.structure.hooks
	if err := triggerHooks(ctx, hooks.beforeDelete, r); err != nil {
		return err
	}

	d := r.querier.Dialect()
	pk := r.structure.PrimaryKey()
	pkValue, err := r.PrimaryKeyValue()
	if err != nil {
		return err
	}
	b := sq.Delete(quoteTable(d, r.structure)).Where(sq.Expr(d.QuoteIdentifier(pk.Name())+" = ?", pkValue))
	if err := r.exec(ctx, b); err != nil {
		return err
	}

	delete(r.values, pk.Name())
	for _, c := range r.values {
		c.isFromDB = false
	}
	return triggerHooks(ctx, hooks.afterDelete, r)
}

// Reload reads every stored column of the record again.
func (r *Record) Reload(ctx context.Context) error {
	if r.querier == nil {
		return fmt.Errorf("%w: record %s has no querier", ErrMissingConfiguration, r)
	}
	pkValue, err := r.PrimaryKeyValue()
	if err != nil {
		return err
	}
	columns := make([]any, 0, len(r.structure.RealColumns()))
	for _, col := range r.structure.RealColumns() {
		columns = append(columns, col.Name())
	}
	row, err := NewSelect(r.structure, r.querier).
		Columns(columns...).
		Where(clause.C(r.structure.PrimaryKey().Name(), pkValue)).
		FetchOne(ctx)
	if err != nil {
		return err
	}
	return r.SetFromDB(row)
}

func (r *Record) markSaved() {
	for _, c := range r.values {
		if c.HasValue() && !c.Column().IsVirtual() {
			c.markFromDB()
		}
	}
}

type execSqlizer interface {
	ToSql() (string, []any, error)
}

func (r *Record) exec(ctx context.Context, b execSqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	query, err = r.querier.Dialect().PlaceholderFormat().ReplacePlaceholders(query)
	if err != nil {
		return err
	}
	_, err = r.querier.Exec(ctx, query, args...)
	return err
}

// sqlValue converts a stored value into a statement argument. Expressions
// are rendered with quoted identifiers.
func (r *Record) sqlValue(v any) (any, bool, error) {
	expr, ok := v.(clause.Expr)
	if !ok {
		return v, false, nil
	}
	sql, args, err := expr.Build(identBuilder{d: r.querier.Dialect()})
	if err != nil {
		return nil, false, err
	}
	return sq.Expr(sql, args...), true, nil
}

// identBuilder renders expressions outside of a Select: column paths are
// quoted segment by segment without resolution.
type identBuilder struct {
	d Dialect
}

func (b identBuilder) Column(path string) (string, error) {
	parts := strings.Split(path, ".")
	for i, part := range parts {
		parts[i] = b.d.QuoteIdentifier(part)
	}
	return strings.Join(parts, "."), nil
}

func (b identBuilder) Quote(identifier string) string {
	return b.d.QuoteIdentifier(identifier)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func allNil(row map[string]any) bool {
	for _, v := range row {
		if nested, ok := v.(map[string]any); ok {
			if !allNil(nested) {
				return false
			}
			continue
		}
		if v != nil {
			return false
		}
	}
	return true
}
