package ormx

import (
	"fmt"
	"sort"
	"sync"

	"github.com/iancoleman/strcase"
)

// TableStructure is the schema of one table: its columns, primary key and
// relations.
//
// Usage example:
//
//	admins := ormx.NewTableStructure("admins")
//	admins.AddColumn(ormx.NewColumn("id", ormx.TypeID).PrimaryKey())
//	admins.AddColumn(ormx.NewColumn("parent_id", ormx.TypeInt).Nullable())
//	admins.AddRelation(ormx.MustRelation("Parent", "parent_id", ormx.BelongsTo, admins, "id"))
type TableStructure struct {
	name   string
	schema string
	alias  string

	columns     []*Column
	columnIndex map[string]*Column
	primaryKey  *Column

	relations     []*Relation
	relationIndex map[string]*Relation

	hooks hookSet
}

// TableOption configures a TableStructure.
type TableOption func(*TableStructure)

// WithSchema sets the database schema the table lives in.
func WithSchema(schema string) TableOption {
	return func(t *TableStructure) { t.schema = schema }
}

// WithAlias overrides the default table alias used in queries.
func WithAlias(alias string) TableOption {
	return func(t *TableStructure) { t.alias = alias }
}

// NewTableStructure creates an empty structure. The default alias is the
// CamelCase table name ("user_roles" -> "UserRoles").
func NewTableStructure(name string, opts ...TableOption) *TableStructure {
	t := &TableStructure{
		name:          name,
		alias:         strcase.ToCamel(name),
		columnIndex:   make(map[string]*Column),
		relationIndex: make(map[string]*Relation),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *TableStructure) Name() string   { return t.name }
func (t *TableStructure) Schema() string { return t.schema }
func (t *TableStructure) Alias() string  { return t.alias }

func (t *TableStructure) String() string {
	if t.schema != "" {
		return t.schema + "." + t.name
	}
	return t.name
}

// AddColumn registers a column. Configuration errors recorded on the column
// are reported here.
func (t *TableStructure) AddColumn(col *Column) error {
	if col == nil {
		return fmt.Errorf("%w: nil column for table %s", ErrInvalidArgumentType, t)
	}
	if err := col.Err(); err != nil {
		return fmt.Errorf("column %q of table %s: %w", col.Name(), t, err)
	}
	if col.Name() == "" {
		return fmt.Errorf("%w: column without name cannot be added to table %s", ErrMissingConfiguration, t)
	}
	if col.structure != nil && col.structure != t {
		return fmt.Errorf("%w: column %q already belongs to table %s", ErrSchemaDefinition, col.Name(), col.structure)
	}
	if _, exists := t.columnIndex[col.Name()]; exists {
		return fmt.Errorf("%w: duplicate column %q in table %s", ErrSchemaDefinition, col.Name(), t)
	}
	if col.IsPrimaryKey() {
		if t.primaryKey != nil {
			return fmt.Errorf("%w: table %s already has primary key %q, cannot add %q",
				ErrSchemaDefinition, t, t.primaryKey.Name(), col.Name())
		}
		t.primaryKey = col
	}
	col.structure = t
	t.columns = append(t.columns, col)
	t.columnIndex[col.Name()] = col
	return nil
}

// MustAddColumns adds columns and panics on the first error.
func (t *TableStructure) MustAddColumns(cols ...*Column) *TableStructure {
	for _, col := range cols {
		if err := t.AddColumn(col); err != nil {
			panic(err)
		}
	}
	return t
}

// AddRelation attaches a relation to its local column. Relation names are
// unique per table.
func (t *TableStructure) AddRelation(r *Relation) error {
	if r == nil {
		return fmt.Errorf("%w: nil relation for table %s", ErrInvalidArgumentType, t)
	}
	col, ok := t.columnIndex[r.LocalColumnName()]
	if !ok {
		return fmt.Errorf("%w: relation %q refers to column %q that does not exist in table structure %s",
			ErrUnknownColumn, r.Name(), r.LocalColumnName(), t)
	}
	if _, exists := t.relationIndex[r.Name()]; exists {
		return fmt.Errorf("%w: duplicate relation %q in table %s", ErrSchemaDefinition, r.Name(), t)
	}
	if err := col.AddRelation(r); err != nil {
		return err
	}
	r.local = t
	t.relations = append(t.relations, r)
	t.relationIndex[r.Name()] = r
	return nil
}

// MustAddRelations adds relations and panics on the first error.
func (t *TableStructure) MustAddRelations(relations ...*Relation) *TableStructure {
	for _, r := range relations {
		if err := t.AddRelation(r); err != nil {
			panic(err)
		}
	}
	return t
}

func (t *TableStructure) Column(name string) (*Column, bool) {
	col, ok := t.columnIndex[name]
	return col, ok
}

func (t *TableStructure) HasColumn(name string) bool {
	_, ok := t.columnIndex[name]
	return ok
}

// Columns returns all columns in declaration order.
func (t *TableStructure) Columns() []*Column { return t.columns }

// RealColumns returns columns stored in the database.
func (t *TableStructure) RealColumns() []*Column {
	out := make([]*Column, 0, len(t.columns))
	for _, col := range t.columns {
		if !col.IsVirtual() {
			out = append(out, col)
		}
	}
	return out
}

// WildcardColumns returns the columns "*" expands to: stored and not heavy.
func (t *TableStructure) WildcardColumns() []*Column {
	out := make([]*Column, 0, len(t.columns))
	for _, col := range t.columns {
		if !col.IsVirtual() && !col.IsHeavy() {
			out = append(out, col)
		}
	}
	return out
}

// PrimaryKey returns the primary key column, nil when none was declared.
func (t *TableStructure) PrimaryKey() *Column { return t.primaryKey }

func (t *TableStructure) Relation(name string) (*Relation, bool) {
	r, ok := t.relationIndex[name]
	return r, ok
}

// Relations returns relations in declaration order.
func (t *TableStructure) Relations() []*Relation { return t.relations }

// Validate checks that the structure is complete.
func (t *TableStructure) Validate() error {
	if t.name == "" {
		return fmt.Errorf("%w: table name is empty", ErrMissingConfiguration)
	}
	if len(t.columns) == 0 {
		return fmt.Errorf("%w: table %s has no columns", ErrSchemaDefinition, t)
	}
	if t.primaryKey == nil {
		return fmt.Errorf("%w: table %s has no primary key", ErrSchemaDefinition, t)
	}
	return nil
}

// Registry holds table structures keyed by qualified table name. It is built
// once at start-up and passed to the code that needs it.
type Registry struct {
	mu     sync.RWMutex
	tables map[string]*TableStructure
}

func NewRegistry() *Registry {
	return &Registry{tables: make(map[string]*TableStructure)}
}

// Register validates and adds structures. A table can be registered once.
func (r *Registry) Register(structures ...*TableStructure) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range structures {
		if err := t.Validate(); err != nil {
			return err
		}
		key := t.String()
		if _, exists := r.tables[key]; exists {
			return fmt.Errorf("%w: table structure %s is already registered", ErrSchemaDefinition, key)
		}
		r.tables[key] = t
	}
	return nil
}

// Get returns the structure registered under the qualified table name.
func (r *Registry) Get(name string) (*TableStructure, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tables[name]
	return t, ok
}

// MustGet is like Get but panics when the table is unknown.
func (r *Registry) MustGet(name string) *TableStructure {
	t, ok := r.Get(name)
	if !ok {
		panic(fmt.Errorf("%w: table structure %s is not registered", ErrUnknownReference, name))
	}
	return t
}

// Tables returns registered structures sorted by qualified name.
func (r *Registry) Tables() []*TableStructure {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*TableStructure, 0, len(r.tables))
	for _, t := range r.tables {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
