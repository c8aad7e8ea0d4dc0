package ormx

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/arllen133/ormx/clause"
	"github.com/iancoleman/strcase"
)

var columnNameRegexp = regexp.MustCompile(`^[a-z][a-z0-9]*(_[a-z0-9]+)*$`)

// Column describes one table column: its type, flags, default value and the
// relations attached to it.
//
// Columns are configured with a fluent API. Misconfiguration detected by a
// fluent call is recorded and reported by Err and by TableStructure.AddColumn:
//
//	id := ormx.NewColumn("id", ormx.TypeID).PrimaryKey()
//	email := ormx.NewColumn("email", ormx.TypeEmail).Unique()
//	active := ormx.NewColumn("is_active", ormx.TypeBool).Default(true)
//
// A Column is immutable once its table structure is registered and may then
// be shared between goroutines.
type Column struct {
	name     string
	dataType DataType

	isPrimaryKey bool
	isNullable   bool
	isUnique     bool
	isHeavy      bool
	isPrivate    bool
	isReadonly   bool
	isVirtual    bool
	trimValues   bool
	emptyToNull  *bool

	hasDefault         bool
	defaultValue       any
	validDefaultGetter func(fallback any) any

	allowedValues     []any
	allowedValuesFunc func() []any

	relations     []*Relation
	relationNames map[string]*Relation

	behavior  ColumnBehavior
	structure *TableStructure
	errs      []error
}

// NewColumn creates a column of the given type. The name may be empty and
// set later with SetName.
func NewColumn(name string, dataType DataType) *Column {
	c := &Column{
		dataType:      dataType,
		trimValues:    true,
		behavior:      DefaultBehavior{},
		relationNames: make(map[string]*Relation),
	}
	if !dataType.Valid() {
		c.errs = append(c.errs, fmt.Errorf("%w: unknown data type %q", ErrInvalidArgumentType, dataType))
	}
	if name != "" {
		if err := c.SetName(name); err != nil {
			c.errs = append(c.errs, err)
		}
	}
	return c
}

// SetName sets the column name. The name can be set only once.
func (c *Column) SetName(name string) error {
	if c.name != "" {
		return fmt.Errorf("%w: column name alteration forbidden (%q -> %q)", ErrIllegalState, c.name, name)
	}
	if !columnNameRegexp.MatchString(name) {
		return fmt.Errorf("%w: column name %q must be in snake_case (e.g. %q)",
			ErrSchemaDefinition, name, strcase.ToSnake(name))
	}
	c.name = name
	return nil
}

// Name returns the column name, empty if it was never set.
func (c *Column) Name() string { return c.name }

// Type returns the column data type.
func (c *Column) Type() DataType { return c.dataType }

// Err returns the configuration errors recorded by fluent setters.
func (c *Column) Err() error { return errors.Join(c.errs...) }

func (c *Column) PrimaryKey() *Column {
	if c.hasDefault {
		c.errs = append(c.errs, fmt.Errorf("%w: primary key column %q cannot have a default value", ErrSchemaDefinition, c.name))
	}
	c.isPrimaryKey = true
	return c
}

func (c *Column) Nullable() *Column {
	c.isNullable = true
	return c
}

func (c *Column) NotNull() *Column {
	c.isNullable = false
	return c
}

func (c *Column) Unique() *Column {
	c.isUnique = true
	return c
}

// Heavy marks a column that is left out of wildcard selections.
func (c *Column) Heavy() *Column {
	c.isHeavy = true
	return c
}

// Private marks a column that is left out of Record.ToMap unless requested.
func (c *Column) Private() *Column {
	c.isPrivate = true
	return c
}

// Readonly marks a column that accepts values from the database only.
func (c *Column) Readonly() *Column {
	c.isReadonly = true
	return c
}

// Virtual marks a column that exists on records but not in the database.
func (c *Column) Virtual() *Column {
	c.isVirtual = true
	return c
}

// TrimValues toggles whitespace trimming of string values (on by default).
func (c *Column) TrimValues(enabled bool) *Column {
	c.trimValues = enabled
	return c
}

// ConvertEmptyStringToNull toggles conversion of empty strings to NULL.
// By default only nullable columns convert.
func (c *Column) ConvertEmptyStringToNull(enabled bool) *Column {
	c.emptyToNull = &enabled
	return c
}

// WithBehavior replaces the normalization, validation and formatting strategy.
func (c *Column) WithBehavior(b ColumnBehavior) *Column {
	if b == nil {
		c.errs = append(c.errs, fmt.Errorf("%w: nil behavior for column %q", ErrInvalidArgumentType, c.name))
		return c
	}
	c.behavior = b
	return c
}

// Default sets the default value: a literal, a func() any producing one, or
// a clause.Expr evaluated by the database.
func (c *Column) Default(value any) *Column {
	if c.isPrimaryKey {
		c.errs = append(c.errs, fmt.Errorf("%w: primary key column %q cannot have a default value", ErrSchemaDefinition, c.name))
		return c
	}
	c.hasDefault = true
	c.defaultValue = value
	return c
}

// ValidDefaultGetter installs a function computing the default value in
// ValidDefaultValue. It receives the caller supplied fallback.
func (c *Column) ValidDefaultGetter(fn func(fallback any) any) *Column {
	c.validDefaultGetter = fn
	return c
}

func (c *Column) IsPrimaryKey() bool { return c.isPrimaryKey }
func (c *Column) IsNullable() bool   { return c.isNullable }
func (c *Column) IsUnique() bool     { return c.isUnique }
func (c *Column) IsHeavy() bool      { return c.isHeavy }
func (c *Column) IsPrivate() bool    { return c.isPrivate }
func (c *Column) IsReadonly() bool   { return c.isReadonly }
func (c *Column) IsVirtual() bool    { return c.isVirtual }

// Structure returns the table structure the column was added to.
func (c *Column) Structure() *TableStructure { return c.structure }

func (c *Column) convertEmptyToNull() bool {
	if c.emptyToNull != nil {
		return *c.emptyToNull
	}
	return c.isNullable
}

// HasDefaultValue reports whether a default value was configured.
func (c *Column) HasDefaultValue() bool { return c.hasDefault }

// DefaultValueAsIs returns the configured default without resolving it.
func (c *Column) DefaultValueAsIs() (any, error) {
	if !c.hasDefault {
		return nil, fmt.Errorf("%w: column %q has no default value", ErrIllegalState, c.name)
	}
	return c.defaultValue, nil
}

// ValidDefaultValue resolves, normalizes and validates the default value.
//
// The value comes from the valid default getter when one is installed,
// otherwise from the configured default, otherwise from fallback. Database
// expressions are returned without validation.
func (c *Column) ValidDefaultValue(fallback ...any) (any, error) {
	var fb any
	if len(fallback) > 0 {
		fb = fallback[0]
	}

	var (
		value  any
		source string
	)
	switch {
	case c.validDefaultGetter != nil:
		value = c.validDefaultGetter(fb)
		source = "value returned by the valid default getter"
	case c.hasDefault:
		value = c.defaultValue
		if fn, ok := value.(func() any); ok {
			value = fn()
		}
		source = "default value"
	case len(fallback) > 0:
		value = fb
		source = "fallback value"
	default:
		return nil, fmt.Errorf("%w: column %q has no default value", ErrIllegalState, c.name)
	}

	if _, ok := value.(clause.Expr); ok {
		return value, nil
	}
	normalized := c.NormalizeValue(value, false)
	if errs := c.ValidateValue(normalized, false); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s %#v of column %q is not valid: %v", ErrInvalidDefaultValue, source, value, c.name, errs)
	}
	return normalized, nil
}

// SetAllowedValues restricts accepted values, typically for enum columns.
func (c *Column) SetAllowedValues(values ...any) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: allowed values of column %q", ErrEmptyArgument, c.name)
	}
	c.allowedValues = values
	c.allowedValuesFunc = nil
	return nil
}

// SetAllowedValuesFunc installs a function producing the allowed values on demand.
func (c *Column) SetAllowedValuesFunc(fn func() []any) error {
	if fn == nil {
		return fmt.Errorf("%w: allowed values function of column %q", ErrEmptyArgument, c.name)
	}
	c.allowedValuesFunc = fn
	c.allowedValues = nil
	return nil
}

// AllowedValues returns the allowed values, calling the configured function if any.
func (c *Column) AllowedValues() ([]any, error) {
	if c.allowedValuesFunc != nil {
		values := c.allowedValuesFunc()
		if len(values) == 0 {
			return nil, fmt.Errorf("%w: allowed values function of column %q returned no values", ErrInvalidClosureResult, c.name)
		}
		return values, nil
	}
	return c.allowedValues, nil
}

func (c *Column) allowedValuesList() []any {
	values, err := c.AllowedValues()
	if err != nil {
		return nil
	}
	return values
}

// NormalizeValue converts value to its storage form using the column behavior.
func (c *Column) NormalizeValue(value any, isFromDB bool) any {
	return c.behavior.Normalize(c, value, isFromDB)
}

// ValidateValue checks a normalized value and returns validation messages.
func (c *Column) ValidateValue(value any, isFromDB bool) []string {
	return c.behavior.Validate(c, value, isFromDB)
}

// Formats lists the format names accepted by FormatValue.
func (c *Column) Formats() []string { return c.behavior.Formats(c) }

// FormatValue derives a presentation form of value.
func (c *Column) FormatValue(value any, format string) (any, error) {
	return c.behavior.Format(c, value, format)
}

// AddRelation attaches a relation whose local column is this column.
func (c *Column) AddRelation(r *Relation) error {
	if c.name == "" {
		return fmt.Errorf("%w: column name must be set before adding relations", ErrMissingConfiguration)
	}
	if r.Name() == "" {
		return fmt.Errorf("%w: relation name is empty (column %q)", ErrSchemaDefinition, c.name)
	}
	if r.LocalColumnName() != c.name {
		return fmt.Errorf("%w: relation %q is connected to column %q, not to %q",
			ErrSchemaDefinition, r.Name(), r.LocalColumnName(), c.name)
	}
	if _, exists := c.relationNames[r.Name()]; exists {
		return fmt.Errorf("%w: relation %q already exists on column %q", ErrSchemaDefinition, r.Name(), c.name)
	}
	c.relations = append(c.relations, r)
	c.relationNames[r.Name()] = r
	return nil
}

// Relations returns the relations attached to the column in declaration order.
func (c *Column) Relations() []*Relation { return c.relations }

// Relation returns the attached relation with the given name.
func (c *Column) Relation(name string) (*Relation, bool) {
	r, ok := c.relationNames[name]
	return r, ok
}

// IsForeignKey reports whether any attached relation is BELONGS TO.
func (c *Column) IsForeignKey() bool {
	for _, r := range c.relations {
		if r.Kind() == BelongsTo {
			return true
		}
	}
	return false
}
