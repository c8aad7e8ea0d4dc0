package ormx

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/spf13/cast"

	"github.com/arllen133/ormx/clause"
)

// TableDescription is the structure of an existing database table.
type TableDescription struct {
	Schema  string
	Name    string
	Columns []ColumnDescription
}

// Column returns the description of a column by name.
func (d *TableDescription) Column(name string) (ColumnDescription, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnDescription{}, false
}

// ColumnDescription is one column of a described table.
type ColumnDescription struct {
	Name         string
	DBType       string
	OrmType      DataType
	Nullable     bool
	IsPrimaryKey bool
	IsUnique     bool
	IsForeignKey bool
	Default      any
	Limit        int64
	Precision    int64
}

// Describer reads table structures from a database.
type Describer interface {
	DescribeTable(ctx context.Context, table, schema string) (*TableDescription, error)
}

// InformationSchemaDescriber describes PostgreSQL and MySQL tables through
// information_schema. An empty schema means "public" on PostgreSQL and the
// current database on MySQL.
type InformationSchemaDescriber struct {
	q Querier
}

var _ Describer = (*InformationSchemaDescriber)(nil)

func NewInformationSchemaDescriber(q Querier) *InformationSchemaDescriber {
	return &InformationSchemaDescriber{q: q}
}

func (d *InformationSchemaDescriber) DescribeTable(ctx context.Context, table, schema string) (*TableDescription, error) {
	if table == "" {
		return nil, fmt.Errorf("%w: table name", ErrEmptyArgument)
	}
	dialect := d.q.Dialect()
	if dialect.Name() == SQLite.Name() {
		return nil, fmt.Errorf("%w: %s has no information_schema", ErrMissingConfiguration, dialect.Name())
	}
	if schema == "" && dialect.Name() == PostgreSQL.Name() {
		schema = "public"
	}

	columnsQuery := sq.Select(
		"column_name AS column_name",
		"data_type AS data_type",
		"is_nullable AS is_nullable",
		"column_default AS column_default",
		"character_maximum_length AS char_length",
		"numeric_precision AS num_precision",
	).
		From("information_schema.columns").
		Where(schemaFilter("table_schema", schema)).
		Where(sq.Eq{"table_name": table}).
		OrderBy("ordinal_position")
	rows, err := d.query(ctx, columnsQuery)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: table %q does not exist", ErrNotFound, table)
	}

	constraintsQuery := sq.Select("kcu.column_name AS column_name", "tc.constraint_type AS constraint_type").
		From("information_schema.table_constraints tc").
		Join("information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name" +
			" AND tc.table_schema = kcu.table_schema AND tc.table_name = kcu.table_name").
		Where(schemaFilter("tc.table_schema", schema)).
		Where(sq.Eq{"tc.table_name": table})
	constraints, err := d.query(ctx, constraintsQuery)
	if err != nil {
		return nil, err
	}
	kinds := make(map[string]map[string]bool)
	for _, row := range constraints {
		name := cast.ToString(row["column_name"])
		if kinds[name] == nil {
			kinds[name] = make(map[string]bool)
		}
		kinds[name][strings.ToUpper(cast.ToString(row["constraint_type"]))] = true
	}

	desc := &TableDescription{Schema: schema, Name: table}
	for _, row := range rows {
		name := cast.ToString(row["column_name"])
		dbType := cast.ToString(row["data_type"])
		col := ColumnDescription{
			Name:         name,
			DBType:       dbType,
			OrmType:      DataTypeFromDB(dbType),
			Nullable:     strings.EqualFold(cast.ToString(row["is_nullable"]), "YES"),
			IsPrimaryKey: kinds[name]["PRIMARY KEY"],
			IsUnique:     kinds[name]["UNIQUE"],
			IsForeignKey: kinds[name]["FOREIGN KEY"],
			Default:      row["column_default"],
			Limit:        cast.ToInt64(row["char_length"]),
			Precision:    cast.ToInt64(row["num_precision"]),
		}
		if col.IsPrimaryKey && col.OrmType == TypeInt {
			col.OrmType = TypeID
		}
		desc.Columns = append(desc.Columns, col)
	}
	return desc, nil
}

func schemaFilter(column, schema string) sq.Sqlizer {
	if schema == "" {
		return sq.Expr(column + " = DATABASE()")
	}
	return sq.Eq{column: schema}
}

func (d *InformationSchemaDescriber) query(ctx context.Context, b sq.SelectBuilder) ([]map[string]any, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	if query, err = d.q.Dialect().PlaceholderFormat().ReplacePlaceholders(query); err != nil {
		return nil, err
	}
	return d.q.QueryMaps(ctx, query, args...)
}

// DataTypeFromDB maps a database column type to the closest DataType.
func DataTypeFromDB(dbType string) DataType {
	t := strings.ToLower(strings.TrimSpace(dbType))
	switch {
	case t == "boolean" || t == "bool" || t == "tinyint(1)":
		return TypeBool
	case strings.Contains(t, "int") || strings.Contains(t, "serial"):
		return TypeInt
	case strings.HasPrefix(t, "numeric"), strings.HasPrefix(t, "decimal"), t == "real",
		strings.HasPrefix(t, "double"), strings.HasPrefix(t, "float"):
		return TypeFloat
	case strings.HasPrefix(t, "timestamp with time zone"), t == "timestamptz":
		return TypeTimestampTZ
	case strings.HasPrefix(t, "timestamp"), strings.HasPrefix(t, "datetime"):
		return TypeTimestamp
	case t == "date":
		return TypeDate
	case strings.HasPrefix(t, "time"):
		return TypeTime
	case t == "json" || t == "jsonb":
		return TypeJSONObject
	case t == "bytea" || strings.Contains(t, "blob") || strings.Contains(t, "binary"):
		return TypeBlob
	case strings.Contains(t, "text"):
		return TypeText
	case t == "inet":
		return TypeIPv4
	case strings.HasPrefix(t, "enum"), t == "user-defined":
		return TypeEnum
	}
	return TypeString
}

// AddMissingColumns declares the described columns the structure does not
// have yet and returns their names. Database defaults are kept as
// expressions evaluated by the database.
func (t *TableStructure) AddMissingColumns(desc *TableDescription) ([]string, error) {
	var added []string
	for _, cd := range desc.Columns {
		if t.HasColumn(cd.Name) {
			continue
		}
		col := NewColumn(cd.Name, cd.OrmType)
		switch {
		case cd.IsPrimaryKey:
			col.PrimaryKey()
		case cd.Default != nil:
			col.Default(clause.Expr{SQL: cast.ToString(cd.Default)})
		}
		if cd.Nullable {
			col.Nullable()
		}
		if cd.IsUnique {
			col.Unique()
		}
		if err := t.AddColumn(col); err != nil {
			return added, err
		}
		added = append(added, cd.Name)
	}
	return added, nil
}
