// Package json renders dialect specific SQL for JSON columns: value
// extraction for selected columns, path comparisons for conditions and
// update expressions for record values.
package json

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/arllen133/ormx/clause"
)

// JSONDialect defines the interface for database-specific JSON operations.
// Each database (MySQL, PostgreSQL, SQLite) implements this interface
// to generate the correct SQL syntax for JSON operations.
//
// The column argument is an already quoted SQL reference such as
// `"Admins"."data"`.
type JSONDialect interface {
	// Name returns the dialect name (e.g., "mysql", "postgres", "sqlite3")
	Name() string

	// Extract renders the value found under keys. When asText is true the
	// value is returned as unquoted text instead of a JSON document.
	Extract(column string, keys []string, asText bool) (sql string, vars []any)

	// PathEq generates SQL for checking if a JSON path equals a value.
	PathEq(column, path string, value any) (sql string, vars []any)

	// PathNeq generates SQL for checking if a JSON path does not equal a value.
	PathNeq(column, path string, value any) (sql string, vars []any)

	// PathGt generates SQL for checking if a JSON path is greater than a value.
	PathGt(column, path string, value any) (sql string, vars []any)

	// PathGte generates SQL for checking if a JSON path is greater than or equal to a value.
	PathGte(column, path string, value any) (sql string, vars []any)

	// PathLt generates SQL for checking if a JSON path is less than a value.
	PathLt(column, path string, value any) (sql string, vars []any)

	// PathLte generates SQL for checking if a JSON path is less than or equal to a value.
	PathLte(column, path string, value any) (sql string, vars []any)

	// Contains generates SQL for checking if JSON contains a value.
	Contains(column string, value any, path string) (sql string, vars []any)

	// SetPath generates SQL for setting a value at a JSON path.
	SetPath(column, path string, value any) clause.Expr

	// RemovePath generates SQL for removing a JSON path.
	RemovePath(column, path string) clause.Expr

	// MergePatch generates SQL for RFC 7396 Merge Patch.
	// (MySQL: JSON_MERGE_PATCH, Postgres: ||, SQLite: json_patch)
	MergePatch(column string, value any) clause.Expr
}

// Dialect instances
var (
	MySQL    JSONDialect = &mysqlDialect{}
	Postgres JSONDialect = &postgresDialect{}
	SQLite   JSONDialect = &sqliteDialect{}
)

var defaultDialect JSONDialect = MySQL

// SetDefaultDialect sets the dialect used by JSONPath shortcuts.
func SetDefaultDialect(d JSONDialect) {
	defaultDialect = d
}

// DefaultDialect returns the current default JSON dialect.
func DefaultDialect() JSONDialect {
	return defaultDialect
}

// DialectByName returns a JSONDialect by its name.
func DialectByName(name string) JSONDialect {
	switch name {
	case "mysql":
		return MySQL
	case "postgres":
		return Postgres
	case "sqlite3", "sqlite":
		return SQLite
	default:
		return MySQL
	}
}

// SplitPath turns "$.a.b", "a.b" or "a" into its keys.
func SplitPath(path string) []string {
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

// dollarPath turns keys into a MySQL/SQLite path: ["a", "0"] -> "$.a[0]".
func dollarPath(keys []string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, key := range keys {
		if _, err := strconv.Atoi(key); err == nil {
			b.WriteString("[" + key + "]")
			continue
		}
		b.WriteString("." + key)
	}
	return b.String()
}

// marshalValue converts a Go value to JSON string for SQL parameters
func marshalValue(v any) string {
	bytes, _ := json.Marshal(v)
	return string(bytes)
}
