// This file implements database dialect abstraction to handle SQL differences between databases.
//
// Dialect is responsible for:
//   - Database identification (MySQL, PostgreSQL, SQLite)
//   - Placeholder format (? vs $1, $2)
//   - Identifier and literal quoting
//   - Identifier length limits used by alias shortening
//   - Casts, JSON operators and RETURNING support
//
// Usage example:
//
//	session := ormx.NewSession(db, ormx.PostgreSQL)
//	sel := ormx.NewSelect(admins, session)
package ormx

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	jsonpkg "github.com/arllen133/ormx/field/json"
)

var (
	SQLite     = &SQLiteDialect{}
	MySQL      = &MySQLDialect{}
	PostgreSQL = &PostgreSQLDialect{}

	_ jsonpkg.DialectProvider = Dialect(nil)
)

// Dialect abstracts database-specific SQL features.
type Dialect interface {
	// Name returns the database type name: "mysql", "postgres" or "sqlite3".
	// Used for logging, metrics collection, and driver selection.
	Name() string

	// PlaceholderFormat returns the placeholder format used by the database.
	// Squirrel uses this format to generate parameterized queries.
	PlaceholderFormat() sq.PlaceholderFormat

	// QuoteIdentifier quotes one identifier (table, column or alias).
	QuoteIdentifier(name string) string

	// QuoteValue renders value as an SQL literal.
	QuoteValue(value any) string

	// MaxIdentifierLength is the longest identifier the database accepts.
	MaxIdentifierLength() int

	// CastExpr casts an SQL expression to the given type.
	CastExpr(expr, typ string) string

	// JSON returns the JSON operator dialect.
	JSON() jsonpkg.JSONDialect

	// SupportsReturning reports whether INSERT ... RETURNING is available.
	SupportsReturning() bool
}

// DialectByName returns the dialect for a driver or database name.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "postgres", "postgresql", "pgx":
		return PostgreSQL, nil
	case "mysql":
		return MySQL, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return nil, fmt.Errorf("%w: unsupported dialect %q", ErrInvalidArgumentType, name)
}

// PostgreSQLDialect implements PostgreSQL database dialect.
//
// PostgreSQL features:
//   - Uses $1, $2, $3 as placeholders
//   - Identifiers up to 63 bytes, longer names are silently truncated by the server
//   - :: casts, -> / ->> JSON operators, RETURNING
type PostgreSQLDialect struct{}

func (d *PostgreSQLDialect) Name() string { return "postgres" }

func (d *PostgreSQLDialect) PlaceholderFormat() sq.PlaceholderFormat {
	return sq.Dollar
}

func (d *PostgreSQLDialect) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func (d *PostgreSQLDialect) QuoteValue(value any) string {
	return quoteValue(value, pq.QuoteLiteral, "TRUE", "FALSE")
}

func (d *PostgreSQLDialect) MaxIdentifierLength() int { return 63 }

func (d *PostgreSQLDialect) CastExpr(expr, typ string) string {
	return expr + "::" + typ
}

func (d *PostgreSQLDialect) JSON() jsonpkg.JSONDialect { return jsonpkg.Postgres }

func (d *PostgreSQLDialect) SupportsReturning() bool { return true }

// MySQLDialect implements MySQL database dialect.
//
// MySQL features:
//   - Uses ? as placeholder
//   - Backtick quoted identifiers up to 64 characters
//   - Backslash escapes inside string literals
//   - No RETURNING, inserted ids come from LastInsertId
type MySQLDialect struct{}

func (d *MySQLDialect) Name() string { return "mysql" }

func (d *MySQLDialect) PlaceholderFormat() sq.PlaceholderFormat {
	return sq.Question
}

func (d *MySQLDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d *MySQLDialect) QuoteValue(value any) string {
	return quoteValue(value, func(s string) string {
		s = strings.ReplaceAll(s, `\`, `\\`)
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}, "1", "0")
}

func (d *MySQLDialect) MaxIdentifierLength() int { return 64 }

func (d *MySQLDialect) CastExpr(expr, typ string) string {
	return "CAST(" + expr + " AS " + typ + ")"
}

func (d *MySQLDialect) JSON() jsonpkg.JSONDialect { return jsonpkg.MySQL }

func (d *MySQLDialect) SupportsReturning() bool { return false }

// SQLiteDialect implements SQLite database dialect.
//
// SQLite features:
//   - Uses ? as placeholder
//   - Double quoted identifiers like PostgreSQL
//   - RETURNING requires SQLite 3.35+
//   - Commonly used in testing and development environments
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string { return "sqlite3" }

func (d *SQLiteDialect) PlaceholderFormat() sq.PlaceholderFormat {
	return sq.Question
}

func (d *SQLiteDialect) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func (d *SQLiteDialect) QuoteValue(value any) string {
	return quoteValue(value, func(s string) string {
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}, "1", "0")
}

func (d *SQLiteDialect) MaxIdentifierLength() int { return 63 }

func (d *SQLiteDialect) CastExpr(expr, typ string) string {
	return "CAST(" + expr + " AS " + typ + ")"
}

func (d *SQLiteDialect) JSON() jsonpkg.JSONDialect { return jsonpkg.SQLite }

func (d *SQLiteDialect) SupportsReturning() bool { return true }

func quoteValue(value any, quoteString func(string) string, trueLit, falseLit string) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case bool:
		if v {
			return trueLit
		}
		return falseLit
	case string:
		return quoteString(v)
	case []byte:
		return quoteString(string(v))
	case int:
		return strconv.Itoa(v)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case time.Time:
		return quoteString(v.Format("2006-01-02 15:04:05.999999-07:00"))
	case fmt.Stringer:
		return quoteString(v.String())
	}
	return quoteString(fmt.Sprint(value))
}

// quoteTable renders the quoted, schema qualified table name.
func quoteTable(d Dialect, t *TableStructure) string {
	if t.Schema() != "" {
		return d.QuoteIdentifier(t.Schema()) + "." + d.QuoteIdentifier(t.Name())
	}
	return d.QuoteIdentifier(t.Name())
}

// InlineArgs replaces "?" placeholders outside quoted regions with literals
// rendered by the dialect. The result is meant for logs and inspection, not
// for execution.
func InlineArgs(d Dialect, query string, args []any) string {
	var (
		out     strings.Builder
		argIdx  int
		inQuote byte
	)
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case inQuote != 0:
			out.WriteByte(ch)
			if ch == inQuote {
				inQuote = 0
			}
		case ch == '\'' || ch == '"' || ch == '`':
			inQuote = ch
			out.WriteByte(ch)
		case ch == '?' && argIdx < len(args):
			out.WriteString(d.QuoteValue(args[argIdx]))
			argIdx++
		default:
			out.WriteByte(ch)
		}
	}
	return out.String()
}
