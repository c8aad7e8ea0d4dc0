package json

import (
	"fmt"

	"github.com/arllen133/ormx/clause"
)

type sqliteDialect struct{}

func (s *sqliteDialect) Name() string { return "sqlite3" }

// Extract uses json_extract, which already returns SQL scalars for scalar values.
func (s *sqliteDialect) Extract(column string, keys []string, asText bool) (string, []any) {
	return fmt.Sprintf("json_extract(%s, ?)", column), []any{dollarPath(keys)}
}

func (s *sqliteDialect) compare(column, path, op string, value any) (string, []any) {
	return fmt.Sprintf("json_extract(%s, ?) %s json_extract(?, '$')", column, op), []any{dollarPath(SplitPath(path)), marshalValue(value)}
}

func (s *sqliteDialect) PathEq(column, path string, value any) (string, []any) {
	return s.compare(column, path, "=", value)
}

func (s *sqliteDialect) PathNeq(column, path string, value any) (string, []any) {
	return s.compare(column, path, "!=", value)
}

func (s *sqliteDialect) PathGt(column, path string, value any) (string, []any) {
	return s.compare(column, path, ">", value)
}

func (s *sqliteDialect) PathGte(column, path string, value any) (string, []any) {
	return s.compare(column, path, ">=", value)
}

func (s *sqliteDialect) PathLt(column, path string, value any) (string, []any) {
	return s.compare(column, path, "<", value)
}

func (s *sqliteDialect) PathLte(column, path string, value any) (string, []any) {
	return s.compare(column, path, "<=", value)
}

// Contains has no native SQLite counterpart; the value is searched in the
// textual JSON.
func (s *sqliteDialect) Contains(column string, value any, path string) (string, []any) {
	if path != "" {
		return fmt.Sprintf("json_extract(%s, ?) LIKE ?", column), []any{dollarPath(SplitPath(path)), "%" + fmt.Sprint(value) + "%"}
	}
	return fmt.Sprintf("json(%s) LIKE ?", column), []any{"%" + fmt.Sprint(value) + "%"}
}

func (s *sqliteDialect) SetPath(column, path string, value any) clause.Expr {
	return clause.Expr{
		SQL:  fmt.Sprintf("json_set(%s, ?, json(?))", column),
		Vars: []any{dollarPath(SplitPath(path)), marshalValue(value)},
	}
}

func (s *sqliteDialect) RemovePath(column, path string) clause.Expr {
	return clause.Expr{
		SQL:  fmt.Sprintf("json_remove(%s, ?)", column),
		Vars: []any{dollarPath(SplitPath(path))},
	}
}

func (s *sqliteDialect) MergePatch(column string, value any) clause.Expr {
	return clause.Expr{
		SQL:  fmt.Sprintf("json_patch(%s, ?)", column),
		Vars: []any{marshalValue(value)},
	}
}
