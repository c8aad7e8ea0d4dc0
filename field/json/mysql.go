package json

import (
	"fmt"

	"github.com/arllen133/ormx/clause"
)

type mysqlDialect struct{}

func (m *mysqlDialect) Name() string { return "mysql" }

func (m *mysqlDialect) Extract(column string, keys []string, asText bool) (string, []any) {
	if asText {
		return fmt.Sprintf("JSON_UNQUOTE(JSON_EXTRACT(%s, ?))", column), []any{dollarPath(keys)}
	}
	return fmt.Sprintf("JSON_EXTRACT(%s, ?)", column), []any{dollarPath(keys)}
}

func (m *mysqlDialect) compare(column, path, op string, value any) (string, []any) {
	return fmt.Sprintf("JSON_EXTRACT(%s, ?) %s CAST(? AS JSON)", column, op), []any{dollarPath(SplitPath(path)), marshalValue(value)}
}

func (m *mysqlDialect) PathEq(column, path string, value any) (string, []any) {
	return m.compare(column, path, "=", value)
}

func (m *mysqlDialect) PathNeq(column, path string, value any) (string, []any) {
	return m.compare(column, path, "!=", value)
}

func (m *mysqlDialect) PathGt(column, path string, value any) (string, []any) {
	return m.compare(column, path, ">", value)
}

func (m *mysqlDialect) PathGte(column, path string, value any) (string, []any) {
	return m.compare(column, path, ">=", value)
}

func (m *mysqlDialect) PathLt(column, path string, value any) (string, []any) {
	return m.compare(column, path, "<", value)
}

func (m *mysqlDialect) PathLte(column, path string, value any) (string, []any) {
	return m.compare(column, path, "<=", value)
}

func (m *mysqlDialect) Contains(column string, value any, path string) (string, []any) {
	if path != "" {
		return fmt.Sprintf("JSON_CONTAINS(%s, ?, ?)", column), []any{marshalValue(value), dollarPath(SplitPath(path))}
	}
	return fmt.Sprintf("JSON_CONTAINS(%s, ?)", column), []any{marshalValue(value)}
}

func (m *mysqlDialect) SetPath(column, path string, value any) clause.Expr {
	return clause.Expr{
		SQL:  fmt.Sprintf("JSON_SET(%s, ?, CAST(? AS JSON))", column),
		Vars: []any{dollarPath(SplitPath(path)), marshalValue(value)},
	}
}

func (m *mysqlDialect) RemovePath(column, path string) clause.Expr {
	return clause.Expr{
		SQL:  fmt.Sprintf("JSON_REMOVE(%s, ?)", column),
		Vars: []any{dollarPath(SplitPath(path))},
	}
}

func (m *mysqlDialect) MergePatch(column string, value any) clause.Expr {
	return clause.Expr{
		SQL:  fmt.Sprintf("JSON_MERGE_PATCH(%s, ?)", column),
		Vars: []any{marshalValue(value)},
	}
}
