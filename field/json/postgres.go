package json

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arllen133/ormx/clause"
)

type postgresDialect struct{}

func (p *postgresDialect) Name() string { return "postgres" }

// Extract chains -> operators, the last one is ->> for text extraction.
func (p *postgresDialect) Extract(column string, keys []string, asText bool) (string, []any) {
	var b strings.Builder
	b.WriteString(column)
	for i, key := range keys {
		if i == len(keys)-1 && asText {
			b.WriteString("->>")
		} else {
			b.WriteString("->")
		}
		b.WriteString(pathKey(key))
	}
	return b.String(), nil
}

func pathKey(key string) string {
	if _, err := strconv.Atoi(key); err == nil {
		return key
	}
	return "'" + strings.ReplaceAll(key, "'", "''") + "'"
}

func (p *postgresDialect) PathEq(column, path string, value any) (string, []any) {
	return fmt.Sprintf("%s #> %s = ?::jsonb", column, formatPath(path)), []any{marshalValue(value)}
}

func (p *postgresDialect) PathNeq(column, path string, value any) (string, []any) {
	return fmt.Sprintf("%s #> %s != ?::jsonb", column, formatPath(path)), []any{marshalValue(value)}
}

func (p *postgresDialect) PathGt(column, path string, value any) (string, []any) {
	return fmt.Sprintf("%s #> %s > ?::jsonb", column, formatPath(path)), []any{marshalValue(value)}
}

func (p *postgresDialect) PathGte(column, path string, value any) (string, []any) {
	return fmt.Sprintf("%s #> %s >= ?::jsonb", column, formatPath(path)), []any{marshalValue(value)}
}

func (p *postgresDialect) PathLt(column, path string, value any) (string, []any) {
	return fmt.Sprintf("%s #> %s < ?::jsonb", column, formatPath(path)), []any{marshalValue(value)}
}

func (p *postgresDialect) PathLte(column, path string, value any) (string, []any) {
	return fmt.Sprintf("%s #> %s <= ?::jsonb", column, formatPath(path)), []any{marshalValue(value)}
}

func formatPath(path string) string {
	keys := SplitPath(path)
	for i, key := range keys {
		keys[i] = strings.ReplaceAll(key, "'", "''")
	}
	return fmt.Sprintf("'{%s}'", strings.Join(keys, ","))
}

func (p *postgresDialect) Contains(column string, value any, path string) (string, []any) {
	if path != "" {
		return fmt.Sprintf("%s #> %s @> ?::jsonb", column, formatPath(path)), []any{marshalValue(value)}
	}
	return fmt.Sprintf("%s @> ?::jsonb", column), []any{marshalValue(value)}
}

func (p *postgresDialect) SetPath(column, path string, value any) clause.Expr {
	return clause.Expr{
		SQL:  fmt.Sprintf("jsonb_set(%s, %s, ?::jsonb)", column, formatPath(path)),
		Vars: []any{marshalValue(value)},
	}
}

func (p *postgresDialect) RemovePath(column, path string) clause.Expr {
	return clause.Expr{
		SQL: fmt.Sprintf("%s #- %s", column, formatPath(path)),
	}
}

func (p *postgresDialect) MergePatch(column string, value any) clause.Expr {
	return clause.Expr{
		SQL:  fmt.Sprintf("%s || ?::jsonb", column),
		Vars: []any{marshalValue(value)},
	}
}
