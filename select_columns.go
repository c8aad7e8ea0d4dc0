package ormx

import (
	"fmt"
	"strings"

	"github.com/arllen133/ormx/clause"
)

// RelSpec selects columns of a related table. Nested RelSpecs walk further
// relations. A RelSpec without columns selects all of them.
//
//	sel.Columns("id", ormx.Rel("Parent", "id", "email"))
//	sel.Columns(ormx.Rel("Parent as Creator", ormx.Rel("Parent", "id")))
type RelSpec struct {
	Name    string
	Columns []any
}

// Rel builds a RelSpec. name may carry a join alias: "Parent as Creator".
func Rel(name string, columns ...any) RelSpec {
	return RelSpec{Name: name, Columns: columns}
}

// WildcardSpec expands to every stored, non heavy column except the listed ones.
type WildcardSpec struct {
	Except []string
}

// All selects every stored, non heavy column except the named ones.
func All(except ...string) WildcardSpec {
	return WildcardSpec{Except: except}
}

// RawSpec selects a raw SQL expression, optionally aliased.
type RawSpec struct {
	Expr  clause.Expression
	Alias string
}

// Raw selects an expression under the name chosen by the database.
func Raw(expr clause.Expression) RawSpec { return RawSpec{Expr: expr} }

// RawAs selects an expression under alias.
//
//	sel.Columns(ormx.RawAs(clause.Expr{SQL: `COUNT("Parent"."id")`}, "parents"))
func RawAs(expr clause.Expression, alias string) RawSpec {
	return RawSpec{Expr: expr, Alias: alias}
}

type refKind int

const (
	refColumn refKind = iota
	refWildcard
	refExpr
)

// columnRef is a parsed column specification.
type columnRef struct {
	kind refKind
	// path holds join path segments, each either "Relation" or "Relation as Name".
	path     []string
	name     string
	alias    string
	cast     string
	jsonKeys []string
	jsonText bool
	except   []string
	expr     clause.Expression
}

func (r columnRef) describe() string {
	return strings.Join(append(append([]string{}, r.path...), r.name), ".")
}

// parseColumnSpecs flattens column specifications into refs, prefixing
// every path with prefix.
func parseColumnSpecs(prefix []string, specs []any) ([]columnRef, error) {
	var refs []columnRef
	for _, spec := range specs {
		switch v := spec.(type) {
		case string:
			ref, err := parseColumnRef(v)
			if err != nil {
				return nil, err
			}
			ref.path = append(append([]string{}, prefix...), ref.path...)
			refs = append(refs, ref)
		case []string:
			for _, s := range v {
				nested, err := parseColumnSpecs(prefix, []any{s})
				if err != nil {
					return nil, err
				}
				refs = append(refs, nested...)
			}
		case RelSpec:
			path := append(append([]string{}, prefix...), v.Name)
			if len(v.Columns) == 0 {
				refs = append(refs, columnRef{kind: refWildcard, path: path})
				continue
			}
			nested, err := parseColumnSpecs(path, v.Columns)
			if err != nil {
				return nil, err
			}
			refs = append(refs, nested...)
		case WildcardSpec:
			refs = append(refs, columnRef{kind: refWildcard, path: append([]string{}, prefix...), except: v.Except})
		case RawSpec:
			if v.Expr == nil {
				return nil, fmt.Errorf("%w: raw column without expression", ErrInvalidArgumentType)
			}
			refs = append(refs, columnRef{kind: refExpr, path: append([]string{}, prefix...), expr: v.Expr, alias: v.Alias})
		case clause.Columnar:
			nested, err := parseColumnSpecs(prefix, []any{v.ColumnName()})
			if err != nil {
				return nil, err
			}
			refs = append(refs, nested...)
		case clause.Expression:
			refs = append(refs, columnRef{kind: refExpr, path: append([]string{}, prefix...), expr: v})
		default:
			return nil, fmt.Errorf("%w: unsupported column specification %T (%v)", ErrInvalidArgumentType, spec, spec)
		}
	}
	return refs, nil
}

// parseColumnRef parses the string grammar:
//
//	column                  id
//	column as alias         id as pk
//	path.column             Parent.id, Parent as Creator.Parent.id
//	wildcard                *, Parent.*
//	json selector           data->a->>b
//	cast                    id::text
func parseColumnRef(text string) (columnRef, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return columnRef{}, fmt.Errorf("%w: empty column name", ErrEmptyArgument)
	}

	var ref columnRef
	if idx := lastIndexFold(text, " as "); idx >= 0 {
		if alias := strings.TrimSpace(text[idx+4:]); alias != "" && !strings.Contains(alias, ".") {
			ref.alias = alias
			text = strings.TrimSpace(text[:idx])
		}
	}

	if idx := strings.Index(text, "::"); idx >= 0 {
		ref.cast = strings.TrimSpace(text[idx+2:])
		text = strings.TrimSpace(text[:idx])
		if ref.cast == "" {
			return columnRef{}, fmt.Errorf("%w: empty type cast in %q", ErrInvalidArgumentType, text)
		}
	}

	columnPart := text
	if idx := strings.Index(text, "->"); idx >= 0 {
		columnPart = text[:idx]
		keys, asText, err := parseJSONSelector(text[idx:])
		if err != nil {
			return columnRef{}, err
		}
		ref.jsonKeys, ref.jsonText = keys, asText
	}

	segments := strings.Split(columnPart, ".")
	for i := range segments {
		segments[i] = strings.TrimSpace(segments[i])
		if segments[i] == "" {
			return columnRef{}, fmt.Errorf("%w: empty segment in column path %q", ErrInvalidArgumentType, text)
		}
	}
	ref.path = segments[:len(segments)-1]
	ref.name = segments[len(segments)-1]
	if ref.name == "*" {
		if ref.cast != "" || len(ref.jsonKeys) > 0 || ref.alias != "" {
			return columnRef{}, fmt.Errorf("%w: wildcard %q cannot have alias, cast or json selector", ErrInvalidArgumentType, text)
		}
		ref.kind = refWildcard
	}
	return ref, nil
}

// parseJSONSelector splits "->a->>b" into keys. The selector returns text
// when the last arrow is "->>".
func parseJSONSelector(selector string) ([]string, bool, error) {
	var (
		keys   []string
		asText bool
	)
	for selector != "" {
		switch {
		case strings.HasPrefix(selector, "->>"):
			selector, asText = selector[3:], true
		case strings.HasPrefix(selector, "->"):
			selector, asText = selector[2:], false
		default:
			return nil, false, fmt.Errorf("%w: malformed json selector near %q", ErrInvalidArgumentType, selector)
		}
		end := strings.Index(selector, "->")
		if end < 0 {
			end = len(selector)
		}
		key := strings.Trim(strings.TrimSpace(selector[:end]), `'"`)
		if key == "" {
			return nil, false, fmt.Errorf("%w: empty json key", ErrInvalidArgumentType)
		}
		keys = append(keys, key)
		selector = selector[end:]
	}
	return keys, asText, nil
}

func lastIndexFold(s, substr string) int {
	return strings.LastIndex(strings.ToLower(s), strings.ToLower(substr))
}

// splitJoinSegment splits "Relation as Name" into the relation name and the
// join name.
func splitJoinSegment(segment string) (relation, join string) {
	if idx := lastIndexFold(segment, " as "); idx >= 0 {
		return strings.TrimSpace(segment[:idx]), strings.TrimSpace(segment[idx+4:])
	}
	return segment, segment
}

// columnKey is the row key of a selected column below its join.
func (r columnRef) columnKey() string {
	if r.alias != "" {
		return r.alias
	}
	if len(r.jsonKeys) > 0 {
		return r.name + "_" + strings.Join(r.jsonKeys, "_")
	}
	return r.name
}

// columnAlias is the SQL alias of a selected column: _{JoinName}__{key}.
func columnAlias(joinName, key string) string {
	return "_" + joinName + "__" + key
}
