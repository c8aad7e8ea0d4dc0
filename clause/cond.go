package clause

import (
	"fmt"
	"reflect"
	"strings"
	"time"
)

// Cond is a keyed condition. The key is a column path optionally followed by
// an operator; "=" is assumed when no operator is given.
//
//	clause.Cond{Key: "id", Value: 1}                   // "Admins"."id" = ?
//	clause.Cond{Key: "Parent.email LIKE", Value: "%@x"} // "Parent"."email" LIKE ?
//	clause.Cond{Key: "id", Value: []int{1, 2}}          // "Admins"."id" IN (?, ?)
//	clause.Cond{Key: "parent_id", Value: nil}           // "Admins"."parent_id" IS NULL
//	clause.Cond{Key: "id >", Value: clause.Col("Parent.id")}
//
// A Cond without key must carry an Expression value.
type Cond struct {
	Key   string
	Value any
}

// C is shorthand for Cond{Key: key, Value: value}.
func C(key string, value any) Cond {
	return Cond{Key: key, Value: value}
}

// operators are matched longest first.
var wordOperators = []string{"NOT BETWEEN", "BETWEEN", "NOT ILIKE", "ILIKE", "NOT LIKE", "LIKE", "NOT IN", "IN", "IS NOT", "IS"}

var symbolOperators = []string{"!=", "<>", ">=", "<=", "@>", "<@", "~*", "=", ">", "<", "~"}

// ParseKey splits a condition key into the column path and the operator.
func ParseKey(key string) (path, op string) {
	key = strings.TrimSpace(key)
	upper := strings.ToUpper(key)
	for _, candidate := range wordOperators {
		if strings.HasSuffix(upper, " "+candidate) {
			return strings.TrimSpace(key[:len(key)-len(candidate)]), candidate
		}
	}
	for _, candidate := range symbolOperators {
		if strings.HasSuffix(key, candidate) && !strings.HasSuffix(key, "-"+candidate) {
			return strings.TrimSpace(key[:len(key)-len(candidate)]), candidate
		}
	}
	return key, "="
}

// Path returns the column path of the key.
func (c Cond) Path() string {
	path, _ := ParseKey(c.Key)
	return path
}

// Operator returns the operator of the key.
func (c Cond) Operator() string {
	_, op := ParseKey(c.Key)
	return op
}

func (c Cond) Build(b Builder) (string, []any, error) {
	if strings.TrimSpace(c.Key) == "" {
		expr, ok := c.Value.(Expression)
		if !ok {
			return "", nil, fmt.Errorf("%w: condition without column must be an expression, got %T (%v)",
				ErrInvalidConditionValue, c.Value, c.Value)
		}
		return expr.Build(b)
	}

	path, op := ParseKey(c.Key)
	ref, err := b.Column(path)
	if err != nil {
		return "", nil, err
	}

	if c.Value == nil {
		switch op {
		case "=", "IS":
			return ref + " IS NULL", nil, nil
		case "!=", "<>", "IS NOT":
			return ref + " IS NOT NULL", nil, nil
		}
		return "", nil, fmt.Errorf("%w: NULL cannot be used with operator %s (key %q)", ErrInvalidConditionValue, op, c.Key)
	}

	switch v := c.Value.(type) {
	case Column:
		rhs, _, err := v.Build(b)
		if err != nil {
			return "", nil, err
		}
		return ref + " " + normalizeOperator(op) + " " + rhs, nil, nil
	case Expression:
		rhs, args, err := buildValue(b, v)
		if err != nil {
			return "", nil, err
		}
		return ref + " " + normalizeOperator(op) + " " + rhs, args, nil
	}

	if values, isList, err := listValues(c.Value); isList {
		if err != nil {
			return "", nil, fmt.Errorf("%w (key %q)", err, c.Key)
		}
		switch op {
		case "=", "IN":
			return buildIn(ref, "IN", values)
		case "!=", "<>", "NOT IN":
			return buildIn(ref, "NOT IN", values)
		case "BETWEEN", "NOT BETWEEN":
			if len(values) != 2 {
				return "", nil, fmt.Errorf("%w: %s expects exactly 2 values, got %d (key %q)",
					ErrInvalidConditionValue, op, len(values), c.Key)
			}
			return ref + " " + op + " ? AND ?", values, nil
		}
		return "", nil, fmt.Errorf("%w: list value cannot be used with operator %s (key %q)", ErrInvalidConditionValue, op, c.Key)
	}

	switch op {
	case "BETWEEN", "NOT BETWEEN":
		return "", nil, fmt.Errorf("%w: %s expects a list of 2 values (key %q)", ErrInvalidConditionValue, op, c.Key)
	case "IN":
		return ref + " = ?", []any{c.Value}, nil
	case "NOT IN":
		return ref + " <> ?", []any{c.Value}, nil
	}
	return ref + " " + normalizeOperator(op) + " ?", []any{c.Value}, nil
}

func normalizeOperator(op string) string {
	if op == "!=" {
		return "<>"
	}
	return op
}

// listValues flattens slices and arrays (except []byte) into []any and checks
// that all elements are scalars of one type.
func listValues(value any) ([]any, bool, error) {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false, nil
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false, nil
	}

	values := make([]any, rv.Len())
	var first reflect.Type
	for i := 0; i < rv.Len(); i++ {
		item := rv.Index(i)
		for item.Kind() == reflect.Interface && !item.IsNil() {
			item = item.Elem()
		}
		if !isScalar(item) {
			return nil, true, fmt.Errorf("%w: list item %d has non-scalar type %s", ErrInvalidConditionValue, i, item.Kind())
		}
		if first == nil {
			first = item.Type()
		} else if item.Type() != first {
			return nil, true, fmt.Errorf("%w: list items have inconsistent types %s and %s",
				ErrInvalidConditionValue, first, item.Type())
		}
		values[i] = item.Interface()
	}
	return values, true, nil
}

var timeType = reflect.TypeOf(time.Time{})

func isScalar(v reflect.Value) bool {
	if !v.IsValid() {
		return false
	}
	switch v.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Struct:
		return v.Type() == timeType
	}
	return false
}

// Conds is an ordered AND group of conditions. Keyed conditions render
// without parentheses, other expressions are parenthesized.
type Conds []Expression

func (cs Conds) Build(b Builder) (string, []any, error) {
	if len(cs) == 0 {
		return "1 = 1", nil, nil
	}
	var (
		parts []string
		args  []any
	)
	for _, expr := range cs {
		sql, exprArgs, err := expr.Build(b)
		if err != nil {
			return "", nil, err
		}
		if _, keyed := expr.(Cond); !keyed {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
		args = append(args, exprArgs...)
	}
	return strings.Join(parts, " AND "), args, nil
}

// Without returns the conditions whose key does not resolve to one of paths.
func (cs Conds) Without(paths ...string) Conds {
	out := make(Conds, 0, len(cs))
next:
	for _, expr := range cs {
		if c, ok := expr.(Cond); ok {
			path, op := ParseKey(c.Key)
			for _, p := range paths {
				if op == "=" && path == p {
					continue next
				}
			}
		}
		out = append(out, expr)
	}
	return out
}
