package ormx

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSON wraps a Go value stored in a JSON column. It implements sql.Scanner
// and driver.Valuer, and Record.Set accepts it for json_array and
// json_object columns.
//
//	_ = admin.Set("settings", ormx.NewJSON(Settings{Theme: "dark"}))
type JSON[T any] struct {
	Data T
}

func NewJSON[T any](v T) JSON[T] {
	return JSON[T]{Data: v}
}

// Scan implements the sql.Scanner interface.
func (j *JSON[T]) Scan(value any) error {
	var zero T
	var bytes []byte
	switch v := value.(type) {
	case nil:
		j.Data = zero
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("%w: failed to scan JSON: expected []byte or string, got %T", ErrInvalidArgumentType, value)
	}
	if len(bytes) == 0 {
		j.Data = zero
		return nil
	}
	return json.Unmarshal(bytes, &j.Data)
}

// Value implements the driver.Valuer interface.
func (j JSON[T]) Value() (driver.Value, error) {
	return json.Marshal(j.Data)
}

func (j JSON[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(j.Data)
}

func (j *JSON[T]) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &j.Data)
}

// DecodeJSON decodes the JSON value of a column into T. The decoded value is
// cached in the container payload until the column value changes.
//
//	settings, err := ormx.DecodeJSON[Settings](admin, "settings")
func DecodeJSON[T any](r *Record, column string) (T, error) {
	var zero T
	c, err := r.Container(column)
	if err != nil {
		return zero, err
	}
	if !c.Column().Type().IsJSON() {
		return zero, fmt.Errorf("%w: column %q of table structure %s is %s, not JSON",
			ErrInvalidArgumentType, column, r.structure, c.Column().Type())
	}
	value, err := c.Value()
	if err != nil {
		return zero, err
	}
	decoded, err := c.RememberPayload(fmt.Sprintf("json_decoded:%T", zero), func() (any, error) {
		var j JSON[T]
		if err := j.Scan(value); err != nil {
			return nil, fmt.Errorf("column %q of %s: %w", column, r, err)
		}
		return j.Data, nil
	})
	if err != nil {
		return zero, err
	}
	return decoded.(T), nil
}
