package field

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// convert reads a normalized record value as T. Records hold int64 for
// integers, formatted strings for dates and times, and bool for booleans.
func convert[T any](v any) (T, error) {
	if t, ok := v.(T); ok {
		return t, nil
	}
	var (
		zero T
		out  any
		err  error
	)
	switch any(zero).(type) {
	case string:
		out, err = cast.ToStringE(v)
	case bool:
		out, err = cast.ToBoolE(v)
	case time.Time:
		out, err = cast.ToTimeE(v)
	case int:
		out, err = cast.ToIntE(v)
	case int8:
		out, err = cast.ToInt8E(v)
	case int16:
		out, err = cast.ToInt16E(v)
	case int32:
		out, err = cast.ToInt32E(v)
	case int64:
		out, err = cast.ToInt64E(v)
	case uint:
		out, err = cast.ToUintE(v)
	case uint8:
		out, err = cast.ToUint8E(v)
	case uint16:
		out, err = cast.ToUint16E(v)
	case uint32:
		out, err = cast.ToUint32E(v)
	case uint64:
		out, err = cast.ToUint64E(v)
	case float32:
		out, err = cast.ToFloat32E(v)
	case float64:
		out, err = cast.ToFloat64E(v)
	default:
		return zero, fmt.Errorf("cannot read %T as %T", v, zero)
	}
	if err != nil {
		return zero, err
	}
	return out.(T), nil
}
