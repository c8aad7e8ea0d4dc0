package ormx

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/arllen133/ormx/clause"
	"github.com/go-playground/validator/v10"
	"github.com/jinzhu/now"
	"github.com/spf13/cast"
	"golang.org/x/crypto/bcrypt"
)

// Storage layouts used by normalized temporal values.
const (
	DateLayout        = "2006-01-02"
	TimeLayout        = "15:04:05"
	TimestampLayout   = "2006-01-02 15:04:05"
	TimestampTZLayout = "2006-01-02 15:04:05-07:00"
)

// Validation messages produced by DefaultBehavior.
const (
	MsgNullNotAllowed     = "Null value is not allowed"
	MsgNotBool            = "Value must be of a boolean data type"
	MsgNotInt             = "Value must be of an integer data type"
	MsgNotPositiveInt     = "Value must be a positive integer"
	MsgNotFloat           = "Value must be of a numeric data type"
	MsgNotString          = "Value must be a string"
	MsgNotBlob            = "Value must be a binary string"
	MsgNotDate            = "Value must be a valid date"
	MsgNotTime            = "Value must be a valid time"
	MsgNotTimestamp       = "Value must be a valid timestamp"
	MsgNotTimezoneOffset  = "Value must be a valid timezone offset"
	MsgNotIPv4            = "Value must be a valid IPv4 address"
	MsgNotEmail           = "Value must be a valid email"
	MsgNotJSONArray       = "Value must be a JSON array"
	MsgNotJSONObject      = "Value must be a JSON object"
	MsgNotFile            = "Value must be a file descriptor"
	MsgNotImage           = "Value must be an image file descriptor"
	msgValueNotAllowedFmt = "Value is not allowed: %v"
)

// Formats understood by DefaultBehavior.Format.
const (
	FormatDate    = "date"
	FormatTime    = "time"
	FormatUnixTS  = "unix_ts"
	FormatDecoded = "decoded"
)

// ColumnBehavior converts, checks and formats the values of one column.
// A column uses DefaultBehavior unless another strategy is attached with
// Column.WithBehavior.
type ColumnBehavior interface {
	// Normalize converts an incoming value to its storage form. Values that
	// cannot be converted are returned unchanged so Validate can report them.
	Normalize(col *Column, value any, isFromDB bool) any

	// Validate returns human readable messages, empty when the value is valid.
	Validate(col *Column, value any, isFromDB bool) []string

	// Format derives a presentation form of a normalized value.
	Format(col *Column, value any, format string) (any, error)

	// Formats lists the format names accepted by Format for the column.
	Formats(col *Column) []string
}

// DefaultBehavior implements ColumnBehavior for every DataType.
type DefaultBehavior struct{}

var (
	_ ColumnBehavior = DefaultBehavior{}

	valueValidator       = validator.New()
	timezoneOffsetRegexp = regexp.MustCompile(`^[+-](0\d|1[0-4]):[0-5]\d$`)
)

func (DefaultBehavior) Normalize(col *Column, value any, isFromDB bool) any {
	if value == nil {
		return nil
	}
	if _, ok := value.(clause.Expr); ok {
		return value
	}

	switch col.Type() {
	case TypeBool:
		return normalizeBool(value)
	case TypeInt, TypeID:
		if v, err := toInt64(value); err == nil {
			return v
		}
	case TypeFloat:
		if v, err := cast.ToFloat64E(value); err == nil {
			return v
		}
	case TypeString, TypeText, TypeEnum:
		return col.normalizeString(value)
	case TypeEmail:
		v := col.normalizeString(value)
		if s, ok := v.(string); ok {
			return strings.ToLower(s)
		}
		return v
	case TypeIPv4:
		return col.normalizeString(value)
	case TypePassword:
		v := col.normalizeString(value)
		s, ok := v.(string)
		if !ok || isFromDB || s == "" {
			return v
		}
		if _, err := bcrypt.Cost([]byte(s)); err == nil {
			return s
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
		if err != nil {
			return s
		}
		return string(hashed)
	case TypeBlob:
		if s, ok := value.(string); ok {
			return []byte(s)
		}
	case TypeDate:
		if t, ok := parseTime(value); ok {
			return t.Format(DateLayout)
		}
	case TypeTime:
		if t, ok := parseTime(value); ok {
			return t.Format(TimeLayout)
		}
	case TypeTimestamp:
		if t, ok := parseTime(value); ok {
			return t.Format(TimestampLayout)
		}
	case TypeTimestampTZ:
		if t, ok := parseTime(value); ok {
			return t.Format(TimestampTZLayout)
		}
	case TypeTimezoneOffset:
		return normalizeTimezoneOffset(value)
	case TypeJSONArray, TypeJSONObject:
		return normalizeJSON(value)
	}
	return value
}

func (DefaultBehavior) Validate(col *Column, value any, isFromDB bool) []string {
	if value == nil {
		if col.IsNullable() {
			return nil
		}
		return []string{MsgNullNotAllowed}
	}
	if _, ok := value.(clause.Expr); ok {
		return nil
	}

	var errs []string
	switch col.Type() {
	case TypeBool:
		if _, ok := value.(bool); !ok {
			errs = append(errs, MsgNotBool)
		}
	case TypeInt:
		if _, ok := value.(int64); !ok {
			errs = append(errs, MsgNotInt)
		}
	case TypeID:
		v, ok := value.(int64)
		if !ok {
			errs = append(errs, MsgNotInt)
		} else if v <= 0 {
			errs = append(errs, MsgNotPositiveInt)
		}
	case TypeFloat:
		if _, ok := value.(float64); !ok {
			errs = append(errs, MsgNotFloat)
		}
	case TypeString, TypeText, TypePassword, TypeEnum:
		if _, ok := value.(string); !ok {
			errs = append(errs, MsgNotString)
		}
	case TypeBlob:
		if _, ok := value.([]byte); !ok {
			errs = append(errs, MsgNotBlob)
		}
	case TypeEmail:
		if s, ok := value.(string); !ok || valueValidator.Var(s, "email") != nil {
			errs = append(errs, MsgNotEmail)
		}
	case TypeIPv4:
		if s, ok := value.(string); !ok || valueValidator.Var(s, "ipv4") != nil {
			errs = append(errs, MsgNotIPv4)
		}
	case TypeDate:
		errs = append(errs, validateLayout(value, DateLayout, MsgNotDate)...)
	case TypeTime:
		errs = append(errs, validateLayout(value, TimeLayout, MsgNotTime)...)
	case TypeTimestamp:
		errs = append(errs, validateLayout(value, TimestampLayout, MsgNotTimestamp)...)
	case TypeTimestampTZ:
		errs = append(errs, validateLayout(value, TimestampTZLayout, MsgNotTimestamp)...)
	case TypeTimezoneOffset:
		if s, ok := value.(string); !ok || !timezoneOffsetRegexp.MatchString(s) {
			errs = append(errs, MsgNotTimezoneOffset)
		}
	case TypeJSONArray:
		if _, ok := decodeJSONText(value).([]any); !ok {
			errs = append(errs, MsgNotJSONArray)
		}
	case TypeJSONObject:
		if _, ok := decodeJSONText(value).(map[string]any); !ok {
			errs = append(errs, MsgNotJSONObject)
		}
	case TypeFile:
		if !isFileValue(value) {
			errs = append(errs, MsgNotFile)
		}
	case TypeImage:
		if !isFileValue(value) {
			errs = append(errs, MsgNotFile)
		} else if fh, ok := value.(*multipart.FileHeader); ok &&
			!strings.HasPrefix(fh.Header.Get("Content-Type"), "image/") {
			errs = append(errs, MsgNotImage)
		}
	}
	if len(errs) > 0 {
		return errs
	}

	if allowed := col.allowedValuesList(); len(allowed) > 0 && !containsValue(allowed, value) {
		errs = append(errs, fmt.Sprintf(msgValueNotAllowedFmt, value))
	}
	return errs
}

func (DefaultBehavior) Format(col *Column, value any, format string) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch col.Type() {
	case TypeTimestamp, TypeTimestampTZ, TypeDate:
		t, ok := parseTime(value)
		if !ok {
			return nil, fmt.Errorf("%w: value %v of column %q is not a time", ErrInvalidArgumentType, value, col.Name())
		}
		switch {
		case format == FormatUnixTS:
			return t.Unix(), nil
		case format == FormatDate && col.Type() != TypeDate:
			return t.Format(DateLayout), nil
		case format == FormatTime && col.Type() != TypeDate:
			return t.Format(TimeLayout), nil
		}
	case TypeJSONArray, TypeJSONObject:
		if format == FormatDecoded {
			return decodeJSONText(value), nil
		}
	}
	return nil, fmt.Errorf("%w: %q for column %q of type %s", ErrUnknownFormat, format, col.Name(), col.Type())
}

func (DefaultBehavior) Formats(col *Column) []string {
	switch col.Type() {
	case TypeTimestamp, TypeTimestampTZ:
		return []string{FormatDate, FormatTime, FormatUnixTS}
	case TypeDate:
		return []string{FormatUnixTS}
	case TypeJSONArray, TypeJSONObject:
		return []string{FormatDecoded}
	}
	return nil
}

func normalizeBool(value any) any {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "t":
			return true
		case "0", "false", "f":
			return false
		}
		return value
	}
	if i, err := toInt64(value); err == nil {
		switch i {
		case 1:
			return true
		case 0:
			return false
		}
	}
	return value
}

// toInt64 converts integers, integral floats and numeric strings.
func toInt64(value any) (int64, error) {
	switch v := value.(type) {
	case bool:
		return 0, fmt.Errorf("%w: bool is not an integer", ErrInvalidArgumentType)
	case float32, float64:
		f := cast.ToFloat64(v)
		if f != float64(int64(f)) {
			return 0, fmt.Errorf("%w: %v is not integral", ErrInvalidArgumentType, v)
		}
		return int64(f), nil
	case string:
		return cast.ToInt64E(strings.TrimSpace(v))
	}
	return cast.ToInt64E(value)
}

func (c *Column) normalizeString(value any) any {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		s = cast.ToString(v)
	default:
		return value
	}
	if c.trimValues {
		s = strings.TrimSpace(s)
	}
	if s == "" && c.convertEmptyToNull() {
		return nil
	}
	return s
}

func parseTime(value any) (time.Time, bool) {
	switch v := value.(type) {
	case time.Time:
		return v, true
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		return *v, true
	case int, int32, int64, uint32, uint64:
		return time.Unix(cast.ToInt64(v), 0).UTC(), true
	case []byte:
		return parseTime(string(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range []string{TimestampTZLayout, time.RFC3339Nano, TimestampLayout, DateLayout, TimeLayout} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		if t, err := now.ParseInLocation(time.UTC, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func validateLayout(value any, layout, msg string) []string {
	s, ok := value.(string)
	if !ok {
		return []string{msg}
	}
	if _, err := time.Parse(layout, s); err != nil {
		return []string{msg}
	}
	return nil
}

func normalizeTimezoneOffset(value any) any {
	switch v := value.(type) {
	case string:
		s := strings.TrimSpace(v)
		if len(s) == 5 && (s[0] == '+' || s[0] == '-') && !strings.Contains(s, ":") {
			s = s[:3] + ":" + s[3:]
		}
		return s
	case int, int32, int64:
		seconds := cast.ToInt64(v)
		sign := "+"
		if seconds < 0 {
			sign = "-"
			seconds = -seconds
		}
		return fmt.Sprintf("%s%02d:%02d", sign, seconds/3600, (seconds%3600)/60)
	}
	return value
}

func normalizeJSON(value any) any {
	switch v := value.(type) {
	case []byte:
		return normalizeJSON(string(v))
	case string:
		var decoded any
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			return value
		}
		encoded, err := json.Marshal(decoded)
		if err != nil {
			return value
		}
		return string(encoded)
	case json.RawMessage:
		return normalizeJSON(string(v))
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return value
	}
	return string(encoded)
}

func decodeJSONText(value any) any {
	s, ok := value.(string)
	if !ok {
		return nil
	}
	var decoded any
	if err := json.Unmarshal([]byte(s), &decoded); err != nil {
		return nil
	}
	return decoded
}

func isFileValue(value any) bool {
	switch v := value.(type) {
	case *multipart.FileHeader:
		return v != nil
	case string:
		return v != ""
	}
	return false
}

func containsValue(list []any, value any) bool {
	for _, item := range list {
		if reflect.DeepEqual(item, value) || fmt.Sprint(item) == fmt.Sprint(value) {
			return true
		}
	}
	return false
}
