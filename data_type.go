package ormx

// DataType is the ORM level type of a column. It drives value normalization,
// validation and the formatters a column exposes.
type DataType string

const (
	TypeBool           DataType = "bool"
	TypeInt            DataType = "int"
	TypeFloat          DataType = "float"
	TypeString         DataType = "string"
	TypeText           DataType = "text"
	TypeBlob           DataType = "blob"
	TypeDate           DataType = "date"
	TypeTime           DataType = "time"
	TypeTimestamp      DataType = "timestamp"
	TypeTimestampTZ    DataType = "timestamp_tz"
	TypeTimezoneOffset DataType = "timezone_offset"
	TypeIPv4           DataType = "ipv4"
	TypeEmail          DataType = "email"
	TypeJSONArray      DataType = "json_array"
	TypeJSONObject     DataType = "json_object"
	TypeEnum           DataType = "enum"
	TypeFile           DataType = "file"
	TypeImage          DataType = "image"
	TypePassword       DataType = "password"
	TypeID             DataType = "id"
)

var knownDataTypes = map[DataType]struct{}{
	TypeBool: {}, TypeInt: {}, TypeFloat: {}, TypeString: {}, TypeText: {}, TypeBlob: {},
	TypeDate: {}, TypeTime: {}, TypeTimestamp: {}, TypeTimestampTZ: {}, TypeTimezoneOffset: {},
	TypeIPv4: {}, TypeEmail: {}, TypeJSONArray: {}, TypeJSONObject: {}, TypeEnum: {},
	TypeFile: {}, TypeImage: {}, TypePassword: {}, TypeID: {},
}

// Valid reports whether t is one of the declared data types.
func (t DataType) Valid() bool {
	_, ok := knownDataTypes[t]
	return ok
}

// IsJSON reports whether values of this type are stored as JSON documents.
func (t DataType) IsJSON() bool {
	return t == TypeJSONArray || t == TypeJSONObject
}

// IsStringLike reports whether values of this type are stored as text.
func (t DataType) IsStringLike() bool {
	switch t {
	case TypeString, TypeText, TypeEmail, TypeEnum, TypePassword, TypeIPv4:
		return true
	}
	return false
}
