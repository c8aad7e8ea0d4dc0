package ormx

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
)

// ValueContainer tracks the value of one column of one record.
//
// A container moves through three states:
//
//	empty -> raw value set -> validated (valid or invalid)
//
// A validated container accepts a new raw value; the previous valid value is
// kept as the old value. A raw value that was never validated cannot be
// overwritten.
//
// Containers are owned by their record and are not safe for concurrent use.
type ValueContainer struct {
	column *Column
	record *Record

	rawValue    any
	hasRawValue bool

	value    any
	hasValue bool
	isFromDB bool

	isValidated      bool
	validationErrors []string

	oldValue    any
	hasOldValue bool
	oldIsFromDB bool

	payload map[any]any
}

// NewValueContainer creates an empty container. record may be nil.
func NewValueContainer(col *Column, record *Record) *ValueContainer {
	return &ValueContainer{column: col, record: record}
}

func (c *ValueContainer) Column() *Column { return c.column }

// Record returns the owning record. The container never outlives it.
func (c *ValueContainer) Record() *Record { return c.record }

func (c *ValueContainer) describe() string {
	if c.record != nil {
		return fmt.Sprintf("column %q of record %s", c.column.Name(), c.record)
	}
	return fmt.Sprintf("column %q", c.column.Name())
}

// SetRawValue stores raw input together with its normalized form and resets
// validation state, payload and errors. When a valid value is being replaced
// it becomes the old value.
func (c *ValueContainer) SetRawValue(raw, normalized any, isFromDB bool) error {
	if c.hasRawValue && !c.isValidated {
		return fmt.Errorf("%w: raw value of %s was already set and is not validated yet", ErrDuplicateWrite, c.describe())
	}
	if c.hasValue && c.isValidated && len(c.validationErrors) == 0 {
		c.oldValue = c.value
		c.oldIsFromDB = c.isFromDB
		c.hasOldValue = true
	}
	c.rawValue = raw
	c.hasRawValue = true
	c.value = normalized
	c.hasValue = true
	c.isFromDB = isFromDB
	c.isValidated = false
	c.validationErrors = nil
	c.payload = nil
	return nil
}

// SetValidValue confirms the current raw value as valid. rawEcho must equal
// the stored raw value.
func (c *ValueContainer) SetValidValue(valid, rawEcho any) error {
	if !c.hasRawValue {
		return fmt.Errorf("%w: %#v must be same as current raw value: NULL (%s)", ErrInconsistentRawValue, rawEcho, c.describe())
	}
	if !reflect.DeepEqual(rawEcho, c.rawValue) {
		return fmt.Errorf("%w: %#v must be same as current raw value: %#v (%s)", ErrInconsistentRawValue, rawEcho, c.rawValue, c.describe())
	}
	c.value = valid
	c.hasValue = true
	c.isValidated = true
	c.validationErrors = nil
	return nil
}

// SetValue stores a value that needs no further validation.
func (c *ValueContainer) SetValue(raw, valid any, isFromDB bool) error {
	if err := c.SetRawValue(raw, valid, isFromDB); err != nil {
		return err
	}
	return c.SetValidValue(valid, raw)
}

// SetValidationErrors finishes validation of the current raw value.
func (c *ValueContainer) SetValidationErrors(errs []string) {
	c.validationErrors = slices.Clone(errs)
	c.isValidated = true
}

func (c *ValueContainer) IsValidated() bool { return c.isValidated }

// IsValid reports whether no validation errors are recorded.
func (c *ValueContainer) IsValid() bool { return len(c.validationErrors) == 0 }

func (c *ValueContainer) ValidationErrors() []string { return slices.Clone(c.validationErrors) }

func (c *ValueContainer) HasValue() bool { return c.hasValue }

func (c *ValueContainer) Value() (any, error) {
	if !c.hasValue {
		return nil, fmt.Errorf("%w: %s", ErrValueNotSet, c.describe())
	}
	return c.value, nil
}

func (c *ValueContainer) HasRawValue() bool { return c.hasRawValue }

// RawValue returns the input as it was given to SetRawValue.
func (c *ValueContainer) RawValue() any { return c.rawValue }

func (c *ValueContainer) IsFromDB() bool { return c.isFromDB }

func (c *ValueContainer) HasOldValue() bool { return c.hasOldValue }

func (c *ValueContainer) OldValue() (any, error) {
	if !c.hasOldValue {
		return nil, fmt.Errorf("%w: %s", ErrNoOldValue, c.describe())
	}
	return c.oldValue, nil
}

func (c *ValueContainer) IsOldValueFromDB() (bool, error) {
	if !c.hasOldValue {
		return false, fmt.Errorf("%w: %s", ErrNoOldValue, c.describe())
	}
	return c.oldIsFromDB, nil
}

// IsDefaultValueCanBeSet reports whether the column default may apply. It is
// false once the owning record has a primary key value.
func (c *ValueContainer) IsDefaultValueCanBeSet() bool {
	if c.record == nil {
		return true
	}
	return !c.record.HasPrimaryKeyValue()
}

// HasValueOrDefault reports whether ValueOrDefault would succeed.
func (c *ValueContainer) HasValueOrDefault() bool {
	if c.hasValue {
		return true
	}
	if !c.IsDefaultValueCanBeSet() {
		return false
	}
	_, err := c.column.ValidDefaultValue()
	return err == nil
}

// ValueOrDefault returns the value or the resolved column default. The
// container is not modified.
func (c *ValueContainer) ValueOrDefault() (any, error) {
	if c.hasValue {
		return c.value, nil
	}
	if !c.IsDefaultValueCanBeSet() || !c.hasDefault() {
		return nil, fmt.Errorf("%w: %s", ErrValueNotSet, c.describe())
	}
	return c.column.ValidDefaultValue()
}

func (c *ValueContainer) hasDefault() bool {
	return c.column.HasDefaultValue() || c.column.validDefaultGetter != nil
}

func (c *ValueContainer) checkKey(key any) error {
	switch reflect.ValueOf(key).Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return nil
	}
	return fmt.Errorf("%w: payload key must be a string or an integer, got %T (%s)", ErrInvalidKeyType, key, c.describe())
}

// Payload returns the payload stored under key.
func (c *ValueContainer) Payload(key any) (any, bool, error) {
	if err := c.checkKey(key); err != nil {
		return nil, false, err
	}
	v, ok := c.payload[key]
	return v, ok, nil
}

// AllPayload returns a copy of the payload.
func (c *ValueContainer) AllPayload() map[any]any { return maps.Clone(c.payload) }

// SetPayload replaces the whole payload.
func (c *ValueContainer) SetPayload(data map[any]any) error {
	for key := range data {
		if err := c.checkKey(key); err != nil {
			return err
		}
	}
	c.payload = maps.Clone(data)
	return nil
}

// AddPayload stores one payload entry. The container must hold a value.
func (c *ValueContainer) AddPayload(key, value any) error {
	if err := c.checkKey(key); err != nil {
		return err
	}
	if !c.hasValue {
		return fmt.Errorf("%w: payload cannot be added before a value is set (%s)", ErrIllegalState, c.describe())
	}
	if c.payload == nil {
		c.payload = make(map[any]any)
	}
	c.payload[key] = value
	return nil
}

func (c *ValueContainer) RemovePayload(key any) error {
	if err := c.checkKey(key); err != nil {
		return err
	}
	delete(c.payload, key)
	return nil
}

func (c *ValueContainer) ClearPayload() { c.payload = nil }

// RememberPayload returns the payload under key, calling producer and storing
// its result when the key is absent. Producer errors are not stored.
func (c *ValueContainer) RememberPayload(key any, producer func() (any, error)) (any, error) {
	if err := c.checkKey(key); err != nil {
		return nil, err
	}
	if !c.hasValue {
		return nil, fmt.Errorf("%w: payload cannot be remembered before a value is set (%s)", ErrIllegalState, c.describe())
	}
	if v, ok := c.payload[key]; ok {
		return v, nil
	}
	v, err := producer()
	if err != nil {
		return nil, err
	}
	if c.payload == nil {
		c.payload = make(map[any]any)
	}
	c.payload[key] = v
	return v, nil
}

// Clone copies all mutable state. The column is shared; the record reference
// is kept and must be repointed by the new owner.
func (c *ValueContainer) Clone() *ValueContainer {
	clone := *c
	clone.validationErrors = slices.Clone(c.validationErrors)
	clone.payload = maps.Clone(c.payload)
	return &clone
}

// markFromDB flags the current value as persisted.
func (c *ValueContainer) markFromDB() {
	c.isFromDB = true
}
