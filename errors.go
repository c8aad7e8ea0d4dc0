// Package ormx maps relational tables to column definitions, tracks per-field
// value state on records and compiles relation-aware SELECT queries.
//
// Errors fall into two families:
//   - programmer and schema errors, returned as wrapped sentinels that work with errors.Is
//   - validation results, which are plain data collected on value containers
//
// Refined sentinels wrap their category, so both checks below succeed:
//
//	errors.Is(err, ormx.ErrUnknownColumn)
//	errors.Is(err, ormx.ErrUnknownReference)
package ormx

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/arllen133/ormx/clause"
)

var (
	// ErrNotFound is returned when a fetch terminal expects a row but none was found.
	ErrNotFound = errors.New("ormx: record not found")

	// ErrSchemaDefinition reports malformed column, relation or table declarations.
	ErrSchemaDefinition = errors.New("ormx: schema definition error")

	// ErrUnknownReference reports a column, relation or join name that cannot be resolved.
	ErrUnknownReference = errors.New("ormx: unknown reference")
	ErrUnknownColumn    = fmt.Errorf("%w: unknown column", ErrUnknownReference)
	ErrUnknownRelation  = fmt.Errorf("%w: unknown relation", ErrUnknownReference)
	ErrUnknownJoin      = fmt.Errorf("%w: unknown join", ErrUnknownReference)
	ErrUnknownFormat    = fmt.Errorf("%w: unknown format", ErrUnknownReference)

	// ErrInvalidJoinKind reports a HAS MANY relation used as a JOIN.
	ErrInvalidJoinKind = errors.New("ormx: invalid join kind")
	ErrDuplicateJoin   = fmt.Errorf("%w: duplicate join", ErrSchemaDefinition)
	ErrDuplicateAlias  = fmt.Errorf("%w: duplicate column alias", ErrSchemaDefinition)

	// ErrValueState reports an illegal operation on a value container for its current state.
	ErrValueState           = errors.New("ormx: illegal value state")
	ErrDuplicateWrite       = fmt.Errorf("%w: duplicate write", ErrValueState)
	ErrValueNotSet          = fmt.Errorf("%w: value is not set", ErrValueState)
	ErrNoOldValue           = fmt.Errorf("%w: old value is not set", ErrValueState)
	ErrInconsistentRawValue = fmt.Errorf("%w: inconsistent raw value", ErrValueState)
	ErrInvalidKeyType       = fmt.Errorf("%w: invalid payload key type", ErrValueState)

	ErrIllegalState          = errors.New("ormx: illegal state")
	ErrMissingConfiguration  = errors.New("ormx: missing configuration")
	ErrInvalidDefaultValue   = errors.New("ormx: invalid default value")
	ErrInvalidArgumentType   = errors.New("ormx: invalid argument type")
	ErrEmptyArgument         = errors.New("ormx: empty argument")
	ErrInvalidClosureResult  = errors.New("ormx: invalid closure result")
	ErrInvalidRelation       = fmt.Errorf("%w: invalid relation", ErrSchemaDefinition)
	ErrInvalidConditionValue = clause.ErrInvalidConditionValue

	// ErrInvalidRecord is wrapped by ValidationError when Save refuses invalid data.
	ErrInvalidRecord = errors.New("ormx: record is not valid")
)

// ValidationError lists validation messages per column for a record that
// cannot be saved.
type ValidationError struct {
	Table  string
	Errors map[string][]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Errors))
	for name := range e.Errors {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Errors[name], ", ")))
	}
	return fmt.Sprintf("%s: table %q: %s", ErrInvalidRecord, e.Table, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidRecord }
