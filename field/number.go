package field

import (
	"github.com/arllen133/ormx/clause"
	"golang.org/x/exp/constraints"
)

// Number is a handle for int, id and float columns. Record values are read
// through a checked conversion, so Number[int32] fails on overflow.
type Number[T constraints.Integer | constraints.Float] struct {
	ordered[T]
}

var _ clause.Columnar = Number[int]{}

// NewNumber returns a handle for a column path such as "id" or "Parent.id".
func NewNumber[T constraints.Integer | constraints.Float](path string) Number[T] {
	return Number[T]{ordered[T]{handle[T]{clause.Col(path)}}}
}

func (n Number[T]) WithColumn(name string) Number[T] {
	return Number[T]{ordered[T]{handle[T]{n.named(name)}}}
}

func (n Number[T]) WithTable(path string) Number[T] {
	return Number[T]{ordered[T]{handle[T]{n.through(path)}}}
}
