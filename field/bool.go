package field

import "github.com/arllen133/ormx/clause"

// Bool is a handle for bool columns.
type Bool struct {
	handle[bool]
}

var _ clause.Columnar = Bool{}

func NewBool(path string) Bool {
	return Bool{handle[bool]{clause.Col(path)}}
}

func (b Bool) WithColumn(name string) Bool { return Bool{handle[bool]{b.named(name)}} }

func (b Bool) WithTable(path string) Bool { return Bool{handle[bool]{b.through(path)}} }

// IsTrue creates field = true.
func (b Bool) IsTrue() clause.Expression { return b.Eq(true) }

// IsFalse creates field = false.
func (b Bool) IsFalse() clause.Expression { return b.Eq(false) }
