package field

import (
	"time"

	"github.com/arllen133/ormx/clause"
)

// Time is a handle for date, time and timestamp columns. Records keep these
// as formatted text; Get parses them back into time.Time in UTC.
type Time struct {
	ordered[time.Time]
}

var _ clause.Columnar = Time{}

func NewTime(path string) Time {
	return Time{ordered[time.Time]{handle[time.Time]{clause.Col(path)}}}
}

func (t Time) WithColumn(name string) Time {
	return Time{ordered[time.Time]{handle[time.Time]{t.named(name)}}}
}

func (t Time) WithTable(path string) Time {
	return Time{ordered[time.Time]{handle[time.Time]{t.through(path)}}}
}

// Since creates field >= now - d.
func (t Time) Since(d time.Duration) clause.Expression {
	return t.Gte(time.Now().Add(-d))
}
