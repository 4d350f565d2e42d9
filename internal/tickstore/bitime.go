package tickstore

import "time"

// LatestAsOf is the as-of time meaning "the newest version".
var LatestAsOf = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// BiTimestamp is a bitemporal timestamp combining the as-at date (which
// trading day the data describes) and the as-of time (when this version
// of the data was recorded).
type BiTimestamp struct {
	AsAt time.Time // UTC calendar date
	AsOf time.Time // Version time
}

// NewBiTimestamp returns a BiTimestamp for the given as-at date with the
// as-of time defaulted to LatestAsOf.
func NewBiTimestamp(asAt time.Time) BiTimestamp {
	return BiTimestamp{AsAt: DateOf(asAt), AsOf: LatestAsOf}
}

// WithAsOf returns a copy with the given as-of time.
func (b BiTimestamp) WithAsOf(asOf time.Time) BiTimestamp {
	b.AsOf = asOf
	return b
}

// String formats the pair for logging.
func (b BiTimestamp) String() string {
	return "(" + b.AsAt.Format("2006-01-02") + ", " + b.AsOf.Format(time.RFC3339) + ")"
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
