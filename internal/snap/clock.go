package snap

import "time"

// Clock abstracts time retrieval so capture timestamps are deterministic
// in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Timestamp formats t as the index's captured_at representation: UTC RFC3339.
// The format sorts lexically in chronological order, which the index relies
// on for ORDER BY captured_at.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
