package clock

import "time"

// Clock abstracts time.Now so age-based decisions stay testable.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
