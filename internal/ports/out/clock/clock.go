package clock

import "time"

// Clock provides time to the application.
// Age, membership status and default receipt ranges all depend on "today", so tests inject a fixed one.
type Clock interface {
	Now() time.Time
}
