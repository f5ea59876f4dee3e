package clock

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock provides the current time. Engine code only ever asks for Now, so any
// clockwork.Clock satisfies it and the scheduler can share the same instance.
type Clock interface {
	Now() time.Time
}

// New returns the system clock
func New() clockwork.Clock {
	return clockwork.NewRealClock()
}

// Ensure the system clock satisfies Clock
var _ Clock = clockwork.NewRealClock()
