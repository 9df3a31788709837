package driver

import "time"

// RealClock is the production Clock: a thin wrapper over time.Now and
// time.Sleep. Tests use a fake, instantly-advancing Clock instead (see
// driver_test.go), which is the entire reason Clock is an interface.
type RealClock struct{}

// NewRealClock returns the wall-clock Clock implementation.
func NewRealClock() RealClock { return RealClock{} }

// Now returns the current wall-clock time.
func (RealClock) Now() time.Time { return time.Now() }

// Sleep blocks for d.
func (RealClock) Sleep(d time.Duration) { time.Sleep(d) }
