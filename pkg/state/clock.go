package state

import "time"

// Clock provides time for cache validity checks. The default implementation
// uses system time. Tests inject a fake clock via WithClock to control
// freshness deterministically.
type Clock interface {
	Now() time.Time
}

// realClock uses system time.
type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }
