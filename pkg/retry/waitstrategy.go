// Package retry implements the scheduler's WaitStrategy: the policy
// controlling delay between ticks (spec §4.2 step 3, §9 "Backoff").
package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WaitStrategy produces the delay before the scheduler's next tick.
// Success is called only on productive ticks (spec §4.2), so
// implementations that back off on idleness must treat Success as the
// signal to reset.
type WaitStrategy interface {
	WaitForMillis() int64
	Success()
}

// ConstantWaitStrategy always waits the same duration, irrespective of
// whether the previous tick was productive. Useful for tests, where a
// deterministic tick cadence matters more than backoff behavior.
type ConstantWaitStrategy struct {
	Millis int64
}

func (c *ConstantWaitStrategy) WaitForMillis() int64 { return c.Millis }
func (c *ConstantWaitStrategy) Success()             {}

// ExponentialWaitStrategy wraps backoff.ExponentialBackOff: idle ticks
// walk the interval up toward MaxInterval, and Success resets it back
// to InitialInterval so a productive manager stays responsive.
type ExponentialWaitStrategy struct {
	backoff *backoff.ExponentialBackOff
}

// NewExponentialWaitStrategy builds a strategy starting at initial and
// capped at max; WaitForMillis reports the resulting delays in
// milliseconds.
func NewExponentialWaitStrategy(initial, max time.Duration) *ExponentialWaitStrategy {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = max
	b.Reset()
	return &ExponentialWaitStrategy{backoff: b}
}

func (e *ExponentialWaitStrategy) WaitForMillis() int64 {
	d := e.backoff.NextBackOff()
	if d == backoff.Stop {
		d = e.backoff.MaxInterval
	}
	return d.Milliseconds()
}

func (e *ExponentialWaitStrategy) Success() {
	e.backoff.Reset()
}
