// Package clock provides the monotonic clock and deadline primitives
// shared by every blocking operation in the toolkit (queues, requesters,
// sockets, subsystem threads). Timestamp and Timeout are thin wrappers
// over time.Time/time.Duration: the stdlib already gives us a monotonic
// clock and deadline arithmetic, so there is nothing an example repo's
// third-party dependency would improve on here.
package clock

import "time"

// DefaultTimeout is the fallback clock timeout used by a Subsystem when
// none is configured (spec.md §3).
const DefaultTimeout = 100 * time.Millisecond

// Timestamp is a monotonic instant. Always construct it via Now or
// Limit so the monotonic reading from time.Now() is preserved.
type Timestamp struct {
	t time.Time
}

// Now reads the sole clock source.
func Now() Timestamp {
	return Timestamp{t: time.Now()}
}

// IsZero reports whether this is the zero Timestamp (no deadline).
func (ts Timestamp) IsZero() bool {
	return ts.t.IsZero()
}

// Add returns ts + d.
func (ts Timestamp) Add(d Timeout) Timestamp {
	return Timestamp{t: ts.t.Add(d.d)}
}

// Sub returns ts - other as a Timeout. If ts is before other the result
// is clamped to zero: a Timeout is non-negative by definition.
func (ts Timestamp) Sub(other Timestamp) Timeout {
	d := ts.t.Sub(other.t)
	if d < 0 {
		d = 0
	}
	return Timeout{d: d}
}

// Before reports whether ts is strictly before other.
func (ts Timestamp) Before(other Timestamp) bool {
	return ts.t.Before(other.t)
}

// After reports whether ts is strictly after other.
func (ts Timestamp) After(other Timestamp) bool {
	return ts.t.After(other.t)
}

// Expired reports whether ts names an instant that has already passed
// ("a deadline of the past is immediately expired", spec.md §3).
func (ts Timestamp) Expired() bool {
	return !ts.IsZero() && !ts.t.After(time.Now())
}

// Time exposes the underlying time.Time, e.g. for net.Conn deadlines.
func (ts Timestamp) Time() time.Time {
	return ts.t
}

// Timeout is a non-negative duration.
type Timeout struct {
	d time.Duration
}

// FromDuration normalizes d to a non-negative Timeout.
func FromDuration(d time.Duration) Timeout {
	if d < 0 {
		d = 0
	}
	return Timeout{d: d}
}

// Zero is the immediate, non-blocking, single-poll Timeout.
func Zero() Timeout {
	return Timeout{}
}

// IsZero reports whether this Timeout performs a single non-blocking
// poll rather than an actual wait.
func (t Timeout) IsZero() bool {
	return t.d == 0
}

// Duration exposes the underlying time.Duration.
func (t Timeout) Duration() time.Duration {
	return t.d
}

// Limit returns "now + t" — the deadline an operation should observe
// when given a relative Timeout (Timestamp::limit in spec.md §3).
func (t Timeout) Limit() Timestamp {
	return Now().Add(t)
}

// String renders the timeout for logging.
func (t Timeout) String() string {
	return t.d.String()
}
