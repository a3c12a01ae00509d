package clock

import (
	"testing"
	"time"
)

func TestTimeoutLimitAndExpired(t *testing.T) {
	past := Now()
	if !past.Expired() {
		t.Fatalf("past timestamp should be expired immediately")
	}

	future := FromDuration(50 * time.Millisecond).Limit()
	if future.Expired() {
		t.Fatalf("future timestamp should not be expired yet")
	}
	time.Sleep(60 * time.Millisecond)
	if !future.Expired() {
		t.Fatalf("timestamp should have expired after sleeping past it")
	}
}

func TestTimestampSubClampsToZero(t *testing.T) {
	earlier := Now()
	later := earlier.Add(FromDuration(10 * time.Millisecond))

	d := earlier.Sub(later)
	if d.Duration() != 0 {
		t.Errorf("Sub should clamp negative durations to zero, got %v", d.Duration())
	}

	d2 := later.Sub(earlier)
	if d2.Duration() < 9*time.Millisecond {
		t.Errorf("Sub should report the positive delta, got %v", d2.Duration())
	}
}

func TestFromDurationNormalizesNegative(t *testing.T) {
	if got := FromDuration(-5 * time.Second).Duration(); got != 0 {
		t.Errorf("FromDuration(-5s) = %v, want 0", got)
	}
}

func TestZeroTimeoutIsNonBlockingPoll(t *testing.T) {
	if !Zero().IsZero() {
		t.Errorf("Zero() should report IsZero")
	}
	// A zero timeout's deadline is "now": by the time anyone observes it,
	// it has already elapsed — that's what makes it a single poll.
	if !Zero().Limit().Expired() {
		t.Errorf("Zero().Limit() should already read as expired (single poll semantics)")
	}
}
