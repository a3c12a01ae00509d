package waitcond

import (
	"testing"
	"time"

	"github.com/adred-codev/netcore/internal/clock"
)

func TestWaitDeadlineExpires(t *testing.T) {
	c := NewCond()
	deadline := clock.FromDuration(30 * time.Millisecond).Limit()
	start := time.Now()
	woke := c.WaitDeadline(deadline)
	if woke {
		t.Fatalf("expected WaitDeadline to report timeout, not a wake")
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("WaitDeadline returned too early: %v", elapsed)
	}
}

func TestWakeOneReleasesSingleWaiter(t *testing.T) {
	c := NewCond()
	done := make(chan int, 2)
	for i := 0; i < 2; i++ {
		i := i
		go func() {
			c.Wait()
			done <- i
		}()
	}
	time.Sleep(20 * time.Millisecond) // let both park
	c.WakeOne()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WakeOne did not release any waiter")
	}
	select {
	case <-done:
		t.Fatal("WakeOne released a second waiter")
	case <-time.After(50 * time.Millisecond):
	}
	c.WakeAll()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WakeAll did not release the remaining waiter")
	}
}
