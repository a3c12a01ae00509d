package waitcond

import (
	"time"

	"github.com/adred-codev/netcore/internal/clock"
)

// timeAfter adapts clock.Timeout to a <-chan struct{} closed signal so
// wait() can select uniformly over wake and timeout channels.
func timeAfter(d clock.Timeout) <-chan struct{} {
	ch := make(chan struct{})
	t := time.NewTimer(d.Duration())
	go func() {
		<-t.C
		close(ch)
	}()
	return ch
}
