package threads

import (
	"time"

	"github.com/adred-codev/netcore/internal/clock"
)

func timeAfter(d clock.Timeout) <-chan struct{} {
	ch := make(chan struct{})
	t := time.NewTimer(d.Duration())
	go func() {
		<-t.C
		close(ch)
	}()
	return ch
}

func sleepFor(d clock.Timeout) {
	if d.Duration() > 0 {
		time.Sleep(d.Duration())
	}
}
