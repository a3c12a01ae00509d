package resource

import (
	"testing"

	"github.com/adred-codev/netcore/internal/logging"
)

func TestGuardThresholds(t *testing.T) {
	g := NewGuard(75, 80, 0, logging.Noop())

	g.store(50)
	if g.ShouldRejectConnections() {
		t.Error("50% CPU should not trigger reject at 75% threshold")
	}
	if g.Overloaded() {
		t.Error("50% CPU should not be overloaded at 80% threshold")
	}

	g.store(77)
	if !g.ShouldRejectConnections() {
		t.Error("77% CPU should trigger reject at 75% threshold")
	}
	if g.Overloaded() {
		t.Error("77% CPU should not be overloaded at 80% threshold")
	}

	g.store(90)
	if !g.Overloaded() {
		t.Error("90% CPU should be overloaded at 80% threshold")
	}
}

func TestGuardCurrentPercentReflectsLastSample(t *testing.T) {
	g := NewGuard(75, 80, 0, logging.Noop())
	g.store(42.5)
	if got := g.CurrentPercent(); got != 42.5 {
		t.Errorf("CurrentPercent() = %v, want 42.5", got)
	}
}
