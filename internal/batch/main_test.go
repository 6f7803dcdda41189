package batch

import (
	"testing"

	"go.uber.org/goleak"
)

// The orchestrator drives retry timers and usage tracking; make sure no
// test leaves a goroutine behind.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
