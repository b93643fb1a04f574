package patcher

import (
	"testing"

	"go.uber.org/goleak"
)

// Journals are closed in test cleanups, so database/sql must not leave its
// connection goroutines behind.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
