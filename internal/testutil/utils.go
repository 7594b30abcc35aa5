package testutil

import (
	"log"
	"os"
	"testing"
)

// TestLogger returns a logger for use inside tests. Output goes to stdout
// so go test attributes it to the running test; after the test finishes it
// falls back to stderr in case a leaked goroutine logs late.
func TestLogger(t *testing.T) *log.Logger {
	t.Helper()

	logger := log.New(os.Stdout, "[taskroom-test] ", log.LstdFlags|log.Lmsgprefix)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
	})

	return logger
}
