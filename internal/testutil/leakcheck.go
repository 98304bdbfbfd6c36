// Package testutil provides testing utilities shared by the tunehub packages.
package testutil

import (
	"testing"

	"go.uber.org/goleak"
)

// VerifyNoLeaks should be deferred at the start of tests that spawn goroutines.
// It verifies that no goroutines were leaked during the test.
func VerifyNoLeaks(t *testing.T, opts ...goleak.Option) {
	t.Helper()
	goleak.VerifyNone(t, opts...)
}

// IgnoreBackgroundGoroutines returns goleak options for long-lived goroutines started by
// third-party packages: the fyne test app, the sqlite driver and the ccache workers.
func IgnoreBackgroundGoroutines() []goleak.Option {
	return []goleak.Option{
		goleak.IgnoreAnyFunction("fyne.io/fyne/v2"),
		goleak.IgnoreTopFunction("github.com/karlseguin/ccache/v3.(*Cache[...]).worker"),
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	}
}
