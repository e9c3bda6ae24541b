package recovery

import (
	"runtime/debug"

	"github.com/vanpelt/catnip-pty/internal/logger"
)

// SafeGo runs a function in a goroutine with automatic panic recovery.
// A panicking PTY pipeline must not take the host process down with it.
func SafeGo(name string, fn func()) {
	go func() {
		defer recoverAndLog(name)
		fn()
	}()
}

// SafeGoWithCleanup runs a function in a goroutine with panic recovery and
// cleanup. cleanup runs whether fn returns normally or panics.
func SafeGoWithCleanup(name string, fn func(), cleanup func()) {
	go func() {
		defer recoverAndLog(name)
		if cleanup != nil {
			defer cleanup()
		}
		fn()
	}()
}

func recoverAndLog(name string) {
	if r := recover(); r != nil {
		logger.Logger.Error().
			Str("goroutine", name).
			Interface("panic", r).
			Str("stack", string(debug.Stack())).
			Msg("🚨 PANIC recovered")
	}
}
