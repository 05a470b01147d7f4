// Package engine defines the call surface the kernel consumes from the
// remote MATLAB computation engine. The engine itself is a separate,
// stateful process reached through an RPC-like handle owned by the
// embedding front-end; this package only models that handle.
package engine

import "time"

//go:generate mockgen -source=engine.go -destination=enginemock/mock_engine.go -package=enginemock

// Future is a remote-call result placeholder with a non-blocking completion
// check and bounded-wait retrieval.
type Future interface {
	// Done reports whether the remote call has completed.
	Done() bool
	// Result blocks up to timeout for the call's result. A zero timeout
	// waits only for an already-completed result.
	Result(timeout time.Duration) (interface{}, error)
	// Cancel requests cancellation of the remote call.
	Cancel() error
}

// Engine is the remote computation engine handle.
type Engine interface {
	// Call invokes the named engine function synchronously.
	Call(name string, args ...interface{}) (interface{}, error)
	// CallAsync invokes the named engine function in the background,
	// returning a future handle for its completion.
	CallAsync(name string, args ...interface{}) (Future, error)
	// IsInDebugMode reports whether the engine has entered its nested
	// interactive debugger sub-mode.
	IsInDebugMode() (bool, error)
}
