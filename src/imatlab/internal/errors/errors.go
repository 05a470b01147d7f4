package errors

import stderr "errors"

// New returns an error that formats as the given text.
// Each call to New returns a distinct error value even if the text is identical.
func New(msg string) error {
	return stderr.New(msg)
}

var (
	// ErrServerNotRunning reports that the language server process is not running.
	ErrServerNotRunning = New("language server is not running")
	// ErrServerCrashed reports that the language server process died while a read was in flight.
	ErrServerCrashed = New("language server connection closed")
	// ErrRequestTimeout reports that no matching response arrived within the call's bound.
	ErrRequestTimeout = New("timed out waiting for response")
	// ErrResponseError reports that the server answered the request with an error body.
	ErrResponseError = New("server returned an error response")
	// ErrNotReady reports a document operation issued before the initialize exchange completed.
	ErrNotReady = New("language server is not initialized")
	// ErrInstallFailed reports that the language server could not be fetched and built.
	ErrInstallFailed = New("language server installation failed")
	// ErrStopTimeout reports that the server did not exit within the graceful shutdown window.
	ErrStopTimeout = New("language server did not exit gracefully")
	// ErrEngineUnavailable reports that no computation engine handle was supplied.
	ErrEngineUnavailable = New("computation engine is unavailable")
)

// IsSoftFailure reports whether the error is an expected transport or
// protocol failure that degrades to "no result" rather than surfacing to
// the interactive session.
func IsSoftFailure(e error) bool {
	return stderr.Is(e, ErrServerNotRunning) ||
		stderr.Is(e, ErrServerCrashed) ||
		stderr.Is(e, ErrRequestTimeout) ||
		stderr.Is(e, ErrResponseError) ||
		stderr.Is(e, ErrNotReady)
}
