// Package bridge lets a middleware call "the rest of the pipeline" as one
// blocking step, even when the downstream application streams its response.
//
// A [Session] runs the downstream [Application] in a background goroutine
// under an errgroup scope. The application reports its response as events
// over a bounded channel: exactly one [EventStart] with status and headers,
// then zero or more [EventBody] chunks. [Session.CallNext] waits for the start
// event, drains the body in order, and returns a fully buffered
// *http.Response:
//
//	session, err := bridge.Open(r.Context(), bridge.Handler(next))
//	if err != nil {
//	    return err
//	}
//	resp, err := session.CallNext(r.Context(), r)
//
// # Failure modes
//
//   - the application returns before starting a response: its error, or
//     oaserrors.ErrNoResponseReturned when it returned nil
//   - the first event is a body event: *oaserrors.ProtocolError
//   - the application fails or panics after starting: the error is returned
//     once the body has been drained
//   - the body exceeds the cap (10 MiB by default): *oaserrors.ResourceLimitError
//   - no event within the receive timeout, when one is set:
//     *oaserrors.ResourceLimitError
//
// # Teardown
//
// CallNext cancels the scope and waits for the background goroutine before it
// returns, on success and failure alike. [Session.Close] does the same and is
// idempotent, so callers may defer it unconditionally. Once the scope is
// cancelled the emitter fails instead of blocking, so an application that
// honors its context always returns.
package bridge
