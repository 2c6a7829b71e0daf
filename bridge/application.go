package bridge

import (
	"context"
	"net/http"
	"strconv"
)

// EventKind tells start events from body events.
type EventKind int

const (
	// EventStart carries the status and headers. It must come first, once.
	EventStart EventKind = iota + 1
	// EventBody carries the next chunk of the response body.
	EventBody
)

// String returns "start", "body" or the numeric kind.
func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventBody:
		return "body"
	default:
		return "event(" + strconv.Itoa(int(k)) + ")"
	}
}

// Event is one message from the downstream application.
type Event struct {
	// Kind is EventStart or EventBody
	Kind EventKind
	// Status is the response status, start events only
	Status int
	// Header is the response header, start events only
	Header http.Header
	// Body is the next chunk, body events only. The receiver owns it.
	Body []byte
}

// Emitter hands an event to the caller. It blocks while the event buffer is
// full and fails once the session scope or ctx is done.
type Emitter func(ctx context.Context, ev Event) error

// Application is a downstream application. Serve handles req, reading the
// request body from req.Body, and reports the response through emit: one
// EventStart, then any number of EventBody. A returned error is captured and
// reported to the caller, even after the response has started.
type Application interface {
	Serve(ctx context.Context, req *http.Request, emit Emitter) error
}

// ApplicationFunc adapts a function to the Application interface.
type ApplicationFunc func(ctx context.Context, req *http.Request, emit Emitter) error

// Serve calls f(ctx, req, emit).
func (f ApplicationFunc) Serve(ctx context.Context, req *http.Request, emit Emitter) error {
	return f(ctx, req, emit)
}

// Handler adapts a net/http handler. WriteHeader emits the start event, each
// Write emits a copy of its bytes, and a handler that returns without writing
// anything produces an empty 200 response. Like net/http, the first Write
// without a Content-Type header sniffs one.
func Handler(h http.Handler) Application {
	return ApplicationFunc(func(ctx context.Context, req *http.Request, emit Emitter) error {
		w := &streamWriter{ctx: ctx, emit: emit, header: make(http.Header)}
		h.ServeHTTP(w, req)
		return w.finish()
	})
}

// streamWriter is the http.ResponseWriter handed to adapted handlers.
type streamWriter struct {
	ctx         context.Context
	emit        Emitter
	header      http.Header
	wroteHeader bool
	err         error
}

func (w *streamWriter) Header() http.Header {
	return w.header
}

func (w *streamWriter) WriteHeader(status int) {
	if w.wroteHeader || w.err != nil {
		return
	}
	// Informational responses other than 101 are not forwarded.
	if status >= 100 && status < 200 && status != http.StatusSwitchingProtocols {
		return
	}
	w.wroteHeader = true
	w.err = w.emit(w.ctx, Event{Kind: EventStart, Status: status, Header: w.header.Clone()})
}

func (w *streamWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		if _, ok := w.header["Content-Type"]; !ok && w.header.Get("Transfer-Encoding") == "" && len(p) > 0 {
			w.header.Set("Content-Type", http.DetectContentType(p))
		}
		w.WriteHeader(http.StatusOK)
	}
	if w.err != nil {
		return 0, w.err
	}
	if len(p) == 0 {
		return 0, nil
	}
	chunk := make([]byte, len(p))
	copy(chunk, p)
	if err := w.emit(w.ctx, Event{Kind: EventBody, Body: chunk}); err != nil {
		w.err = err
		return 0, err
	}
	return len(p), nil
}

// Flush sends the start event if it has not been sent yet. Chunks are
// emitted as they are written, so there is nothing else to flush.
func (w *streamWriter) Flush() {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
}

func (w *streamWriter) finish() error {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.err
}
