package bridge

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/erraggy/oasgate/adapter"
	"github.com/erraggy/oasgate/internal/httputil"
	"github.com/erraggy/oasgate/logging"
	"github.com/erraggy/oasgate/oaserrors"
)

var (
	// ErrSessionUsed is returned when a session is asked to run the
	// downstream application a second time.
	ErrSessionUsed = errors.New("bridge: session already used")

	// ErrSessionClosed is returned when a closed session is asked to run the
	// downstream application.
	ErrSessionClosed = errors.New("bridge: session closed")
)

// Session runs the downstream application for one exchange.
//
// The application runs in a single background goroutine inside the session
// scope and hands its events over a bounded channel. The producer closes the
// channel exactly once on every exit path, after recording any error or
// panic, so the consumer sees the captured error once the channel is closed
// without further locking. A Session is used once and then closed.
type Session struct {
	app    Application
	cfg    *config
	logger logging.Logger

	scope  context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	events chan Event
	appErr error // written by the producer before events is closed

	started   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
}

// Open prepares a session for app. The session scope derives from ctx:
// cancelling ctx cancels the downstream application.
func Open(ctx context.Context, app Application, opts ...Option) (*Session, error) {
	if app == nil {
		return nil, &oaserrors.ConfigError{Option: "application", Message: "application cannot be nil"}
	}
	cfg, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	scope, cancel := context.WithCancel(ctx)
	group, scope := errgroup.WithContext(scope)
	return &Session{
		app:    app,
		cfg:    cfg,
		logger: cfg.logger,
		scope:  scope,
		cancel: cancel,
		group:  group,
		events: make(chan Event, cfg.bufferSize),
	}, nil
}

// CallNext runs the downstream application on req and aggregates its
// response into one in-memory *http.Response.
//
// It fails when the application ends without starting a response (with the
// application's error, or oaserrors.ErrNoResponseReturned), when the first
// event is not a start event (*oaserrors.ProtocolError), and when the
// application reports an error after starting the response; in that case the
// body is drained first. The session is closed before CallNext returns.
func (s *Session) CallNext(ctx context.Context, req *http.Request) (*http.Response, error) {
	defer func() { _ = s.Close() }()

	stream, err := s.Stream(ctx, req)
	if err != nil {
		return nil, err
	}
	body, err := stream.ReadAll(ctx)
	if err != nil {
		return nil, err
	}
	header := stream.Header()
	declared := header.Get("Content-Length")
	resp := adapter.NewResponse(stream.Status(), header, body)
	if req.Method == http.MethodHead && len(body) == 0 {
		keepDeclaredLength(resp, declared)
	}
	return resp, nil
}

// keepDeclaredLength restores the Content-Length a HEAD response announced
// for the body it did not send.
func keepDeclaredLength(resp *http.Response, declared string) {
	n, err := strconv.ParseInt(declared, 10, 64)
	if err != nil || n < 0 {
		return
	}
	resp.Header.Set("Content-Length", declared)
	resp.ContentLength = n
}

// Stream runs the downstream application on req and returns once the start
// event has arrived. The caller reads the body with Next or ReadAll and must
// Close the stream. On error the session is already closed.
func (s *Session) Stream(ctx context.Context, req *http.Request) (*Stream, error) {
	if err := s.start(req); err != nil {
		return nil, err
	}

	ev, ok, err := s.receive(ctx)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	if !ok {
		_ = s.Close()
		if s.appErr != nil {
			return nil, s.appErr
		}
		return nil, oaserrors.ErrNoResponseReturned
	}
	if ev.Kind != EventStart {
		_ = s.Close()
		return nil, &oaserrors.ProtocolError{Expected: EventStart.String(), Got: ev.Kind.String()}
	}
	if !httputil.IsValidStatus(ev.Status) {
		_ = s.Close()
		return nil, &oaserrors.ProtocolError{Message: "start event with invalid status " + strconv.Itoa(ev.Status)}
	}

	header := ev.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	return &Stream{session: s, status: ev.Status, header: header}, nil
}

// Close cancels the session scope and waits for the downstream application
// to return. It is idempotent and never reports the cancellation itself.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.cancel()
		_ = s.group.Wait()
		s.logger.Debug("bridge session closed", "started", s.started.Load())
	})
	return nil
}

func (s *Session) start(req *http.Request) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if !s.started.CompareAndSwap(false, true) {
		return ErrSessionUsed
	}

	req = req.WithContext(s.scope)
	s.group.Go(func() error {
		defer close(s.events)
		defer func() {
			if r := recover(); r != nil {
				s.appErr = errors.WithStack(errors.Newf("downstream application panicked: %v", r))
			}
		}()
		if err := s.app.Serve(s.scope, req, s.emit); err != nil {
			s.appErr = err
		}
		return nil
	})
	return nil
}

func (s *Session) emit(ctx context.Context, ev Event) error {
	if err := s.scope.Err(); err != nil {
		return err
	}
	select {
	case s.events <- ev:
		return nil
	case <-s.scope.Done():
		return s.scope.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// receive waits for the next event. ok is false once the producer has closed
// the channel.
func (s *Session) receive(ctx context.Context) (ev Event, ok bool, err error) {
	var timeout <-chan time.Time
	if s.cfg.receiveTimeout > 0 {
		timer := time.NewTimer(s.cfg.receiveTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case ev, ok = <-s.events:
		return ev, ok, nil
	case <-ctx.Done():
		return Event{}, false, ctx.Err()
	case <-timeout:
		return Event{}, false, &oaserrors.ResourceLimitError{
			ResourceType: "receive timeout",
			Message:      "no event within " + s.cfg.receiveTimeout.String(),
		}
	}
}

// Stream is a started downstream response whose body is read chunk by chunk.
type Stream struct {
	session *Session
	status  int
	header  http.Header
	size    int64
	err     error
}

// Status returns the response status.
func (st *Stream) Status() int { return st.status }

// Header returns the response header.
func (st *Stream) Header() http.Header { return st.header }

// Next returns the next body chunk. At the end of the body it returns the
// application's captured error, or io.EOF when there is none. Once Next has
// failed it keeps returning the same error.
func (st *Stream) Next(ctx context.Context) ([]byte, error) {
	if st.err != nil {
		return nil, st.err
	}

	ev, ok, err := st.session.receive(ctx)
	switch {
	case err != nil:
		return nil, st.fail(err)
	case !ok:
		if appErr := st.session.appErr; appErr != nil {
			return nil, st.fail(appErr)
		}
		return nil, st.fail(io.EOF)
	case ev.Kind != EventBody:
		return nil, st.fail(&oaserrors.ProtocolError{Expected: EventBody.String(), Got: ev.Kind.String()})
	}

	st.size += int64(len(ev.Body))
	if limit := st.session.cfg.maxBodySize; limit > 0 && st.size > limit {
		return nil, st.fail(&oaserrors.ResourceLimitError{ResourceType: "response body", Limit: limit, Actual: st.size})
	}
	return ev.Body, nil
}

// ReadAll reads the remaining body in order and joins the chunks.
func (st *Stream) ReadAll(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	for {
		chunk, err := st.Next(ctx)
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, err
		}
		buf.Write(chunk)
	}
}

// Close closes the underlying session.
func (st *Stream) Close() error {
	return st.session.Close()
}

func (st *Stream) fail(err error) error {
	st.err = err
	_ = st.session.Close()
	return err
}
