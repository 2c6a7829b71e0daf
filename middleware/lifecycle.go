package middleware

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/looplab/fsm"

	"github.com/erraggy/oasgate/logging"
)

// Exchange lifecycle states.
const (
	StateReceived          = "received"
	StateRequestValidated  = "request_validated"
	StateDispatched        = "dispatched"
	StateResponseValidated = "response_validated"
	StateCompleted         = "completed"
	StateError             = "error"
)

const (
	eventValidateRequest  = "validate_request"
	eventDispatch         = "dispatch"
	eventValidateResponse = "validate_response"
	eventComplete         = "complete"
	eventFail             = "fail"
)

var lifecycleEvents = fsm.Events{
	{Name: eventValidateRequest, Src: []string{StateReceived}, Dst: StateRequestValidated},
	{Name: eventDispatch, Src: []string{StateRequestValidated}, Dst: StateDispatched},
	{Name: eventValidateResponse, Src: []string{StateDispatched}, Dst: StateResponseValidated},
	{Name: eventComplete, Src: []string{StateResponseValidated}, Dst: StateCompleted},
	{
		Name: eventFail,
		Src:  []string{StateReceived, StateRequestValidated, StateDispatched, StateResponseValidated},
		Dst:  StateError,
	},
}

// lifecycle tracks one exchange through its states. Transitions follow the
// pipeline order; any non-terminal state may fail.
type lifecycle struct {
	machine *fsm.FSM
}

func newLifecycle(logger logging.Logger) *lifecycle {
	return &lifecycle{
		machine: fsm.NewFSM(StateReceived, lifecycleEvents, fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				attrs := []any{"from", e.Src, "to", e.Dst}
				if len(e.Args) > 0 {
					if err, ok := e.Args[0].(error); ok {
						attrs = append(attrs, "error", err)
					}
				}
				logger.Debug("exchange state changed", attrs...)
			},
		}),
	}
}

// State returns the current state.
func (l *lifecycle) State() string {
	return l.machine.Current()
}

func (l *lifecycle) advance(ctx context.Context, event string) error {
	if err := l.machine.Event(ctx, event); err != nil {
		return errors.Wrapf(err, "exchange lifecycle: %s from %s", event, l.State())
	}
	return nil
}

// fail moves the exchange to the error state. It is a no-op once the
// exchange has completed or already failed.
func (l *lifecycle) fail(ctx context.Context, cause error) {
	if l.machine.Can(eventFail) {
		_ = l.machine.Event(ctx, eventFail, cause)
	}
}
