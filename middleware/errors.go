package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/erraggy/oasgate/internal/httputil"
	"github.com/erraggy/oasgate/logging"
	"github.com/erraggy/oasgate/oaserrors"
)

// ErrorHandler turns an error that escaped an exchange into a response.
// It is called at most once per exchange, before anything has been written.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Problem is the JSON body written by the default error handler.
type Problem struct {
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// ProblemHandler returns the default error handler. Problems keep their
// status, malformed bodies become 400 problems, oversized request bodies 413,
// and anything else is logged and reported as a 500 problem.
func ProblemHandler(logger logging.Logger) ErrorHandler {
	logger = logging.OrNop(logger)
	return func(w http.ResponseWriter, r *http.Request, err error) {
		problem := AsProblem(err)
		if problem.Status >= http.StatusInternalServerError {
			logger.Error("exchange failed",
				"method", r.Method,
				"path", r.URL.Path,
				"request_id", r.Header.Get(RequestIDHeader),
				"error", err,
			)
		}
		writeJSONProblem(w, problem)
	}
}

// AsProblem maps err onto the problem the default error handler reports.
func AsProblem(err error) *oaserrors.ProblemError {
	var problem *oaserrors.ProblemError
	if errors.As(err, &problem) && httputil.IsValidStatus(problem.Status) {
		return problem
	}
	var malformed *oaserrors.MalformedBodyError
	if errors.As(err, &malformed) {
		p := oaserrors.NewBadRequest(malformed.Error())
		p.Cause = err
		return p
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		p := oaserrors.NewProblem(http.StatusRequestEntityTooLarge,
			"request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes")
		p.Cause = err
		return p
	}
	p := oaserrors.NewProblem(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	p.Cause = err
	return p
}

func writeJSONProblem(w http.ResponseWriter, problem *oaserrors.ProblemError) {
	data, err := json.Marshal(Problem{Status: problem.Status, Detail: problem.Detail})
	if err != nil {
		http.Error(w, problem.Message(), problem.Status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(problem.Status)
	_, _ = w.Write(data)
}

// writeTextProblem writes a request validation failure as "{title}: {detail}".
func writeTextProblem(w http.ResponseWriter, problem *oaserrors.ProblemError) {
	body := problem.Message()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(problem.Status)
	_, _ = w.Write([]byte(body))
}
