package middleware

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gorilla/mux"

	"github.com/erraggy/oasgate/declaration"
	"github.com/erraggy/oasgate/oaserrors"
	"github.com/erraggy/oasgate/registry"
)

// Route describes one mounted operation.
type Route struct {
	// Method is the uppercase HTTP method
	Method string
	// Path is the full path template including the API base path
	Path string
	// Template is the declared path template, the registry key
	Template string
	// OperationID is the declared operationId, if any
	OperationID string
	// Parameters is the number of merged parameters
	Parameters int
}

type route struct {
	Route
	key       registry.OperationKey
	operation *declaration.Operation
	handler   OperationHandler
}

// label names the operation in metrics and logs.
func (rt *route) label() string {
	if rt.OperationID != "" {
		return rt.OperationID
	}
	return rt.key.String()
}

type matchStatus int

const (
	matchFound matchStatus = iota
	matchNone
	matchMethod
)

// router maps requests to declared operations of one API.
type router struct {
	mux    *mux.Router
	routes map[*mux.Route]*route
	order  []*route
}

// newRouter registers every operation of decl under basePath. Templates are
// added most specific first because the router returns the first match:
// "/pets/mine" must be tried before "/pets/{petId}".
func newRouter(decl *declaration.Declaration, basePath string, handlers map[string]OperationHandler) (*router, error) {
	rt := &router{
		mux:    mux.NewRouter(),
		routes: make(map[*mux.Route]*route),
	}

	byPath := make(map[string][]*declaration.Operation)
	templates := make([]string, 0, len(decl.Paths))
	for _, op := range decl.Operations() {
		if _, ok := byPath[op.Path]; !ok {
			templates = append(templates, op.Path)
		}
		byPath[op.Path] = append(byPath[op.Path], op)
	}
	sortTemplates(templates)

	for _, template := range templates {
		for _, op := range byPath[template] {
			method := strings.ToUpper(op.Method)
			full := basePath + template
			r := rt.mux.NewRoute().Path(full).Methods(method)
			if err := r.GetError(); err != nil {
				return nil, &oaserrors.ConfigError{Option: "path", Value: template, Message: "cannot be routed", Cause: err}
			}

			handler := handlers[op.OperationID]
			if handler == nil {
				handler = CallNext
			}
			entry := &route{
				Route: Route{
					Method:      method,
					Path:        full,
					Template:    template,
					OperationID: op.OperationID,
					Parameters:  len(op.Parameters),
				},
				key:       registry.OperationKey{Path: template, Method: op.Method},
				operation: op,
				handler:   handler,
			}
			rt.routes[r] = entry
			rt.order = append(rt.order, entry)
		}
	}
	return rt, nil
}

// match finds the operation for r. On success vars holds the path parameters.
func (rt *router) match(r *http.Request) (*route, map[string]string, matchStatus) {
	var m mux.RouteMatch
	if rt.mux.Match(r, &m) {
		if entry, ok := rt.routes[m.Route]; ok {
			return entry, m.Vars, matchFound
		}
	}
	if m.MatchErr == mux.ErrMethodMismatch {
		return nil, nil, matchMethod
	}
	return nil, nil, matchNone
}

// specificity ranks a path template: literal characters count up and
// parameters count down, so exact paths outrank parameterized ones.
func specificity(template string) int {
	score := 0
	for i := 0; i < len(template); i++ {
		switch c := template[i]; {
		case c == '{':
			end := strings.IndexByte(template[i:], '}')
			if end == -1 {
				return score
			}
			score--
			i += end
		case c != '/':
			score++
		}
	}
	return score
}

// sortTemplates orders templates by specificity, then length, then name.
func sortTemplates(templates []string) {
	sort.SliceStable(templates, func(i, j int) bool {
		si, sj := specificity(templates[i]), specificity(templates[j])
		if si != sj {
			return si > sj
		}
		if len(templates[i]) != len(templates[j]) {
			return len(templates[i]) > len(templates[j])
		}
		return templates[i] < templates[j]
	})
}
