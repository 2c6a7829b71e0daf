package registry

import (
	"sort"
	"strings"

	"github.com/erraggy/oasgate/declaration"
	"github.com/erraggy/oasgate/internal/httputil"
	"github.com/erraggy/oasgate/logging"
	"github.com/erraggy/oasgate/message"
	"github.com/erraggy/oasgate/oaserrors"
)

// OperationKey identifies a registry entry.
type OperationKey struct {
	// Path is the declared path template
	Path string
	// Method is the lowercase HTTP method
	Method string
}

func newOperationKey(path, method string) OperationKey {
	return OperationKey{Path: path, Method: strings.ToLower(method)}
}

// String returns "METHOD /path".
func (k OperationKey) String() string {
	return strings.ToUpper(k.Method) + " " + k.Path
}

// Entry describes one registered operation.
type Entry struct {
	OperationKey
	// OperationID is the declared operationId, "" when absent
	OperationID string
	// Parameters is the number of validated parameters
	Parameters int
}

// Registry maps every declared (path, method) pair to its validator. It is
// built once and read-only afterwards, so it is safe for concurrent use.
type Registry struct {
	validators map[OperationKey]Validator
	entries    []Entry
	failFast   bool
	logger     logging.Logger
}

// Build creates a validator for every operation in decl. Each validator sees
// only its own operation's merged parameter list. Parameter schemas are
// compiled here, so schema errors surface at build time.
func Build(decl *declaration.Declaration, opts ...Option) (*Registry, error) {
	if decl == nil {
		return nil, &oaserrors.ConfigError{Option: "declaration", Message: "declaration cannot be nil"}
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	compiler, err := newSchemaCompiler(decl)
	if err != nil {
		return nil, err
	}
	deserializer := NewParamDeserializer(func(schema map[string]any) map[string]any {
		ref, _ := schema["$ref"].(string)
		resolved, err := decl.Resolve(ref)
		if err != nil {
			return schema
		}
		return resolved
	})

	r := &Registry{
		validators: make(map[OperationKey]Validator),
		failFast:   cfg.failFast,
		logger:     cfg.logger,
	}
	for _, op := range decl.Operations() {
		pv, err := newParameterValidator(op, compiler, deserializer, cfg.strict)
		if err != nil {
			return nil, err
		}
		key := newOperationKey(op.Path, op.Method)
		var v Validator = pv
		if extra, ok := cfg.extra[key]; ok {
			v = chain{pv, extra}
		}
		r.validators[key] = v
		r.entries = append(r.entries, Entry{OperationKey: key, OperationID: op.OperationID, Parameters: len(pv.params)})
	}
	for key := range cfg.extra {
		if _, ok := r.validators[key]; !ok {
			return nil, &oaserrors.ConfigError{Option: "validator", Value: key.String(), Message: "operation is not declared"}
		}
	}

	r.logger.Debug("validator registry built", "source", decl.Source(), "operations", len(r.entries))
	return r, nil
}

// Lookup returns the validator for path and method. For an undeclared pair it
// returns nil, or *oaserrors.UnknownOperationError when the registry was built
// with WithFailFast(true).
func (r *Registry) Lookup(path, method string) (Validator, error) {
	if v, ok := r.validators[newOperationKey(path, method)]; ok {
		return v, nil
	}
	if r.failFast {
		return nil, &oaserrors.UnknownOperationError{Path: path, Method: strings.ToUpper(method)}
	}
	return nil, nil
}

// Validate runs the validator registered for the request's route template
// (or its path when no route matched) and method. Undeclared operations are
// allowed unless the registry fails fast.
func (r *Registry) Validate(req *message.Request) error {
	path := req.Route()
	if path == "" {
		path = req.Path()
	}
	v, err := r.Lookup(path, req.Method())
	if err != nil {
		return err
	}
	if v == nil {
		r.logger.Debug("no validator registered, allowing request", "path", path, "method", req.Method())
		return nil
	}
	return v.Validate(req)
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	return len(r.validators)
}

// Operations lists the registered operations sorted by path, then method in
// declaration order.
func (r *Registry) Operations() []Entry {
	out := append([]Entry(nil), r.entries...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Path != out[j].Path {
			return out[i].Path < out[j].Path
		}
		return methodRank(out[i].Method) < methodRank(out[j].Method)
	})
	return out
}

func methodRank(method string) int {
	for i, m := range httputil.Methods {
		if m == method {
			return i
		}
	}
	return len(httputil.Methods)
}

// chain runs validators in order and stops at the first failure.
type chain []Validator

func (c chain) Validate(req *message.Request) error {
	for _, v := range c {
		if err := v.Validate(req); err != nil {
			return err
		}
	}
	return nil
}
