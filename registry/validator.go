package registry

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/erraggy/oasgate/declaration"
	"github.com/erraggy/oasgate/message"
	"github.com/erraggy/oasgate/oaserrors"
)

// Validator checks one inbound request. A failing request yields a
// *oaserrors.ProblemError; nil means the request may proceed.
type Validator interface {
	Validate(req *message.Request) error
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(req *message.Request) error

// Validate calls f(req).
func (f ValidatorFunc) Validate(req *message.Request) error {
	return f(req)
}

// compiledParameter is a declared parameter with its schema compiled.
type compiledParameter struct {
	*declaration.Parameter
	schema *jsonschema.Schema
}

// ParameterValidator validates the path, query, header and cookie parameters
// of one operation.
type ParameterValidator struct {
	operation    *declaration.Operation
	params       []compiledParameter
	deserializer *ParamDeserializer
	strict       bool
}

// validated lists the locations checked, in checking order.
var validated = []string{
	declaration.InPath,
	declaration.InQuery,
	declaration.InHeader,
	declaration.InCookie,
}

func newParameterValidator(op *declaration.Operation, compiler *schemaCompiler, d *ParamDeserializer, strict bool) (*ParameterValidator, error) {
	v := &ParameterValidator{operation: op, deserializer: d, strict: strict}
	for _, in := range validated {
		for _, p := range op.Parameters {
			if p.In != in {
				continue
			}
			cp := compiledParameter{Parameter: p}
			if p.Schema != nil {
				schema, err := compiler.compile(p.Schema)
				if err != nil {
					return nil, errors.Wrapf(err, "%s %s: %s parameter %q", strings.ToUpper(op.Method), op.Path, p.In, p.Name)
				}
				cp.schema = schema
			}
			v.params = append(v.params, cp)
		}
	}
	return v, nil
}

// Operation returns the operation the validator was built for.
func (v *ParameterValidator) Operation() *declaration.Operation {
	return v.operation
}

// Validate checks every declared parameter and reports the first violation.
// In strict mode undeclared query parameters are rejected first.
func (v *ParameterValidator) Validate(req *message.Request) error {
	if v.strict {
		if err := v.checkExtraQuery(req); err != nil {
			return err
		}
	}

	var cookies map[string]string
	for _, p := range v.params {
		var (
			value   any
			present bool
			err     error
		)
		switch p.In {
		case declaration.InPath:
			var raw string
			if raw, present = req.PathParam(p.Name); present {
				value, err = v.deserializer.DeserializePathParam(raw, p.Parameter)
			}
		case declaration.InQuery:
			value, present, err = v.queryValue(req, p)
		case declaration.InHeader:
			values := req.Headers().Values(p.Name)
			if present = len(values) > 0; present {
				value, err = v.deserializer.DeserializeHeaderParam(strings.Join(values, ","), p.Parameter)
			}
		case declaration.InCookie:
			if cookies == nil {
				cookies = readCookies(req.Headers().Values("Cookie"))
			}
			var raw string
			if raw, present = cookies[p.Name]; present {
				value, err = v.deserializer.DeserializeCookieParam(raw, p.Parameter)
			}
		}

		if err != nil {
			return v.problem(p, err)
		}
		if !present {
			if p.Required {
				return oaserrors.NewBadRequest(fmt.Sprintf("Missing %s parameter '%s'", p.In, p.Name))
			}
			continue
		}
		if p.schema == nil {
			continue
		}
		if err := p.schema.Validate(jsonValue(value)); err != nil {
			return v.problem(p, err)
		}
	}
	return nil
}

func (v *ParameterValidator) queryValue(req *message.Request, p compiledParameter) (any, bool, error) {
	query := req.Query()
	switch {
	case p.Style == "deepObject":
		prefix := p.Name + "["
		for _, pair := range query {
			if strings.HasPrefix(pair.Key, prefix) {
				value, err := v.deserializer.DeserializeQueryParam(query, p.Parameter)
				return value, true, err
			}
		}
		return nil, false, nil
	case !req.HasQuery(p.Name):
		if p.Style == "" || p.Style == "form" {
			if obj, ok := v.explodedObject(query, p); ok {
				return obj, true, nil
			}
		}
		return nil, false, nil
	}

	if !p.AllowEmptyValue {
		for _, raw := range req.QueryValues(p.Name) {
			if raw == "" {
				return nil, true, errEmptyValue
			}
		}
	}
	value, err := v.deserializer.DeserializeQueryParam(query, p.Parameter)
	return value, true, err
}

// explodedObject reads an exploded form object whose properties appear as
// top-level query keys.
func (v *ParameterValidator) explodedObject(query []message.Pair, p compiledParameter) (any, bool) {
	if !explodeOr(p.Parameter, true) || !isObjectSchema(v.deserializer.schemaOf(p.Schema)) {
		return nil, false
	}
	obj, err := v.deserializer.DeserializeQueryParam(query, p.Parameter)
	if err != nil {
		return nil, false
	}
	if m, ok := obj.(map[string]any); !ok || len(m) == 0 {
		return nil, false
	}
	return obj, true
}

func (v *ParameterValidator) checkExtraQuery(req *message.Request) error {
	declared := make(map[string]bool)
	var prefixes []string
	for _, p := range v.params {
		if p.In != declaration.InQuery {
			continue
		}
		declared[p.Name] = true
		if p.Style == "deepObject" {
			prefixes = append(prefixes, p.Name+"[")
		}
		if props, ok := v.deserializer.schemaOf(p.Schema)["properties"].(map[string]any); ok && explodeOr(p.Parameter, true) {
			for name := range props {
				declared[name] = true
			}
		}
	}

	var extra []string
	seen := make(map[string]bool)
	for _, pair := range req.Query() {
		if declared[pair.Key] || seen[pair.Key] || hasAnyPrefix(pair.Key, prefixes) {
			continue
		}
		seen[pair.Key] = true
		extra = append(extra, pair.Key)
	}
	if len(extra) == 0 {
		return nil
	}
	sort.Strings(extra)
	return oaserrors.NewBadRequest(fmt.Sprintf("Extra query parameter(s) %s not declared", strings.Join(extra, ", ")))
}

var errEmptyValue = errors.New("empty value")

func (v *ParameterValidator) problem(p compiledParameter, err error) *oaserrors.ProblemError {
	var (
		detail string
		coerce *CoercionError
	)
	switch {
	case errors.Is(err, errEmptyValue):
		detail = fmt.Sprintf("Empty value for %s parameter '%s' is not allowed", p.In, p.Name)
	case errors.As(err, &coerce):
		detail = fmt.Sprintf("Wrong type, expected '%s' for %s parameter '%s'", coerce.Expected, p.In, p.Name)
	default:
		detail = fmt.Sprintf("%s for %s parameter '%s'", leafMessage(err), p.In, p.Name)
	}
	problem := oaserrors.NewBadRequest(detail)
	problem.Cause = err
	return problem
}

func readCookies(lines []string) map[string]string {
	cookies := make(map[string]string)
	r := &http.Request{Header: http.Header{"Cookie": lines}}
	for _, c := range r.Cookies() {
		if _, ok := cookies[c.Name]; !ok {
			cookies[c.Name] = c.Value
		}
	}
	return cookies
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
