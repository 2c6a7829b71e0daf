package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/erraggy/oasgate/declaration"
)

// documentURL is the resource the whole declaration is registered under;
// local schema references are rewritten to point into it.
const documentURL = "oasgate://declaration.json"

// schemaCompiler compiles parameter schemas against one declaration.
type schemaCompiler struct {
	compiler *jsonschema.Compiler
	count    int
}

func newSchemaCompiler(decl *declaration.Declaration) (*schemaCompiler, error) {
	c := jsonschema.NewCompiler()
	c.Draft = draftFor(decl)

	doc, err := decl.JSON()
	if err != nil {
		return nil, errors.Wrap(err, "encoding declaration")
	}
	if err := c.AddResource(documentURL, bytes.NewReader(doc)); err != nil {
		return nil, errors.Wrap(err, "adding declaration resource")
	}
	return &schemaCompiler{compiler: c}, nil
}

// draftFor picks Draft 4 for OAS 2.0 and 3.0, whose schema objects are
// extended subsets of it, and Draft 2020-12 for OAS 3.1 and later.
func draftFor(decl *declaration.Declaration) *jsonschema.Draft {
	if decl.IsOAS2() || strings.HasPrefix(decl.Version, "3.0") {
		return jsonschema.Draft4
	}
	return jsonschema.Draft2020
}

func (s *schemaCompiler) compile(schema map[string]any) (*jsonschema.Schema, error) {
	s.count++
	url := fmt.Sprintf("oasgate://parameters/%d.json", s.count)

	data, err := json.Marshal(rewriteRefs(schema))
	if err != nil {
		return nil, errors.Wrap(err, "encoding parameter schema")
	}
	if err := s.compiler.AddResource(url, bytes.NewReader(data)); err != nil {
		return nil, errors.Wrap(err, "adding parameter schema")
	}
	compiled, err := s.compiler.Compile(url)
	if err != nil {
		return nil, errors.Wrap(err, "compiling parameter schema")
	}
	return compiled, nil
}

// rewriteRefs copies v with every local "#/..." reference redirected into the
// declaration resource.
func rewriteRefs(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if ref, ok := val.(string); ok && k == "$ref" && strings.HasPrefix(ref, "#") {
				out[k] = documentURL + ref
				continue
			}
			out[k] = rewriteRefs(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = rewriteRefs(val)
		}
		return out
	default:
		return v
	}
}

// jsonValue converts deserialized values into the instance types the schema
// validator understands. Integers become json.Number to keep their precision.
func jsonValue(v any) any {
	switch t := v.(type) {
	case int64:
		return json.Number(strconv.FormatInt(t, 10))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = jsonValue(val)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = jsonValue(val)
		}
		return out
	default:
		return v
	}
}

// leafMessage returns the message of the most specific cause of a schema
// validation error.
func leafMessage(err error) string {
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err.Error()
	}
	for len(verr.Causes) > 0 {
		verr = verr.Causes[0]
	}
	return verr.Message
}
