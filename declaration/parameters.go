package declaration

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/erraggy/oasgate/oaserrors"
)

// maxRefDepth bounds chains of references to references.
const maxRefDepth = 100

// resolver follows local references within one document.
type resolver struct {
	doc map[string]any
}

// resolve follows ref, and any reference its target holds in turn, until it
// reaches an object that is not itself a reference.
func (r *resolver) resolve(ref string) (map[string]any, error) {
	seen := make(map[string]bool)
	for depth := 0; ; depth++ {
		if !strings.HasPrefix(ref, "#") {
			return nil, &oaserrors.ReferenceError{Ref: ref, Message: "only local references are supported"}
		}
		if seen[ref] {
			return nil, &oaserrors.ReferenceError{Ref: ref, IsCircular: true}
		}
		if depth >= maxRefDepth {
			return nil, &oaserrors.ReferenceError{Ref: ref, Message: "reference chain too deep"}
		}
		seen[ref] = true

		target, err := lookupPointer(r.doc, ref)
		if err != nil {
			return nil, err
		}
		obj, ok := target.(map[string]any)
		if !ok {
			return nil, &oaserrors.ReferenceError{Ref: ref, Message: "target is not an object"}
		}
		next, ok := obj["$ref"].(string)
		if !ok {
			return obj, nil
		}
		ref = next
	}
}

// lookupPointer evaluates the JSON pointer fragment of a local reference.
func lookupPointer(doc map[string]any, ref string) (any, error) {
	fragment := strings.TrimPrefix(ref, "#")
	if unescaped, err := url.PathUnescape(fragment); err == nil {
		fragment = unescaped
	}
	if fragment == "" || fragment == "/" {
		return doc, nil
	}

	current := any(doc)
	for _, token := range strings.Split(strings.TrimPrefix(fragment, "/"), "/") {
		token = strings.NewReplacer("~1", "/", "~0", "~").Replace(token)
		switch v := current.(type) {
		case map[string]any:
			next, ok := v[token]
			if !ok {
				return nil, &oaserrors.ReferenceError{Ref: ref, Message: "missing key " + strconv.Quote(token)}
			}
			current = next
		case []any:
			i, err := strconv.Atoi(token)
			if err != nil || i < 0 || i >= len(v) {
				return nil, &oaserrors.ReferenceError{Ref: ref, Message: "invalid array index " + strconv.Quote(token)}
			}
			current = v[i]
		default:
			return nil, &oaserrors.ReferenceError{Ref: ref, Message: "cannot descend into " + strconv.Quote(token)}
		}
	}
	return current, nil
}

// parameters builds the parameter list of a path item or operation.
func (d *Declaration) parameters(r *resolver, raw any) ([]*Parameter, error) {
	list, ok := raw.([]any)
	if !ok {
		return nil, nil
	}
	params := make([]*Parameter, 0, len(list))
	for _, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		var ref string
		if s, isRef := obj["$ref"].(string); isRef {
			ref = s
			resolved, err := r.resolve(ref)
			if err != nil {
				return nil, err
			}
			obj = resolved
		}
		p := d.buildParameter(obj)
		p.Ref = ref
		params = append(params, p)
	}
	return params, nil
}

func (d *Declaration) buildParameter(obj map[string]any) *Parameter {
	p := &Parameter{
		Name:            stringValue(obj["name"]),
		In:              stringValue(obj["in"]),
		Required:        boolValue(obj["required"]),
		Style:           stringValue(obj["style"]),
		AllowEmptyValue: boolValue(obj["allowEmptyValue"]),
	}
	if explode, ok := obj["explode"].(bool); ok {
		p.Explode = &explode
	}

	if d.IsOAS2() && p.In != InBody {
		p.Schema = inlineSchema(obj)
		applyCollectionFormat(p, stringValue(obj["collectionFormat"]))
		return p
	}

	if schema, ok := obj["schema"].(map[string]any); ok {
		p.Schema = schema
	} else if content, ok := obj["content"].(map[string]any); ok {
		if media, ok := content[firstKey(content)].(map[string]any); ok {
			p.Schema, _ = media["schema"].(map[string]any)
		}
	}
	return p
}

// schemaKeywords are the OAS 2.0 parameter fields that are JSON schema keywords.
var schemaKeywords = []string{
	"type", "format", "enum",
	"maximum", "exclusiveMaximum", "minimum", "exclusiveMinimum",
	"maxLength", "minLength", "pattern",
	"maxItems", "minItems", "uniqueItems", "multipleOf",
}

// inlineSchema lifts the schema keywords of an OAS 2.0 non-body parameter
// (or items object) into a schema object.
func inlineSchema(obj map[string]any) map[string]any {
	schema := make(map[string]any)
	for _, key := range schemaKeywords {
		if v, ok := obj[key]; ok {
			schema[key] = v
		}
	}
	if items, ok := obj["items"].(map[string]any); ok {
		schema["items"] = inlineSchema(items)
	}
	if len(schema) == 0 {
		return nil
	}
	return schema
}

// applyCollectionFormat maps an OAS 2.0 collectionFormat onto style and explode.
func applyCollectionFormat(p *Parameter, format string) {
	if stringValue(p.Schema["type"]) != "array" {
		return
	}
	explode := false
	switch format {
	case "", "csv":
		if p.In == InQuery || p.In == InCookie || p.In == InFormData {
			p.Style = "form"
		} else {
			p.Style = "simple"
		}
	case "ssv":
		p.Style = "spaceDelimited"
	case "pipes":
		p.Style = "pipeDelimited"
	case "tsv":
		p.Style = "tabDelimited"
	case "multi":
		p.Style = "form"
		explode = true
	}
	p.Explode = &explode
}

// ParameterNames returns the sorted names of the parameters declared at a
// location.
func (o *Operation) ParameterNames(in string) []string {
	var names []string
	for _, p := range o.Parameters {
		if p.In == in {
			names = append(names, p.Name)
		}
	}
	sort.Strings(names)
	return names
}
