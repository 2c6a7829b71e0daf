package declaration

import (
	"encoding/json"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/erraggy/oasgate/internal/httputil"
	"github.com/erraggy/oasgate/oaserrors"
	"go.yaml.in/yaml/v4"
)

// Parameter locations.
const (
	InPath     = "path"
	InQuery    = "query"
	InHeader   = "header"
	InCookie   = "cookie"
	InBody     = "body"     // OAS 2.0 only
	InFormData = "formData" // OAS 2.0 only
)

// Parameter is a declared operation parameter with its references resolved.
type Parameter struct {
	// Name is the parameter name
	Name string
	// In is the location: path, query, header or cookie (body, formData for OAS 2.0)
	In string
	// Required reports whether the parameter must be present
	Required bool
	// Style is the serialization style, "" for the location default
	Style string
	// Explode overrides the style's explode default when non-nil
	Explode *bool
	// AllowEmptyValue permits an empty query value
	AllowEmptyValue bool
	// Schema is the parameter's JSON schema, nil when none was declared
	Schema map[string]any
	// Ref is the local reference the parameter was resolved from, "" when inline
	Ref string
}

// Key identifies a parameter within an operation.
func (p *Parameter) Key() string {
	return p.In + ":" + p.Name
}

// Operation is one declared (path, method) pair.
type Operation struct {
	// OperationID is the declared operationId, "" when absent
	OperationID string
	// Method is the lowercase HTTP method
	Method string
	// Path is the path template the operation belongs to
	Path string
	// Parameters is the merged parameter list: path-level parameters overridden
	// by operation-level ones with the same name and location
	Parameters []*Parameter
	// MimeType is the operation's preferred response media type
	MimeType string
}

// Declaration is a loaded API declaration.
type Declaration struct {
	// Version is the OpenAPI version string (e.g., "2.0", "3.0.3", "3.1.0")
	Version string
	// Title is info.title
	Title string
	// BasePath is the path prefix the API is served under, "" for the root
	BasePath string
	// Paths maps each path template to its operations keyed by lowercase method
	Paths map[string]map[string]*Operation

	source string
	doc    map[string]any
}

// IsOAS2 reports whether the declaration is a Swagger 2.0 document.
func (d *Declaration) IsOAS2() bool {
	return strings.HasPrefix(d.Version, "2.")
}

// Source returns the file path or label the declaration was parsed from.
func (d *Declaration) Source() string {
	return d.source
}

// Document returns the whole normalized document. Callers must not modify it.
func (d *Declaration) Document() map[string]any {
	return d.doc
}

// JSON returns the whole document encoded as JSON.
func (d *Declaration) JSON() ([]byte, error) {
	return json.Marshal(d.doc)
}

// Resolve follows a local reference, and the references its target holds in
// turn, to an object in the document.
func (d *Declaration) Resolve(ref string) (map[string]any, error) {
	return (&resolver{doc: d.doc}).resolve(ref)
}

// Operation returns the operation declared for path and method.
// The method is compared case-insensitively.
func (d *Declaration) Operation(path, method string) (*Operation, bool) {
	op, ok := d.Paths[path][strings.ToLower(method)]
	return op, ok
}

// Operations returns every operation sorted by path, then by method in
// declaration order.
func (d *Declaration) Operations() []*Operation {
	paths := make([]string, 0, len(d.Paths))
	for p := range d.Paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var ops []*Operation
	for _, p := range paths {
		for _, m := range httputil.Methods {
			if op, ok := d.Paths[p][m]; ok {
				ops = append(ops, op)
			}
		}
	}
	return ops
}

// Load reads and parses the declaration at path.
func Load(path string) (*Declaration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &oaserrors.ParseError{Path: path, Message: "failed to read file", Cause: err}
	}
	return Parse(data, path)
}

// Parse parses a YAML or JSON declaration. source labels errors and is
// reported by Source.
func Parse(data []byte, source string) (*Declaration, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, newParseError(source, err)
	}
	root, ok := normalize(raw).(map[string]any)
	if !ok {
		return nil, &oaserrors.ParseError{Path: source, Message: "document root must be a mapping"}
	}

	version, err := detectVersion(root)
	if err != nil {
		return nil, &oaserrors.ParseError{Path: source, Message: err.Error()}
	}

	d := &Declaration{
		Version: version,
		Paths:   make(map[string]map[string]*Operation),
		source:  source,
		doc:     root,
	}
	if info, ok := root["info"].(map[string]any); ok {
		d.Title = stringValue(info["title"])
	}
	d.BasePath = d.resolveBasePath()

	r := &resolver{doc: root}
	paths, _ := root["paths"].(map[string]any)
	for path, rawItem := range paths {
		item, ok := rawItem.(map[string]any)
		if !ok {
			continue
		}
		if ref, ok := item["$ref"].(string); ok {
			if item, err = r.resolve(ref); err != nil {
				return nil, err
			}
		}

		common, err := d.parameters(r, item["parameters"])
		if err != nil {
			return nil, err
		}

		ops := make(map[string]*Operation)
		for key, rawOp := range item {
			method := strings.ToLower(key)
			if !httputil.IsMethod(method) {
				continue
			}
			opMap, ok := rawOp.(map[string]any)
			if !ok {
				continue
			}
			own, err := d.parameters(r, opMap["parameters"])
			if err != nil {
				return nil, err
			}
			ops[method] = &Operation{
				OperationID: stringValue(opMap["operationId"]),
				Method:      method,
				Path:        path,
				Parameters:  mergeParameters(common, own),
				MimeType:    d.mimeType(opMap),
			}
		}
		d.Paths[path] = ops
	}
	return d, nil
}

var yamlLine = regexp.MustCompile(`line (\d+)`)

func newParseError(source string, err error) *oaserrors.ParseError {
	pe := &oaserrors.ParseError{Path: source, Message: "invalid YAML or JSON", Cause: err}
	if m := yamlLine.FindStringSubmatch(err.Error()); m != nil {
		pe.Line, _ = strconv.Atoi(m[1])
	}
	return pe
}

func detectVersion(root map[string]any) (string, error) {
	if v, ok := root["openapi"]; ok {
		s := versionString(v)
		if !strings.HasPrefix(s, "3.") {
			return "", &unsupportedVersion{field: "openapi", version: s}
		}
		return s, nil
	}
	if v, ok := root["swagger"]; ok {
		s := versionString(v)
		if s != "2.0" {
			return "", &unsupportedVersion{field: "swagger", version: s}
		}
		return s, nil
	}
	return "", &unsupportedVersion{}
}

type unsupportedVersion struct {
	field   string
	version string
}

func (e *unsupportedVersion) Error() string {
	if e.field == "" {
		return "missing openapi or swagger version field"
	}
	return "unsupported " + e.field + " version " + strconv.Quote(e.version)
}

// versionString formats a version that YAML may have decoded as a number.
func versionString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		s := strconv.FormatFloat(t, 'f', -1, 64)
		if !strings.Contains(s, ".") {
			s += ".0"
		}
		return s
	case int:
		return strconv.Itoa(t) + ".0"
	default:
		return ""
	}
}

func (d *Declaration) resolveBasePath() string {
	var base string
	if d.IsOAS2() {
		base = stringValue(d.doc["basePath"])
	} else if servers, ok := d.doc["servers"].([]any); ok && len(servers) > 0 {
		if server, ok := servers[0].(map[string]any); ok {
			base = serverPath(server)
		}
	}
	base = strings.TrimRight(base, "/")
	if base != "" && !strings.HasPrefix(base, "/") {
		base = "/" + base
	}
	return base
}

// serverPath extracts the path of a server URL after substituting the
// defaults of its variables.
func serverPath(server map[string]any) string {
	raw := stringValue(server["url"])
	if vars, ok := server["variables"].(map[string]any); ok {
		for name, v := range vars {
			if spec, ok := v.(map[string]any); ok {
				raw = strings.ReplaceAll(raw, "{"+name+"}", stringValue(spec["default"]))
			}
		}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Path
}

// mimeType picks the preferred response media type of an operation.
func (d *Declaration) mimeType(op map[string]any) string {
	if d.IsOAS2() {
		for _, produces := range []any{op["produces"], d.doc["produces"]} {
			if list, ok := produces.([]any); ok && len(list) > 0 {
				if s := stringValue(list[0]); s != "" {
					return s
				}
			}
		}
		return httputil.MediaTypeJSON
	}

	responses, _ := op["responses"].(map[string]any)
	codes := make([]string, 0, len(responses))
	for code := range responses {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool {
		return responseRank(codes[i]) < responseRank(codes[j]) ||
			(responseRank(codes[i]) == responseRank(codes[j]) && codes[i] < codes[j])
	})
	for _, code := range codes {
		resp, _ := responses[code].(map[string]any)
		if mt := firstKey(resp["content"]); mt != "" {
			return mt
		}
	}
	return httputil.MediaTypeJSON
}

// responseRank orders success codes first, then default, then the rest.
func responseRank(code string) int {
	switch {
	case strings.HasPrefix(code, "2"):
		return 0
	case code == "default":
		return 1
	default:
		return 2
	}
}

func firstKey(v any) string {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[0]
}

func mergeParameters(common, own []*Parameter) []*Parameter {
	merged := make([]*Parameter, 0, len(common)+len(own))
	index := make(map[string]int, len(common)+len(own))
	for _, p := range common {
		index[p.Key()] = len(merged)
		merged = append(merged, p)
	}
	for _, p := range own {
		if i, ok := index[p.Key()]; ok {
			merged[i] = p
			continue
		}
		index[p.Key()] = len(merged)
		merged = append(merged, p)
	}
	return merged
}

// normalize converts decoded YAML into JSON-compatible values.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[stringKey(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case time.Time:
		return t.Format(time.RFC3339Nano)
	default:
		return v
	}
}

func stringKey(k any) string {
	switch t := k.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return "null"
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func stringValue(v any) string {
	s, _ := v.(string)
	return s
}

func boolValue(v any) bool {
	b, _ := v.(bool)
	return b
}
