package registry

import (
	"strconv"
	"strings"

	"github.com/erraggy/oasgate/declaration"
	"github.com/erraggy/oasgate/message"
)

// ParamDeserializer turns raw parameter strings into typed values according
// to OpenAPI serialization styles. Each location has default styles:
//
// | Location | Default Style | Default Explode |
// |----------|---------------|-----------------|
// | path     | simple        | false           |
// | query    | form          | true            |
// | header   | simple        | false           |
// | cookie   | form          | false           |
//
// Values that cannot be coerced to their declared primitive type produce a
// *CoercionError.
type ParamDeserializer struct {
	// resolve follows a schema's local $ref, nil to use schemas as they are
	resolve func(schema map[string]any) map[string]any
}

// NewParamDeserializer creates a deserializer. resolve, when non-nil, maps a
// schema holding a local $ref to its target.
func NewParamDeserializer(resolve func(map[string]any) map[string]any) *ParamDeserializer {
	return &ParamDeserializer{resolve: resolve}
}

// CoercionError reports a raw value that does not parse as its declared type.
type CoercionError struct {
	// Expected is the declared schema type
	Expected string
	// Value is the raw string
	Value string
}

// Error returns a human-readable error message.
func (e *CoercionError) Error() string {
	return "cannot coerce " + strconv.Quote(e.Value) + " to " + e.Expected
}

// DeserializePathParam deserializes a path parameter value according to its style.
//
// Styles supported:
//   - simple (default): comma-separated values, e.g., "a,b,c"
//   - label: dot-prefixed values, e.g., ".a.b.c"
//   - matrix: semicolon-prefixed key=value, e.g., ";id=5"
func (d *ParamDeserializer) DeserializePathParam(value string, param *declaration.Parameter) (any, error) {
	explode := explodeOr(param, false)
	schema := d.schemaOf(param.Schema)

	switch styleOr(param, "simple") {
	case "label":
		return d.deserializeLabel(value, schema, explode)
	case "matrix":
		return d.deserializeMatrix(value, param.Name, schema, explode)
	default:
		return d.deserializeSimple(value, schema, explode)
	}
}

// DeserializeQueryParam deserializes a query parameter from the full query
// list, which deepObject and exploded form objects need.
//
// Styles supported:
//   - form (default): standard query string format
//   - spaceDelimited: space-separated values
//   - pipeDelimited: pipe-separated values
//   - tabDelimited: tab-separated values (OAS 2.0 collectionFormat tsv)
//   - deepObject: nested object notation, e.g., "filter[status]=active"
func (d *ParamDeserializer) DeserializeQueryParam(query []message.Pair, param *declaration.Parameter) (any, error) {
	schema := d.schemaOf(param.Schema)
	values := valuesOf(query, param.Name)

	switch styleOr(param, "form") {
	case "spaceDelimited":
		return d.deserializeDelimited(values, " ", schema)
	case "pipeDelimited":
		return d.deserializeDelimited(values, "|", schema)
	case "tabDelimited":
		return d.deserializeDelimited(values, "\t", schema)
	case "deepObject":
		return d.deserializeDeepObject(query, param.Name, schema)
	default:
		explode := explodeOr(param, true)
		if explode && isObjectSchema(schema) {
			return d.deserializeExplodedObject(query, schema)
		}
		return d.deserializeForm(values, schema, explode)
	}
}

// DeserializeHeaderParam deserializes a header parameter value (simple style).
func (d *ParamDeserializer) DeserializeHeaderParam(value string, param *declaration.Parameter) (any, error) {
	return d.deserializeSimple(value, d.schemaOf(param.Schema), explodeOr(param, false))
}

// DeserializeCookieParam deserializes a cookie parameter value (form style,
// not exploded).
func (d *ParamDeserializer) DeserializeCookieParam(value string, param *declaration.Parameter) (any, error) {
	schema := d.schemaOf(param.Schema)
	if isArraySchema(schema) || isObjectSchema(schema) {
		return d.deserializeSimple(value, schema, false)
	}
	return d.coerceValue(value, schema)
}

// IsCollection reports whether a parameter's schema is an array or object.
func (d *ParamDeserializer) IsCollection(param *declaration.Parameter) bool {
	schema := d.schemaOf(param.Schema)
	return isArraySchema(schema) || isObjectSchema(schema)
}

func (d *ParamDeserializer) schemaOf(schema map[string]any) map[string]any {
	if schema == nil || d.resolve == nil {
		return schema
	}
	if _, ok := schema["$ref"]; ok {
		return d.resolve(schema)
	}
	return schema
}

func (d *ParamDeserializer) deserializeSimple(value string, schema map[string]any, explode bool) (any, error) {
	if schema == nil {
		return value, nil
	}
	if isArraySchema(schema) {
		return d.coerceArray(strings.Split(value, ","), d.itemsOf(schema))
	}
	if isObjectSchema(schema) {
		return d.deserializeObject(strings.Split(value, ","), schema, explode)
	}
	return d.coerceValue(value, schema)
}

// deserializeObject reads key=value parts when exploded and alternating
// key,value parts otherwise.
func (d *ParamDeserializer) deserializeObject(parts []string, schema map[string]any, explode bool) (map[string]any, error) {
	result := make(map[string]any)
	if explode {
		for _, part := range parts {
			key, val, ok := strings.Cut(part, "=")
			if !ok || key == "" {
				continue
			}
			v, err := d.coerceValue(val, d.propertyOf(schema, key))
			if err != nil {
				return nil, err
			}
			result[key] = v
		}
		return result, nil
	}
	for i := 0; i+1 < len(parts); i += 2 {
		v, err := d.coerceValue(parts[i+1], d.propertyOf(schema, parts[i]))
		if err != nil {
			return nil, err
		}
		result[parts[i]] = v
	}
	return result, nil
}

func (d *ParamDeserializer) deserializeLabel(value string, schema map[string]any, explode bool) (any, error) {
	if !strings.HasPrefix(value, ".") {
		return d.deserializeSimple(value, schema, explode)
	}
	value = value[1:]
	if schema == nil {
		return value, nil
	}

	sep := ","
	if explode {
		sep = "."
	}
	if isArraySchema(schema) {
		return d.coerceArray(strings.Split(value, sep), d.itemsOf(schema))
	}
	if isObjectSchema(schema) {
		return d.deserializeObject(strings.Split(value, sep), schema, explode)
	}
	return d.coerceValue(value, schema)
}

func (d *ParamDeserializer) deserializeMatrix(value, name string, schema map[string]any, explode bool) (any, error) {
	if !strings.HasPrefix(value, ";") {
		return d.deserializeSimple(value, schema, explode)
	}
	value = value[1:]
	prefix := name + "="

	switch {
	case isArraySchema(schema) && explode:
		// ;id=3;id=4;id=5
		var values []string
		for _, part := range strings.Split(value, ";") {
			if strings.HasPrefix(part, prefix) {
				values = append(values, part[len(prefix):])
			}
		}
		return d.coerceArray(values, d.itemsOf(schema))
	case isArraySchema(schema):
		// ;id=3,4,5
		return d.coerceArray(strings.Split(strings.TrimPrefix(value, prefix), ","), d.itemsOf(schema))
	case isObjectSchema(schema) && explode:
		// ;role=admin;firstName=Alex
		return d.deserializeObject(strings.Split(value, ";"), schema, true)
	case isObjectSchema(schema):
		// ;id=role,admin,firstName,Alex
		return d.deserializeObject(strings.Split(strings.TrimPrefix(value, prefix), ","), schema, false)
	default:
		return d.coerceValue(strings.TrimPrefix(value, prefix), schema)
	}
}

func (d *ParamDeserializer) deserializeForm(values []string, schema map[string]any, explode bool) (any, error) {
	if schema == nil {
		if len(values) == 1 {
			return values[0], nil
		}
		return values, nil
	}

	if isArraySchema(schema) {
		if !explode {
			// id=3,4,5
			var parts []string
			for _, v := range values {
				parts = append(parts, strings.Split(v, ",")...)
			}
			values = parts
		}
		return d.coerceArray(values, d.itemsOf(schema))
	}

	if isObjectSchema(schema) && len(values) > 0 {
		// id=role,admin,firstName,Alex
		return d.deserializeObject(strings.Split(values[len(values)-1], ","), schema, false)
	}

	// The last occurrence of a repeated primitive wins.
	if len(values) == 0 {
		return nil, nil
	}
	return d.coerceValue(values[len(values)-1], schema)
}

// deserializeExplodedObject collects the query keys naming schema properties.
func (d *ParamDeserializer) deserializeExplodedObject(query []message.Pair, schema map[string]any) (map[string]any, error) {
	props, _ := schema["properties"].(map[string]any)
	result := make(map[string]any)
	for _, p := range query {
		if _, ok := props[p.Key]; !ok {
			continue
		}
		v, err := d.coerceValue(p.Value, d.propertyOf(schema, p.Key))
		if err != nil {
			return nil, err
		}
		result[p.Key] = v
	}
	return result, nil
}

// deserializeDeepObject handles "filter[status]=active&filter[type]=user".
func (d *ParamDeserializer) deserializeDeepObject(query []message.Pair, name string, schema map[string]any) (map[string]any, error) {
	prefix := name + "["
	result := make(map[string]any)
	for _, p := range query {
		if !strings.HasPrefix(p.Key, prefix) {
			continue
		}
		prop, _, ok := strings.Cut(p.Key[len(prefix):], "]")
		if !ok {
			continue
		}
		propSchema := d.propertyOf(schema, prop)
		if isArraySchema(propSchema) {
			existing, _ := result[prop].([]any)
			v, err := d.coerceValue(p.Value, d.itemsOf(propSchema))
			if err != nil {
				return nil, err
			}
			result[prop] = append(existing, v)
			continue
		}
		v, err := d.coerceValue(p.Value, propSchema)
		if err != nil {
			return nil, err
		}
		result[prop] = v
	}
	return result, nil
}

func (d *ParamDeserializer) deserializeDelimited(values []string, delimiter string, schema map[string]any) (any, error) {
	parts := strings.Split(strings.Join(values, delimiter), delimiter)
	if isArraySchema(schema) {
		return d.coerceArray(parts, d.itemsOf(schema))
	}
	if len(parts) == 1 {
		return d.coerceValue(parts[0], schema)
	}
	return parts, nil
}

// coerceValue converts a raw string to the primitive type its schema declares.
func (d *ParamDeserializer) coerceValue(value string, schema map[string]any) (any, error) {
	schema = d.schemaOf(schema)
	switch typ := schemaType(schema); typ {
	case "integer":
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, &CoercionError{Expected: typ, Value: value}
		}
		return i, nil
	case "number":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, &CoercionError{Expected: typ, Value: value}
		}
		return f, nil
	case "boolean":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, &CoercionError{Expected: typ, Value: value}
		}
		return b, nil
	default:
		return value, nil
	}
}

func (d *ParamDeserializer) coerceArray(values []string, items map[string]any) ([]any, error) {
	result := make([]any, len(values))
	for i, v := range values {
		c, err := d.coerceValue(v, items)
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

func (d *ParamDeserializer) propertyOf(schema map[string]any, name string) map[string]any {
	props, _ := d.schemaOf(schema)["properties"].(map[string]any)
	prop, _ := props[name].(map[string]any)
	return d.schemaOf(prop)
}

func (d *ParamDeserializer) itemsOf(schema map[string]any) map[string]any {
	items, _ := d.schemaOf(schema)["items"].(map[string]any)
	return d.schemaOf(items)
}

// schemaType returns the declared type, taking the first non-null entry of a
// type list.
func schemaType(schema map[string]any) string {
	switch t := schema["type"].(type) {
	case string:
		return t
	case []any:
		for _, typ := range t {
			if s, ok := typ.(string); ok && s != "null" {
				return s
			}
		}
	}
	return ""
}

func isArraySchema(schema map[string]any) bool {
	return schemaType(schema) == "array"
}

func isObjectSchema(schema map[string]any) bool {
	return schemaType(schema) == "object"
}

func styleOr(param *declaration.Parameter, def string) string {
	if param.Style == "" {
		return def
	}
	return param.Style
}

func explodeOr(param *declaration.Parameter, def bool) bool {
	if param.Explode == nil {
		return def
	}
	return *param.Explode
}

func valuesOf(query []message.Pair, name string) []string {
	var values []string
	for _, p := range query {
		if p.Key == name {
			values = append(values, p.Value)
		}
	}
	return values
}
