package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erraggy/oasgate/declaration"
	"github.com/erraggy/oasgate/message"
)

func boolPtr(b bool) *bool { return &b }

var (
	intSchema   = map[string]any{"type": "integer"}
	arraySchema = map[string]any{"type": "array", "items": intSchema}
	objSchema   = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"role": map[string]any{"type": "string"},
			"age":  intSchema,
		},
	}
)

func TestDeserializePathParam(t *testing.T) {
	d := NewParamDeserializer(nil)

	tests := []struct {
		name     string
		value    string
		param    *declaration.Parameter
		expected any
	}{
		{
			name:     "simple primitive string",
			value:    "hello",
			param:    &declaration.Parameter{Name: "name", In: "path", Schema: map[string]any{"type": "string"}},
			expected: "hello",
		},
		{
			name:     "simple integer",
			value:    "42",
			param:    &declaration.Parameter{Name: "id", In: "path", Schema: intSchema},
			expected: int64(42),
		},
		{
			name:     "simple number",
			value:    "3.14",
			param:    &declaration.Parameter{Name: "v", In: "path", Schema: map[string]any{"type": "number"}},
			expected: 3.14,
		},
		{
			name:     "simple boolean with nullable type list",
			value:    "true",
			param:    &declaration.Parameter{Name: "f", In: "path", Schema: map[string]any{"type": []any{"null", "boolean"}}},
			expected: true,
		},
		{
			name:     "simple array",
			value:    "1,2,3",
			param:    &declaration.Parameter{Name: "ids", In: "path", Schema: arraySchema},
			expected: []any{int64(1), int64(2), int64(3)},
		},
		{
			name:     "simple object",
			value:    "role,admin,age,7",
			param:    &declaration.Parameter{Name: "o", In: "path", Schema: objSchema},
			expected: map[string]any{"role": "admin", "age": int64(7)},
		},
		{
			name:     "simple object exploded",
			value:    "role=admin,age=7",
			param:    &declaration.Parameter{Name: "o", In: "path", Schema: objSchema, Explode: boolPtr(true)},
			expected: map[string]any{"role": "admin", "age": int64(7)},
		},
		{
			name:     "label array",
			value:    ".1,2",
			param:    &declaration.Parameter{Name: "ids", In: "path", Style: "label", Schema: arraySchema},
			expected: []any{int64(1), int64(2)},
		},
		{
			name:     "label array exploded",
			value:    ".1.2",
			param:    &declaration.Parameter{Name: "ids", In: "path", Style: "label", Explode: boolPtr(true), Schema: arraySchema},
			expected: []any{int64(1), int64(2)},
		},
		{
			name:     "matrix primitive",
			value:    ";id=5",
			param:    &declaration.Parameter{Name: "id", In: "path", Style: "matrix", Schema: intSchema},
			expected: int64(5),
		},
		{
			name:     "matrix array exploded",
			value:    ";id=3;id=4",
			param:    &declaration.Parameter{Name: "id", In: "path", Style: "matrix", Explode: boolPtr(true), Schema: arraySchema},
			expected: []any{int64(3), int64(4)},
		},
		{
			name:     "matrix object",
			value:    ";o=role,admin",
			param:    &declaration.Parameter{Name: "o", In: "path", Style: "matrix", Schema: objSchema},
			expected: map[string]any{"role": "admin"},
		},
		{
			name:     "no schema keeps raw value",
			value:    "raw",
			param:    &declaration.Parameter{Name: "x", In: "path"},
			expected: "raw",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.DeserializePathParam(tt.value, tt.param)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	t.Run("coercion failure", func(t *testing.T) {
		_, err := d.DeserializePathParam("abc", &declaration.Parameter{Name: "id", In: "path", Schema: intSchema})
		var ce *CoercionError
		require.True(t, errors.As(err, &ce))
		assert.Equal(t, "integer", ce.Expected)
		assert.Equal(t, "abc", ce.Value)
	})
}

func TestDeserializeQueryParam(t *testing.T) {
	d := NewParamDeserializer(nil)

	tests := []struct {
		name     string
		query    []message.Pair
		param    *declaration.Parameter
		expected any
	}{
		{
			name:     "form exploded array",
			query:    []message.Pair{{Key: "id", Value: "1"}, {Key: "x", Value: "y"}, {Key: "id", Value: "2"}},
			param:    &declaration.Parameter{Name: "id", In: "query", Schema: arraySchema},
			expected: []any{int64(1), int64(2)},
		},
		{
			name:     "form array not exploded",
			query:    []message.Pair{{Key: "id", Value: "1,2,3"}},
			param:    &declaration.Parameter{Name: "id", In: "query", Explode: boolPtr(false), Schema: arraySchema},
			expected: []any{int64(1), int64(2), int64(3)},
		},
		{
			name:     "repeated primitive takes last value",
			query:    []message.Pair{{Key: "n", Value: "1"}, {Key: "n", Value: "2"}},
			param:    &declaration.Parameter{Name: "n", In: "query", Schema: intSchema},
			expected: int64(2),
		},
		{
			name:     "space delimited",
			query:    []message.Pair{{Key: "id", Value: "1 2"}},
			param:    &declaration.Parameter{Name: "id", In: "query", Style: "spaceDelimited", Schema: arraySchema},
			expected: []any{int64(1), int64(2)},
		},
		{
			name:     "pipe delimited",
			query:    []message.Pair{{Key: "id", Value: "1|2"}},
			param:    &declaration.Parameter{Name: "id", In: "query", Style: "pipeDelimited", Schema: arraySchema},
			expected: []any{int64(1), int64(2)},
		},
		{
			name:     "tab delimited",
			query:    []message.Pair{{Key: "id", Value: "1\t2"}},
			param:    &declaration.Parameter{Name: "id", In: "query", Style: "tabDelimited", Schema: arraySchema},
			expected: []any{int64(1), int64(2)},
		},
		{
			name: "deep object",
			query: []message.Pair{
				{Key: "filter[role]", Value: "admin"},
				{Key: "filter[age]", Value: "30"},
				{Key: "other", Value: "x"},
			},
			param:    &declaration.Parameter{Name: "filter", In: "query", Style: "deepObject", Schema: objSchema},
			expected: map[string]any{"role": "admin", "age": int64(30)},
		},
		{
			name:     "exploded form object",
			query:    []message.Pair{{Key: "role", Value: "admin"}, {Key: "unrelated", Value: "1"}},
			param:    &declaration.Parameter{Name: "o", In: "query", Schema: objSchema},
			expected: map[string]any{"role": "admin"},
		},
		{
			name:     "form object not exploded",
			query:    []message.Pair{{Key: "o", Value: "role,admin,age,3"}},
			param:    &declaration.Parameter{Name: "o", In: "query", Explode: boolPtr(false), Schema: objSchema},
			expected: map[string]any{"role": "admin", "age": int64(3)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.DeserializeQueryParam(tt.query, tt.param)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestDeserializeHeaderAndCookie(t *testing.T) {
	d := NewParamDeserializer(nil)

	got, err := d.DeserializeHeaderParam("1,2", &declaration.Parameter{Name: "X-Ids", In: "header", Schema: arraySchema})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, got)

	got, err = d.DeserializeCookieParam("7", &declaration.Parameter{Name: "session", In: "cookie", Schema: intSchema})
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)

	got, err = d.DeserializeCookieParam("1,2", &declaration.Parameter{Name: "ids", In: "cookie", Schema: arraySchema})
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), int64(2)}, got)
}

func TestDeserializer_ResolvesReferences(t *testing.T) {
	target := map[string]any{"type": "integer"}
	d := NewParamDeserializer(func(schema map[string]any) map[string]any {
		if schema["$ref"] == "#/components/schemas/Id" {
			return target
		}
		return schema
	})

	param := &declaration.Parameter{
		Name:   "ids",
		In:     "query",
		Schema: map[string]any{"type": "array", "items": map[string]any{"$ref": "#/components/schemas/Id"}},
	}
	got, err := d.DeserializeQueryParam([]message.Pair{{Key: "ids", Value: "4"}}, param)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(4)}, got)
	assert.True(t, d.IsCollection(param))
}
