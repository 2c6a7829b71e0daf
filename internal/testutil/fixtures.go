// Package testutil provides API declaration fixtures for unit tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.yaml.in/yaml/v4"
)

// Document is a raw API declaration as decoded from YAML or JSON.
type Document = map[string]any

// NewSimpleOAS2Document creates a minimal Swagger 2.0 declaration served
// under /v1 with no paths.
func NewSimpleOAS2Document() Document {
	return Document{
		"swagger":  "2.0",
		"info":     Document{"title": "Test API", "version": "1.0.0"},
		"host":     "api.example.com",
		"basePath": "/v1",
		"paths":    Document{},
	}
}

// NewPetsOAS2Document adds GET /pets with a required integer "limit" query
// parameter and GET /pets/{petId} to the simple Swagger 2.0 declaration.
func NewPetsOAS2Document() Document {
	doc := NewSimpleOAS2Document()
	doc["paths"] = petsPaths(func(schema Document) Document {
		// Swagger 2.0 parameters carry the schema keywords inline.
		return schema
	})
	return doc
}

// NewSimpleOAS3Document creates a minimal OpenAPI 3.0 declaration whose
// first server is mounted at /v1.
func NewSimpleOAS3Document() Document {
	return Document{
		"openapi": "3.0.3",
		"info":    Document{"title": "Test API", "version": "1.0.0"},
		"servers": []any{Document{"url": "https://api.example.com/v1"}},
		"paths":   Document{},
	}
}

// NewPetsOAS3Document is the OpenAPI 3.0 twin of NewPetsOAS2Document.
func NewPetsOAS3Document() Document {
	doc := NewSimpleOAS3Document()
	doc["paths"] = petsPaths(func(schema Document) Document {
		return Document{"schema": schema}
	})
	return doc
}

func petsPaths(wrap func(schema Document) Document) Document {
	param := func(name, in string, schema Document) Document {
		p := Document{"name": name, "in": in, "required": true}
		for k, v := range wrap(schema) {
			p[k] = v
		}
		return p
	}
	return Document{
		"/pets": Document{
			"get": Document{
				"operationId": "listPets",
				"parameters": []any{
					param("limit", "query", Document{"type": "integer", "maximum": 100}),
				},
			},
		},
		"/pets/{petId}": Document{
			"get": Document{
				"operationId": "showPet",
				"parameters": []any{
					param("petId", "path", Document{"type": "integer", "minimum": 1}),
				},
			},
		},
	}
}

// WriteTempYAML marshals a document to YAML and writes it to a temporary file.
// Returns the path to the temporary file.
// The file is automatically cleaned up when the test completes (via t.TempDir).
func WriteTempYAML(t *testing.T, doc any) string {
	t.Helper()

	data, err := yaml.Marshal(doc)
	if err != nil {
		t.Fatalf("Failed to marshal declaration to YAML: %v", err)
	}
	return writeTemp(t, "api.yaml", data)
}

// WriteTempJSON marshals a document to JSON and writes it to a temporary file.
func WriteTempJSON(t *testing.T, doc any) string {
	t.Helper()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal declaration to JSON: %v", err)
	}
	return writeTemp(t, "api.json", data)
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("Failed to write temporary file: %v", err)
	}
	return path
}
