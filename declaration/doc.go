// Package declaration loads the parts of an OpenAPI document that request
// validation needs.
//
// A Declaration is the validator registry's input: every declared path, each
// of its operations keyed by lowercase HTTP method, and the merged parameter
// list of every operation. OAS 2.0 and OAS 3.x documents are accepted in
// either YAML or JSON form.
//
// # Scope
//
// Only local references ("#/...") are resolved, and only where the loader
// needs them: parameter objects are inlined so that path-level and
// operation-level parameters can be merged by name and location. Schema
// references are left in place; the registry resolves them against
// [Declaration.Document] when it compiles parameter schemas.
//
// # Parameter normalization
//
// OAS 2.0 non-body parameters carry their schema keywords inline and use
// collectionFormat instead of style and explode. The loader lifts those
// keywords into a schema object and maps collectionFormat onto the OAS 3.x
// style vocabulary, so every [Parameter] looks the same to the registry:
//
//	| collectionFormat | style          | explode |
//	|------------------|----------------|---------|
//	| csv (default)    | form / simple  | false   |
//	| ssv              | spaceDelimited | false   |
//	| pipes            | pipeDelimited  | false   |
//	| multi            | form           | true    |
//
// # Example
//
//	decl, err := declaration.Load("openapi.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for path, ops := range decl.Paths {
//	    for method, op := range ops {
//	        fmt.Println(method, path, op.OperationID, len(op.Parameters))
//	    }
//	}
package declaration
