// Package registry builds request validators from an API declaration.
//
// A [Registry] holds one [Validator] per declared (path, lowercase method)
// pair. Each validator is a [ParameterValidator] that checks the path, query,
// header and cookie parameters of its operation:
//
//   - required parameters must be present
//   - query values may not be empty unless allowEmptyValue is set
//   - raw strings are deserialized per OpenAPI style and explode rules, then
//     coerced to the declared primitive type
//   - the typed value is validated against the parameter's JSON schema
//
// A request that breaks a rule fails with a *oaserrors.ProblemError with
// status 400 and a human-readable detail, for example:
//
//	Bad Request: Missing query parameter 'limit'
//	Bad Request: Wrong type, expected 'integer' for path parameter 'petId'
//
// Lookups for operations that are not declared are allowed by default. Build
// the registry with [WithFailFast] to treat them as defects instead.
//
// # Example
//
//	decl, _ := declaration.Load("openapi.yaml")
//	reg, err := registry.Build(decl, registry.WithStrictValidation(true))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := reg.Validate(req); err != nil {
//	    // err is a *oaserrors.ProblemError
//	}
package registry
