// Package oasgate is an OpenAPI validation middleware for net/http.
//
// oasgate sits in front of any http.Handler, checks each request against the
// parameter rules declared in an OpenAPI 2.0 or 3.x document, and only then
// hands it to the handler. The handler's response, streamed or not, is
// aggregated in memory so it can be inspected before it is written.
//
// # Packages
//
//   - declaration: load an OpenAPI document into operations and merged parameters
//   - registry: one parameter validator per declared operation
//   - message: framework-neutral request and response snapshots
//   - adapter: conversions between net/http and the message model
//   - bridge: run the next handler in the background and aggregate its response
//   - middleware: routing, validation and dispatch for each exchange
//   - oaserrors: typed errors shared by all packages
//   - logging: the structured logging interface with slog and zap adapters
//
// # Quick Start
//
//	decl, err := declaration.Load("openapi.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mw, err := middleware.New(app)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := mw.AddAPI(decl); err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(http.ListenAndServe(":8000", mw))
//
// A request that violates its declaration is answered with a 400 response
// whose text/plain body reads "Bad Request: {detail}", for example:
//
//	Bad Request: Missing query parameter 'limit'
//
// # Command Line
//
// The oasgate command runs the middleware as a validating reverse proxy:
//
//	oasgate serve --spec api.yaml --upstream http://127.0.0.1:8080 --listen :8000
//	oasgate routes --spec api.yaml --format json
package oasgate
