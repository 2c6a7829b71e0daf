// Package middleware validates HTTP exchanges against OpenAPI declarations in
// front of any net/http handler.
//
// A [Middleware] wraps the next handler. Each declaration mounted with
// [Middleware.AddAPI] gets its own validator registry and router. For every
// request the middleware:
//
//  1. matches the request to a declared operation (most specific path first)
//  2. snapshots it as a message.Request and validates its parameters
//  3. runs the operation handler, by default the next handler through a
//     call-next bridge session that aggregates the streamed response
//  4. optionally validates the response
//  5. writes the response
//
// # Basic Usage
//
//	decl, err := declaration.Load("openapi.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mw, err := middleware.New(app, middleware.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if _, err := mw.AddAPI(decl, middleware.WithResponseValidation(true)); err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(http.ListenAndServe(":8000", mw))
//
// # Responses
//
// A request that breaks its declared parameter rules never reaches the next
// handler. It is answered with the problem status and a text/plain body of
// the form "{title}: {detail}":
//
//	HTTP/1.1 400 Bad Request
//	Content-Type: text/plain; charset=utf-8
//
//	Bad Request: Missing query parameter 'limit'
//
// Every other error goes to the [ErrorHandler], by default [ProblemHandler],
// which writes a JSON body {"status": ..., "detail": ...}.
//
// Requests that match no declared path are passed to the next handler
// unvalidated unless [WithStrictRouting] is set. A declared path requested
// with an undeclared method gets a 405 problem. Protocol upgrades bypass the
// middleware.
//
// # Operation Handlers
//
// [WithOperationHandler] serves one operation in process. The handler gets
// the [Exchange] and may still call the next handler through [CallNext]:
//
//	middleware.WithOperationHandler("getPet", func(ctx context.Context, ex *middleware.Exchange) (any, error) {
//	    id, _ := ex.Request.PathParam("petId")
//	    return map[string]any{"id": id}, nil
//	})
//
// Results are serialized with the operation's MIME type.
//
// # Observability
//
// Each exchange carries a request id, taken from the X-Request-Id header or
// generated, which is echoed in the response and attached to every log
// entry. Its state transitions (received, request_validated, dispatched,
// response_validated, completed or error) are logged at debug level.
// [WithMetrics] registers Prometheus collectors under the oasgate_middleware
// prefix.
package middleware
