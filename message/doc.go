// Package message defines the framework-neutral request and response values
// that every oasgate component works with.
//
// A [Request] is an immutable snapshot of one inbound exchange. It is built
// once by a framework adapter, read by validators and operation handlers, and
// discarded when the exchange completes. Its JSON body is decoded lazily and
// at most once:
//
//	data, err := req.DecodeJSON()
//	if errors.Is(err, oaserrors.ErrMalformedBody) {
//	    // body is not valid JSON
//	}
//
// A [Response] carries a status, optional MIME and content types, ordered
// headers and a [Body]. The body is a tagged union of two variants:
//
//   - [Serialized]: bytes that are already encoded, with their content type
//   - [Unserialized]: a Go value that still needs encoding, with an optional
//     MIME type hint
//
// [Response.SerializeBody] turns either variant into bytes and reports the
// single content type to emit, resolved as explicit content type, then
// explicit MIME type, then the type inferred by the serializer.
package message
