// Package formhttp serves form schemas over HTTP and WebSocket.
//
// Routes:
//
//	GET  /forms               list of form IDs
//	GET  /forms/{id}          the schema as JSON
//	POST /forms/{id}/submit   validate and submit a url-encoded, multipart, or JSON body
//	POST /forms/{id}/validate validate only the fields present in the body
//	GET  /forms/{id}/live     WebSocket live session
//	GET  /metrics             Prometheus metrics, when a Gatherer is configured
//
// Submit responds 200 with {"values": ...} when the form is valid and the
// submit hook succeeds, 422 with {"errors": ...} when a field is invalid,
// 404 for an unknown form, and 500 when the hook or file storage fails.
//
// A live session owns one form instance. The client sends
//
//	{"op": "change", "field": "email", "value": "ada@example.com"}
//	{"op": "blur", "field": "email"}
//	{"op": "submit"}
//	{"op": "reset"}
//
// and receives {"type": "state", "state": {...}} after every change, plus
// {"type": "submitted"|"invalid"|"failed"} for each submit.
//
// Free text from Text and Textarea fields is stripped of markup with a
// bluemonday strict policy before it reaches the form.
package formhttp
