// Package errors provides structured, actionable errors for formstate.
//
// Programmer and configuration mistakes (registering a field without a
// name, setting a value on a field that was never registered, loading a
// schema with an unknown rule) are reported as *Error values carrying a
// stable code, a category, and a hint on how to fix the problem.
// User-input validation failures are NOT errors in this sense: they are
// plain messages stored in the form's error map.
//
// # Error Categories
//
//   - form: misuse of the form store API
//   - schema: invalid form definitions
//   - config: invalid formstate.json
//   - transport: HTTP and WebSocket failures
//   - cli: command line usage
//
// # Usage
//
//	err := errors.New("F101").
//	    WithLocation("forms/signup.yaml", 12, 9).
//	    WithSuggestion("Use one of: required, minLength, email, matches")
//
//	fmt.Println(err.Format())
//
// Errors compare equal under errors.Is when their codes match, so callers
// can test against sentinels:
//
//	if errors.Is(err, form.ErrUnknownField) { ... }
package errors
