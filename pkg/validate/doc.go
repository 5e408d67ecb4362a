// Package validate provides composable field validators for formstate forms.
//
// A Validator inspects one field value (and, for cross-field checks, the
// whole value map) and returns a Result: OK, a failure message, or a
// Pending result for checks that must run asynchronously.
//
//	v := validate.Compose(
//	    validate.Required("Email is required"),
//	    validate.Email(""),
//	    validate.Async("Checking...", emailAvailable),
//	)
//
// Compose runs validators in order and stops at the first result that is
// not OK. Factories accept a message; an empty message selects the default
// text shown in each factory's documentation.
//
// Cross-field validators read siblings from the value map:
//
//	validate.FieldsMatch("password", "Passwords do not match")
//	validate.FieldsDiffer("old_password", "Choose a new password")
//
// A missing sibling fails FieldsMatch but satisfies FieldsDiffer.
package validate
