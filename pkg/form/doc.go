// Package form provides server-side form state for server-driven UIs.
//
// # Overview
//
// A Form owns the state of one form instance: the registry of fields, the
// current values, per-field errors, and touched and dirty flags. UI code
// registers fields as they mount, forwards change and blur events, and
// calls HandleSubmit when the user submits.
//
//	f := form.New(
//	    form.WithID("signup"),
//	    form.WithOnSubmit(func(ctx context.Context, v form.Values) error {
//	        return accounts.Create(ctx, v["email"].(string), v["password"].(string))
//	    }),
//	)
//	defer f.Close()
//
//	f.RegisterField("email", form.FieldConfig{
//	    Kind:       form.Email(),
//	    Validators: []validate.Validator{validate.Required("Email is required")},
//	})
//	f.RegisterField("password", form.FieldConfig{Kind: form.Password()})
//	f.RegisterField("confirm", form.FieldConfig{
//	    Kind:       form.Password(),
//	    Validators: []validate.Validator{validate.FieldsMatch("password", "Passwords differ")},
//	})
//
//	f.SetValue("email", "ada@example.com") // change event
//	f.SetTouched("email", true)            // blur event
//	outcome := f.HandleSubmit(ctx, ev)     // submit event
//
// # Errors
//
// Errors() maps field names to messages. A present "" entry means the
// field was validated and passed; a missing entry means it has not been
// validated yet.
//
// # Async Validation
//
// Validators may return a pending result (see validate.Async). The field
// error is set to the pending message at once and replaced by the verdict
// when the check resolves. A newer validation of the same field cancels the
// older one, and late results of superseded checks are discarded. Errors,
// panics, and timeouts of async checks become the ValidatorErrorMessage.
//
// # Observing State
//
// Subscribe registers a listener that receives a Snapshot after changes,
// which is how a component schedules its re-render.
package form
