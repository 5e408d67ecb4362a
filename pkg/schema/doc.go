// Package schema loads declarative form definitions from YAML or JSON
// files and compiles them into form fields.
//
// A schema names the form, its validation options, and its fields:
//
//	id: signup
//	options:
//	  validateOnBlur: true
//	  validationTimeout: 2s
//	fields:
//	  - name: email
//	    kind: email
//	    rules:
//	      - {rule: required, message: "Email is required"}
//	  - name: plan
//	    kind: select
//	    default: free
//	    options: [free, pro]
//	  - name: confirm
//	    kind: password
//	    rules: [{rule: matches, field: password}]
//
// Rules may also be written as bare names ("- required"). Errors carry
// the file position of the offending field or rule.
//
// Watch keeps a Registry in sync with a directory while a server runs.
package schema
