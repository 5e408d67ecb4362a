package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Form Store Errors (F001-F099)
	// ============================================

	"F001": {
		Category:   CategoryForm,
		Message:    "Field name is empty",
		Suggestion: "Give every field a non-empty name that is unique within the form.",
	},
	"F002": {
		Category:   CategoryForm,
		Message:    "Field is not registered",
		Suggestion: "Call RegisterField before setting values, errors, or touched state.",
	},
	"F003": {
		Category: CategoryForm,
		Message:  "Form is closed",
	},
	"F004": {
		Category:   CategoryForm,
		Message:    "Invalid struct binding",
		Suggestion: "Bind a struct value or a pointer to a struct.",
	},

	// ============================================
	// Schema Errors (F100-F119)
	// ============================================

	"F100": {
		Category:   CategorySchema,
		Message:    "Failed to parse form schema",
		Suggestion: "Check that the schema is valid YAML or JSON.",
	},
	"F101": {
		Category:   CategorySchema,
		Message:    "Unknown validation rule",
		Suggestion: "Use one of: required, minLength, maxLength, pattern, email, url, phone, numeric, min, max, oneOf, minItems, maxItems, maxFileSize, accept, matches, differs.",
	},
	"F102": {
		Category:   CategorySchema,
		Message:    "Unknown field kind",
		Suggestion: "Use one of: text, email, password, textarea, number, select, radio, checkbox, checkboxGroup, file.",
	},
	"F103": {
		Category: CategorySchema,
		Message:  "Invalid rule parameter",
	},
	"F104": {
		Category:   CategorySchema,
		Message:    "Duplicate field name",
		Suggestion: "Field names must be unique within one form.",
	},
	"F105": {
		Category:   CategorySchema,
		Message:    "Form schema has no id",
		Suggestion: "Add an `id:` key at the top of the schema.",
	},
	"F106": {
		Category: CategorySchema,
		Message:  "Form schema not found",
	},
	"F107": {
		Category:   CategorySchema,
		Message:    "Duplicate form schema id",
		Suggestion: "Each schema file in a directory must declare a different id.",
	},
	"F108": {
		Category: CategorySchema,
		Message:  "Invalid default value",
	},

	// ============================================
	// Config Errors (F120-F139)
	// ============================================

	"F120": {
		Category:   CategoryConfig,
		Message:    "Invalid formstate.json",
		Suggestion: "Check that formstate.json is valid JSON.",
	},
	"F121": {
		Category:   CategoryConfig,
		Message:    "formstate.json not found",
		Suggestion: "Create formstate.json or pass --config.",
	},
	"F122": {
		Category: CategoryConfig,
		Message:  "Invalid duration",
	},
	"F123": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration value",
		Suggestion: "See the config package documentation for accepted values.",
	},

	// ============================================
	// Transport Errors (F140-F159)
	// ============================================

	"F140": {
		Category: CategoryTransport,
		Message:  "Failed to parse request body",
	},
	"F141": {
		Category: CategoryTransport,
		Message:  "Invalid live message",
	},
	"F142": {
		Category: CategoryTransport,
		Message:  "File upload failed",
	},

	// ============================================
	// CLI Errors (F160-F179)
	// ============================================

	"F160": {
		Category: CategoryCLI,
		Message:  "Failed to read values file",
	},
	"F161": {
		Category: CategoryCLI,
		Message:  "Form values are invalid",
	},
	"F162": {
		Category:   CategoryCLI,
		Message:    "File already exists",
		Suggestion: "Use --force to overwrite it.",
	},
}

// GetAllCodes returns all registered error codes in sorted order.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for a given error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a custom error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
