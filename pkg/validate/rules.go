package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// ----------------------------------------------------------------------------
// Presence
// ----------------------------------------------------------------------------

// Required fails on "", whitespace-only strings, nil, empty lists, and
// missing files. 0 and false are present values.
// Default message: "This field is required".
func Required(msg string) Validator {
	if msg == "" {
		msg = "This field is required"
	}
	return Func(func(value any, _ Values) Result {
		if isEmpty(value) {
			return Fail(msg)
		}
		return OK
	})
}

// ----------------------------------------------------------------------------
// String Validators
// ----------------------------------------------------------------------------

// MinLength fails when a non-empty string has fewer than n characters.
func MinLength(n int, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be at least %d characters", n)
	}
	return Func(func(value any, _ Values) Result {
		s := toString(value)
		if s == "" {
			return OK // Let Required handle empty values
		}
		if len([]rune(s)) < n {
			return Fail(msg)
		}
		return OK
	})
}

// MaxLength fails when a string has more than n characters.
func MaxLength(n int, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be at most %d characters", n)
	}
	return Func(func(value any, _ Values) Result {
		if len([]rune(toString(value))) > n {
			return Fail(msg)
		}
		return OK
	})
}

// Pattern fails when a non-empty string does not match re.
// It panics if re does not compile, like regexp.MustCompile.
func Pattern(re string, msg string) Validator {
	compiled := regexp.MustCompile(re)
	if msg == "" {
		msg = "Invalid format"
	}
	return matching(compiled, msg)
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Email fails when a non-empty string is not an email address.
func Email(msg string) Validator {
	if msg == "" {
		msg = "Invalid email address"
	}
	return matching(emailPattern, msg)
}

// Matches common phone formats: +1-234-567-8900, (234) 567-8900, 234.567.8900.
var phonePattern = regexp.MustCompile(`^[\+]?[(]?[0-9]{1,4}[)]?[-\s\.]?[(]?[0-9]{1,3}[)]?[-\s\.]?[0-9]{1,4}[-\s\.]?[0-9]{1,4}[-\s\.]?[0-9]{1,9}$`)

// Phone fails when a non-empty string does not look like a phone number.
func Phone(msg string) Validator {
	if msg == "" {
		msg = "Invalid phone number"
	}
	return matching(phonePattern, msg)
}

func matching(re *regexp.Regexp, msg string) Validator {
	return Func(func(value any, _ Values) Result {
		s := toString(value)
		if s == "" {
			return OK
		}
		if !re.MatchString(s) {
			return Fail(msg)
		}
		return OK
	})
}

// URL fails when a non-empty string is not an absolute URL.
func URL(msg string) Validator {
	if msg == "" {
		msg = "Invalid URL"
	}
	return Func(func(value any, _ Values) Result {
		s := toString(value)
		if s == "" {
			return OK
		}
		u, err := url.Parse(s)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return Fail(msg)
		}
		return OK
	})
}

// Numeric fails when a non-empty string contains anything but digits.
func Numeric(msg string) Validator {
	if msg == "" {
		msg = "Must contain only numbers"
	}
	return Func(func(value any, _ Values) Result {
		s := toString(value)
		for _, r := range s {
			if !unicode.IsDigit(r) {
				return Fail(msg)
			}
		}
		return OK
	})
}

// OneOf fails when a non-empty value is not among options.
func OneOf(options []string, msg string) Validator {
	if msg == "" {
		msg = "Must be one of: " + strings.Join(options, ", ")
	}
	allowed := make(map[string]struct{}, len(options))
	for _, o := range options {
		allowed[o] = struct{}{}
	}
	return Func(func(value any, _ Values) Result {
		if items, ok := value.([]string); ok {
			for _, item := range items {
				if _, ok := allowed[item]; !ok {
					return Fail(msg)
				}
			}
			return OK
		}
		s := toString(value)
		if s == "" {
			return OK
		}
		if _, ok := allowed[s]; !ok {
			return Fail(msg)
		}
		return OK
	})
}

// ----------------------------------------------------------------------------
// Numeric Validators
// ----------------------------------------------------------------------------

// Min fails when a numeric value is below n.
func Min(n float64, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be at least %v", n)
	}
	return numeric(msg, func(v float64) bool { return v >= n })
}

// Max fails when a numeric value is above n.
func Max(n float64, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be at most %v", n)
	}
	return numeric(msg, func(v float64) bool { return v <= n })
}

// Between fails when a numeric value is outside [min, max].
func Between(min, max float64, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be between %v and %v", min, max)
	}
	return numeric(msg, func(v float64) bool { return v >= min && v <= max })
}

func numeric(msg string, ok func(float64) bool) Validator {
	return Func(func(value any, _ Values) Result {
		if isEmpty(value) {
			return OK
		}
		v, parsed := toFloat64(value)
		if !parsed || !ok(v) {
			return Fail(msg)
		}
		return OK
	})
}

// ----------------------------------------------------------------------------
// List Validators
// ----------------------------------------------------------------------------

// MinItems fails when a list has fewer than n items.
func MinItems(n int, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Select at least %d", n)
	}
	return Func(func(value any, _ Values) Result {
		if listLen(value) < n {
			return Fail(msg)
		}
		return OK
	})
}

// MaxItems fails when a list has more than n items.
func MaxItems(n int, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Select at most %d", n)
	}
	return Func(func(value any, _ Values) Result {
		if listLen(value) > n {
			return Fail(msg)
		}
		return OK
	})
}

// ----------------------------------------------------------------------------
// File Validators
// ----------------------------------------------------------------------------

// File is implemented by file field values.
type File interface {
	Filename() string
	Size() int64
	ContentType() string
}

// MaxFileSize fails when a file is larger than n bytes.
func MaxFileSize(n int64, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("File must be at most %d bytes", n)
	}
	return Func(func(value any, _ Values) Result {
		f, ok := value.(File)
		if !ok || isNilFile(f) {
			return OK
		}
		if f.Size() > n {
			return Fail(msg)
		}
		return OK
	})
}

// AcceptFileTypes fails when a file matches none of accept. Entries are
// MIME types ("image/png"), MIME wildcards ("image/*"), or extensions
// (".pdf").
func AcceptFileTypes(accept []string, msg string) Validator {
	if msg == "" {
		msg = "File type not allowed"
	}
	return Func(func(value any, _ Values) Result {
		f, ok := value.(File)
		if !ok || isNilFile(f) {
			return OK
		}
		if acceptsFile(accept, f) {
			return OK
		}
		return Fail(msg)
	})
}

func acceptsFile(accept []string, f File) bool {
	name := strings.ToLower(f.Filename())
	ct := strings.ToLower(f.ContentType())
	for _, a := range accept {
		a = strings.ToLower(strings.TrimSpace(a))
		switch {
		case strings.HasPrefix(a, "."):
			if strings.HasSuffix(name, a) {
				return true
			}
		case strings.HasSuffix(a, "/*"):
			if strings.HasPrefix(ct, strings.TrimSuffix(a, "*")) {
				return true
			}
		case a == ct:
			return true
		}
	}
	return false
}

// ----------------------------------------------------------------------------
// Custom Validators
// ----------------------------------------------------------------------------

// Custom adapts a check returning a message ("" when valid).
func Custom(fn func(value any, all Values) string) Validator {
	return Func(func(value any, all Values) Result {
		if msg := fn(value, all); msg != "" {
			return Fail(msg)
		}
		return OK
	})
}
