// Package validation provides an accumulating validator for inbound request
// payloads.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// emailRegex is a basic shape check; full address validation is left to the
// e-signature provider, which delivers the actual mail.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Validator accumulates validation errors
type Validator struct {
	errors []error
	prefix string
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		errors: make([]error, 0),
	}
}

// NewValidatorWithPrefix creates a new validator with a prefix for error messages
func NewValidatorWithPrefix(prefix string) *Validator {
	return &Validator{
		errors: make([]error, 0),
		prefix: prefix,
	}
}

// RequireString validates that a string is not empty
func (v *Validator) RequireString(value, name string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.addError("%s is required", name)
	}
	return v
}

// RequireNonEmpty validates that a slice has at least one element
func (v *Validator) RequireNonEmpty(length int, name string) *Validator {
	if length == 0 {
		v.addError("%s must not be empty", name)
	}
	return v
}

// RequireEmail validates that a string is a valid email address
func (v *Validator) RequireEmail(value, name string) *Validator {
	if value == "" {
		v.addError("%s is required", name)
		return v
	}

	if !emailRegex.MatchString(value) {
		v.addError("%s must be a valid email address", name)
	}

	return v
}

// addError appends a formatted error, applying the prefix when set
func (v *Validator) addError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if v.prefix != "" {
		msg = v.prefix + ": " + msg
	}
	v.errors = append(v.errors, errors.New(msg))
}

// HasErrors reports whether any validation failed
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Error returns the accumulated errors joined into one, or nil
func (v *Validator) Error() error {
	if len(v.errors) == 0 {
		return nil
	}

	msgs := make([]string, 0, len(v.errors))
	for _, err := range v.errors {
		msgs = append(msgs, err.Error())
	}
	return errors.New(strings.Join(msgs, "; "))
}
