// Package forms is the schema-driven validation layer behind every modal
// form. A Schema describes field constraints and carries its own
// (locale-dependent) messages, so switching the UI language swaps the schema
// and already-entered values are re-validated automatically.
package forms

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
)

var (
	// ErrValidation means the current values fail the schema; the field
	// errors carry the details.
	ErrValidation = errors.New("validation failed")
	// ErrSubmitInFlight means a submission is already running; the repeat
	// submit was not executed.
	ErrSubmitInFlight = errors.New("submission already in flight")
)

// Messages are the human-readable texts a field reports. Zero values fall
// back to the English defaults; a localized schema fills them in.
type Messages struct {
	Required   string
	TooShort   string
	Mismatch   string
	NotANumber string
}

func (m Messages) required() string {
	if m.Required != "" {
		return m.Required
	}
	return "This field is required."
}

func (m Messages) tooShort() string {
	if m.TooShort != "" {
		return m.TooShort
	}
	return "This value is too short."
}

func (m Messages) mismatch() string {
	if m.Mismatch != "" {
		return m.Mismatch
	}
	return "The values do not match."
}

func (m Messages) notANumber() string {
	if m.NotANumber != "" {
		return m.NotANumber
	}
	return "Enter a valid number."
}

// Field is one validated form field.
type Field struct {
	Required  bool
	MinLength int
	// Match names another field this one must equal; the error is
	// attached to this field (passwordRepeat, not password).
	Match string
	// Numeric coerces the raw text to a float64 in the typed output;
	// coercion failure is a field error, never a panic.
	Numeric bool
	// Validate is an optional custom rule run after the built-ins. It
	// receives the raw value and all raw values, returning an error
	// message or "".
	Validate func(value string, all map[string]string) string

	Messages Messages
}

// Schema is the set of field rules for one form.
type Schema struct {
	Fields map[string]Field
}

// Validate checks raw against the schema. It returns the typed values
// (strings, or float64 for Numeric fields) and a field-to-message error map;
// an empty map means the input is valid.
func (s Schema) Validate(raw map[string]string) (map[string]interface{}, map[string]string) {
	typed := make(map[string]interface{}, len(s.Fields))
	fieldErrs := make(map[string]string)

	for name, field := range s.Fields {
		value := strings.TrimSpace(raw[name])

		if value == "" {
			if field.Required {
				fieldErrs[name] = field.Messages.required()
			}
			continue
		}
		if field.MinLength > 0 && len([]rune(value)) < field.MinLength {
			fieldErrs[name] = field.Messages.tooShort()
			continue
		}
		if field.Match != "" && value != strings.TrimSpace(raw[field.Match]) {
			fieldErrs[name] = field.Messages.mismatch()
			continue
		}
		if field.Numeric {
			number, err := strconv.ParseFloat(value, 64)
			if err != nil {
				fieldErrs[name] = field.Messages.notANumber()
				continue
			}
			typed[name] = number
		} else {
			typed[name] = value
		}
		if field.Validate != nil {
			if msg := field.Validate(value, raw); msg != "" {
				fieldErrs[name] = msg
				delete(typed, name)
			}
		}
	}
	return typed, fieldErrs
}

// Form binds a schema to the values a user has entered so far and gates
// submission.
type Form struct {
	mu         sync.Mutex
	schema     Schema
	values     map[string]string
	typed      map[string]interface{}
	errors     map[string]string
	submitting bool
}

// NewForm creates an empty form governed by schema.
func NewForm(schema Schema) *Form {
	f := &Form{schema: schema, values: make(map[string]string)}
	f.revalidate()
	return f
}

// SetValue records a field's raw value and re-validates.
func (f *Form) SetValue(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[name] = value
	f.revalidate()
}

// SetSchema swaps the governing schema (e.g. on a language switch) and
// re-validates everything already entered.
func (f *Form) SetSchema(schema Schema) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.schema = schema
	f.revalidate()
}

// caller must hold f.mu
func (f *Form) revalidate() {
	f.typed, f.errors = f.schema.Validate(f.values)
}

// Errors returns a copy of the current field errors.
func (f *Form) Errors() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// Valid reports whether the current values pass the schema.
func (f *Form) Valid() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.errors) == 0
}

// Submitting reports whether a submission is in flight; the UI renders a
// disabled submit control while true.
func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// Submit validates and, if the form is clean, runs fn with the typed values.
// While fn runs, further Submit calls return ErrSubmitInFlight without
// invoking fn, so a double click performs exactly one submission.
func (f *Form) Submit(ctx context.Context, fn func(ctx context.Context, values map[string]interface{}) error) error {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return ErrSubmitInFlight
	}
	f.revalidate()
	if len(f.errors) > 0 {
		f.mu.Unlock()
		return ErrValidation
	}
	f.submitting = true
	typed := make(map[string]interface{}, len(f.typed))
	for k, v := range f.typed {
		typed[k] = v
	}
	f.mu.Unlock()

	err := fn(ctx, typed)

	f.mu.Lock()
	f.submitting = false
	f.mu.Unlock()
	return err
}
