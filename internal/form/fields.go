// Package form turns untrusted name/value input into validated field values
// according to a declarative list of field specs.
package form

import (
	"errors"
	"fmt"
	"regexp"
)

// FieldType selects the validation and coercion rules for a field.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypePassword FieldType = "password"
	TypeEmail    FieldType = "email"
	TypeSelect   FieldType = "select"
	TypeDate     FieldType = "date"
	TypeDateTime FieldType = "date-time"
	TypeNumber   FieldType = "number"
	TypeFile     FieldType = "file"
	TypeHidden   FieldType = "hidden"
	// TypeInfo fields are display-only and never required.
	TypeInfo FieldType = "info"
)

// Error reasons reported in Result.Errors. Date fields report a
// format-specific sentence instead (see DateError).
const (
	ReasonRequired     = "required"
	ReasonPattern      = "pattern"
	ReasonEmail        = "email"
	ReasonNotAvailable = "not-available"
	ReasonMinLength    = "min-length"
	ReasonMaxLength    = "max-length"
)

// DateError is the message reported for a date that does not parse in format.
func DateError(format string) string {
	return "This must be a valid date in the format " + format + "."
}

// Option is one allowed value of a select field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

// FieldSpec declares one form input.
type FieldSpec struct {
	Name     string    `json:"name"`
	Label    string    `json:"label,omitempty"`
	Type     FieldType `json:"type,omitempty"`
	Required bool      `json:"required,omitempty"`
	Trim     bool      `json:"trim,omitempty"`
	// Pattern must match the whole value. It is anchored automatically.
	Pattern string   `json:"pattern,omitempty"`
	Options []Option `json:"options,omitempty"`
	// DateFormat uses moment-style tokens, e.g. "YYYY-MM-DD" or "DD/MM/YYYY HH:mm".
	DateFormat  string `json:"dateFormat,omitempty"`
	MinLength   int    `json:"minLength,omitempty"`
	MaxLength   int    `json:"maxLength,omitempty"`
	EmptyIsNull bool   `json:"emptyIsNull,omitempty"`
	Title       string `json:"title,omitempty"`
	ReadOnly    bool   `json:"readonly,omitempty"`
}

func (f FieldSpec) isDate() bool {
	return f.Type == TypeDate || f.Type == TypeDateTime
}

func (f FieldSpec) allows(v string) bool {
	for _, o := range f.Options {
		if o.Value == v {
			return true
		}
	}
	return false
}

// File is a fully buffered uploaded file.
type File struct {
	Filename string `json:"filename"`
	Encoding string `json:"encoding,omitempty"`
	MIMEType string `json:"mimetype,omitempty"`
	Data     []byte `json:"data"`
}

// Value is a field value: text for ordinary inputs, File for uploads.
type Value struct {
	Text string
	File *File
}

// String returns the text value or the filename of a file value.
func (v Value) String() string {
	if v.File != nil {
		return v.File.Filename
	}
	return v.Text
}

// Result is the outcome of parsing one submission. Each map is nil when empty,
// so `res.Errors == nil` is the single check for "valid".
type Result struct {
	Values map[string]Value
	Errors map[string]string
	Extras map[string]Value
	// Rejected holds the submitted text of fields that failed a rule.
	Rejected map[string]string
}

// OK reports whether no field failed validation.
func (r *Result) OK() bool {
	return r != nil && r.Errors == nil
}

// Get returns the text of a validated value, or "" when absent.
func (r *Result) Get(name string) string {
	if r == nil || r.Values == nil {
		return ""
	}
	return r.Values[name].String()
}

// Has reports whether name produced a validated value.
func (r *Result) Has(name string) bool {
	if r == nil || r.Values == nil {
		return false
	}
	_, ok := r.Values[name]
	return ok
}

// AddError records a caller-side validation failure (cross-field checks).
func (r *Result) AddError(name, reason string) {
	if r.Errors == nil {
		r.Errors = make(map[string]string)
	}
	r.Errors[name] = reason
}

// Texts returns the validated values as plain strings.
func (r *Result) Texts() map[string]string {
	if r == nil || r.Values == nil {
		return nil
	}
	out := make(map[string]string, len(r.Values))
	for k, v := range r.Values {
		out[k] = v.String()
	}
	return out
}

// Submitted returns what the visitor typed for every declared field, valid or
// not, for re-rendering a form. It is nil when nothing was submitted.
func (r *Result) Submitted() map[string]string {
	out := r.Texts()
	if r == nil || r.Rejected == nil {
		return out
	}
	if out == nil {
		out = make(map[string]string, len(r.Rejected))
	}
	for k, v := range r.Rejected {
		out[k] = v
	}
	return out
}

// Spec is a compiled, ordered list of field specs.
type Spec struct {
	fields   []FieldSpec
	byName   map[string]int
	patterns map[string]*regexp.Regexp
	layouts  map[string]string
}

// Compile validates the field specs and precompiles patterns and date layouts.
func Compile(fields ...FieldSpec) (*Spec, error) {
	s := &Spec{
		fields:   append([]FieldSpec(nil), fields...),
		byName:   make(map[string]int, len(fields)),
		patterns: make(map[string]*regexp.Regexp),
		layouts:  make(map[string]string),
	}
	for i, f := range s.fields {
		if f.Name == "" {
			return nil, errors.New("field name is required")
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		if f.Type == "" {
			s.fields[i].Type = TypeText
		}
		s.byName[f.Name] = i
		if f.Pattern != "" {
			re, err := regexp.Compile("^(?:" + f.Pattern + ")$")
			if err != nil {
				return nil, fmt.Errorf("field %q pattern: %w", f.Name, err)
			}
			s.patterns[f.Name] = re
		}
		if f.isDate() {
			if f.DateFormat == "" {
				return nil, fmt.Errorf("field %q: date format is required", f.Name)
			}
			s.layouts[f.Name] = goLayout(f.DateFormat)
		}
		if f.Type == TypeSelect && len(f.Options) == 0 {
			return nil, fmt.Errorf("field %q: select requires options", f.Name)
		}
	}
	return s, nil
}

// MustCompile is like Compile but panics on an invalid spec. Use for package-level specs.
func MustCompile(fields ...FieldSpec) *Spec {
	s, err := Compile(fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Fields returns a copy of the declared fields in order.
func (s *Spec) Fields() []FieldSpec {
	return append([]FieldSpec(nil), s.fields...)
}

// Field returns the spec for name.
func (s *Spec) Field(name string) (FieldSpec, bool) {
	i, ok := s.byName[name]
	if !ok {
		return FieldSpec{}, false
	}
	return s.fields[i], true
}
