// internal/app/system/inputval/inputval.go
//
// Package inputval validates request input and collects user-facing
// field errors. Request structs declare their rules with `validate` tags
// and a human `label`; Validate runs them through WAFFLE's validator and
// rewrites the messages into sentences. The Result builder methods cover
// partial updates where a field is only checked when present.
package inputval

import (
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/validate"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Layouts accepted by the "isodate" and "clock" rules.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var validator = newValidator()

func newValidator() *validate.Validator {
	v := validate.New()
	// "email" is replaced so tags and IsValidEmail agree.
	v.RegisterRuleFunc("email", func(x any) bool {
		s, _ := x.(string)
		return s == "" || IsValidEmail(s)
	}, "email")
	v.RegisterRuleFunc("objectid", func(x any) bool {
		s, _ := x.(string)
		return s == "" || IsValidObjectID(s)
	}, "objectid")
	v.RegisterRuleFunc("httpurl", func(x any) bool {
		s, _ := x.(string)
		return strings.TrimSpace(s) == "" || IsValidHTTPURL(s)
	}, "httpurl")
	v.RegisterRuleFunc("clock", func(x any) bool {
		s, _ := x.(string)
		_, err := time.Parse(ClockLayout, s)
		return s == "" || err == nil
	}, "clock")
	v.RegisterRuleFunc("isodate", func(x any) bool {
		s, _ := x.(string)
		_, err := time.Parse(DateLayout, s)
		return s == "" || err == nil
	}, "isodate")
	return v
}

// IsValidEmail reports whether s is a bare "user@host.tld" address.
// WAFFLE's SimpleEmailValid supplies the shape check; spaces, display-name
// forms and misplaced dots are rejected on top of it.
func IsValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if !validate.SimpleEmailValid(s) || strings.ContainsAny(s, " \t<>,;\"") {
		return false
	}
	at := strings.LastIndex(s, "@")
	local, domain := s[:at], s[at+1:]
	return !strings.Contains(local, "@") && dotsOK(local) && dotsOK(domain)
}

func dotsOK(part string) bool {
	if part == "" || strings.HasPrefix(part, ".") || strings.HasSuffix(part, ".") {
		return false
	}
	return !strings.Contains(part, "..")
}

// IsValidObjectID reports whether s is a 24-character hex ObjectID.
func IsValidObjectID(s string) bool {
	return primitive.IsValidObjectID(strings.TrimSpace(s))
}

// IsValidHTTPURL reports whether s is an absolute http(s) URL with a host.
func IsValidHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// FieldError is one failed check.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result accumulates field errors.
type Result struct {
	Errors []FieldError
}

// Validate checks s against its `validate` tags. Messages use each
// field's `label` tag, falling back to the field name.
func Validate(s any) Result {
	var r Result
	err := validator.Struct(s)
	if err == nil {
		return r
	}
	errs, ok := err.(validate.Errors)
	if !ok {
		r.Add("", err.Error())
		return r
	}
	labels := map[string]string{}
	t := reflect.TypeOf(s)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	collectLabels(t, "", labels)
	for _, e := range errs {
		label, ok := labels[stripIndexes(e.Field)]
		if !ok {
			label = e.Field
		}
		r.Add(e.Field, message(e, label))
	}
	return r
}

// collectLabels mirrors how the validator names fields: json name first,
// nested structs joined with ".".
func collectLabels(t reflect.Type, prefix string, out map[string]string) {
	if t.Kind() != reflect.Struct {
		return
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag := strings.Split(f.Tag.Get("json"), ",")[0]; tag != "" && tag != "-" {
			name = tag
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		if l := f.Tag.Get("label"); l != "" {
			out[name] = l
		}
		ft := f.Type
		for ft.Kind() == reflect.Ptr || ft.Kind() == reflect.Slice {
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Struct && ft != reflect.TypeOf(time.Time{}) {
			collectLabels(ft, name, out)
		}
	}
}

func stripIndexes(field string) string {
	var b strings.Builder
	skip := false
	for _, c := range field {
		switch {
		case c == '[':
			skip = true
		case c == ']':
			skip = false
		case !skip:
			b.WriteRune(c)
		}
	}
	return b.String()
}

func message(e *validate.Error, label string) string {
	_, isString := e.Value.(string)
	switch e.Rule {
	case "required":
		return label + " is required."
	case "email":
		return "A valid email address is required."
	case "objectid":
		return label + " is not a valid id."
	case "httpurl":
		return label + " must be a valid http or https URL."
	case "clock":
		return label + " must be a time like 18:30."
	case "isodate":
		return label + " must be a date like 2026-08-30."
	case "oneof":
		opts := strings.Fields(e.Param)
		for i, o := range opts {
			opts[i] = strings.ReplaceAll(o, "_", " ")
		}
		return fmt.Sprintf("%s must be one of: %s.", label, strings.Join(opts, ", "))
	case "between":
		lo, hi, _ := strings.Cut(e.Param, "|")
		return fmt.Sprintf("%s must be between %s and %s.", label, lo, hi)
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters.", label, e.Param)
		}
		return fmt.Sprintf("%s must be at least %s.", label, e.Param)
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters.", label, e.Param)
		}
		return fmt.Sprintf("%s must be at most %s.", label, e.Param)
	}
	return e.Message
}

// HasErrors reports whether any check failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// First returns the first error message, or "".
func (r *Result) First() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// All joins every message with "; ".
func (r *Result) All() string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

// Add records a failure.
func (r *Result) Add(field, msg string) {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: msg})
}

// Merge appends other's errors.
func (r *Result) Merge(other Result) *Result {
	r.Errors = append(r.Errors, other.Errors...)
	return r
}

// Struct validates a nested object that a partial update supplies in full.
// Its field names are prefixed with prefix.
func (r *Result) Struct(prefix string, s any) *Result {
	sub := Validate(s)
	for _, e := range sub.Errors {
		field := e.Field
		if prefix != "" {
			field = prefix + "." + field
		}
		r.Add(field, e.Message)
	}
	return r
}

// check runs a single tag against v.
func (r *Result) check(field, label string, v any, tag string) *Result {
	err := validator.Var(v, tag)
	if err == nil {
		return r
	}
	if errs, ok := err.(validate.Errors); ok {
		for _, e := range errs {
			r.Add(field, message(e, label))
		}
		return r
	}
	r.Add(field, err.Error())
	return r
}

// Required fails when v is blank.
func (r *Result) Required(field, label, v string) *Result {
	return r.check(field, label, v, "required")
}

// MaxLen fails when v has more than max runes.
func (r *Result) MaxLen(field, label, v string, max int) *Result {
	return r.check(field, label, v, fmt.Sprintf("max=%d", max))
}

// MinLen fails when trimmed v has fewer than min runes.
func (r *Result) MinLen(field, label, v string, min int) *Result {
	return r.check(field, label, strings.TrimSpace(v), fmt.Sprintf("min=%d", min))
}

// Email fails when v is not a valid address.
func (r *Result) Email(field, v string) *Result {
	if strings.TrimSpace(v) == "" {
		r.Add(field, "A valid email address is required.")
		return r
	}
	return r.check(field, "Email", strings.TrimSpace(v), "email")
}

// Range fails when v is outside [min, max].
func (r *Result) Range(field, label string, v, min, max int) *Result {
	return r.check(field, label, v, fmt.Sprintf("between=%d|%d", min, max))
}

// OneOf fails when v is not among allowed. Values may contain spaces.
func (r *Result) OneOf(field, label, v string, allowed ...string) *Result {
	opts := make([]string, len(allowed))
	for i, a := range allowed {
		opts[i] = strings.ReplaceAll(a, " ", "_")
	}
	tag := "oneof=" + strings.Join(opts, " ")
	if v == "" {
		r.Add(field, message(&validate.Error{Rule: "oneof", Param: strings.Join(opts, " ")}, label))
		return r
	}
	return r.check(field, label, strings.ReplaceAll(v, " ", "_"), tag)
}

// ObjectID fails when v is not an ObjectID hex string.
func (r *Result) ObjectID(field, label, v string) *Result {
	if strings.TrimSpace(v) == "" {
		r.Add(field, label+" is not a valid id.")
		return r
	}
	return r.check(field, label, v, "objectid")
}

// URL fails when v is non-empty and not an http(s) URL.
func (r *Result) URL(field, label, v string) *Result {
	return r.check(field, label, v, "httpurl")
}
