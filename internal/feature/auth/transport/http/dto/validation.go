package dto

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const msgInvalidSubmission = "Invalid form submission."

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("maxbytes", maxBytes)
	}
}

// maxBytes limits the encoded length of a string field. bcrypt only accepts
// passwords up to 72 bytes.
func maxBytes(fl validator.FieldLevel) bool {
	n, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= n
}

// FieldErrors maps a form field name to its first validation message.
// An empty map means the form was accepted.
type FieldErrors map[string]string

// Bind decodes the request's form body into form and validates it.
func Bind(r *http.Request, form any) FieldErrors {
	if err := r.ParseForm(); err != nil {
		return FieldErrors{"": msgInvalidSubmission}
	}
	if err := binding.MapFormWithTag(form, r.PostForm, "form"); err != nil {
		return FieldErrors{"": msgInvalidSubmission}
	}
	return Validate(form)
}

// Validate checks a bound form against its binding tags. It performs no I/O.
func Validate(form any) FieldErrors {
	if err := binding.Validator.ValidateStruct(form); err != nil {
		return fieldErrorsFrom(form, err)
	}
	return FieldErrors{}
}

// fieldErrorsFrom converts a validation error into per-field messages keyed by
// the form tag of the offending field. Errors that are not validator errors
// are reported under the empty key.
func fieldErrorsFrom(form any, err error) FieldErrors {
	out := FieldErrors{}
	if err == nil {
		return out
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out[""] = msgInvalidSubmission
		return out
	}

	for _, fe := range verrs {
		name := formName(form, fe.StructField())
		if _, seen := out[name]; seen {
			continue
		}
		out[name] = message(form, fe)
	}
	return out
}

func structField(form any, name string) (reflect.StructField, bool) {
	t := reflect.TypeOf(form)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return reflect.StructField{}, false
	}
	return t.FieldByName(name)
}

func formName(form any, name string) string {
	if f, ok := structField(form, name); ok {
		if tag := f.Tag.Get("form"); tag != "" {
			return tag
		}
	}
	return name
}

// lengthBounds returns the min and max params declared in the field's binding tag.
func lengthBounds(form any, name string) (lo, hi string) {
	f, ok := structField(form, name)
	if !ok {
		return "", ""
	}
	for _, rule := range strings.Split(f.Tag.Get("binding"), ",") {
		if v, ok := strings.CutPrefix(rule, "min="); ok {
			lo = v
		}
		if v, ok := strings.CutPrefix(rule, "max="); ok {
			hi = v
		}
	}
	return lo, hi
}

func message(form any, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "min", "max":
		lo, hi := lengthBounds(form, fe.StructField())
		switch {
		case lo != "" && hi != "":
			return fmt.Sprintf("Field must be between %s and %s characters long.", lo, hi)
		case fe.Tag() == "min":
			return fmt.Sprintf("Field must be at least %s characters long.", fe.Param())
		default:
			return fmt.Sprintf("Field cannot be longer than %s characters.", fe.Param())
		}
	case "maxbytes":
		return fmt.Sprintf("Field cannot be longer than %s bytes.", fe.Param())
	case "eqfield":
		return "Passwords must match."
	default:
		return "Invalid value."
	}
}
