// Package validator wraps go-playground struct validation behind one
// package-level entry point, reporting failures by JSON field name so the
// API surface never leaks Go identifiers.
package validator

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var instance = sync.OnceValue(func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonFieldName)
	return v
})

// FieldError describes one failed rule on one field.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

func (e FieldError) String() string {
	if e.Param != "" {
		return e.Field + " failed on " + e.Tag + "=" + e.Param
	}
	return e.Field + " failed on " + e.Tag
}

// ValidationErrors collects every failed rule from a single struct check.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.String()
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct checks s against its binding tags. On failure it returns
// ValidationErrors keyed by JSON field name.
func ValidateStruct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}

	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	failures := make(ValidationErrors, 0, len(ve))
	for _, fe := range ve {
		failures = append(failures, FieldError{
			Field: fe.Field(),
			Tag:   fe.Tag(),
			Param: fe.Param(),
		})
	}
	return failures
}

// RegisterValidation installs a custom rule under the given tag.
func RegisterValidation(tag string, fn validator.Func) error {
	return instance().RegisterValidation(tag, fn)
}

// jsonFieldName resolves a struct field to the name API clients see. Fields
// without a usable json tag keep their Go name.
func jsonFieldName(fld reflect.StructField) string {
	name := fld.Tag.Get("json")
	if comma := strings.Index(name, ","); comma != -1 {
		name = name[:comma]
	}
	if name == "" || name == "-" {
		return fld.Name
	}
	return name
}
