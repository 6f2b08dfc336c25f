package api

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var personNamePattern = regexp.MustCompile(`^[\p{L}\s]+$`)

// newValidator returns a validator with the "personname" rule registered:
// letters and whitespace only. Panics if a rule cannot be registered.
func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("personname", func(fl validator.FieldLevel) bool {
		return personNamePattern.MatchString(fl.Field().String())
	}); err != nil {
		panic("api: register personname validation: " + err.Error())
	}
	return v
}

// describeValidation turns validator errors into one readable line.
func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeField(fe))
	}
	return strings.Join(msgs, "; ")
}

func describeField(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if fe.Kind().String() == "slice" {
			return field + " must contain at least " + fe.Param() + " item(s)"
		}
		return field + " must be at least " + fe.Param() + " characters"
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "personname":
		return field + " must contain only letters and spaces"
	}
	return field + " is invalid (" + fe.Tag() + ")"
}
