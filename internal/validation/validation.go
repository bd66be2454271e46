package validation

import (
	"fmt"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// Error reports which payload fields failed validation. It never echoes the
// offending values, only field names and rule tags.
type Error struct {
	Fields []string
}

func (e *Error) Error() string {
	return "validation failed: " + strings.Join(e.Fields, ", ")
}

type Validator struct {
	validate *validatorv10.Validate
}

// New returns a configured validator.
func New() *Validator {
	return &Validator{validate: validatorv10.New()}
}

// Struct validates the tagged fields of s and folds the result into *Error.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validatorv10.ValidationErrors)
	if !ok {
		return err
	}
	out := &Error{Fields: make([]string, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
	}
	return out
}
