// Package validation holds the login field rules and the request validator
// shared by the console and the development auth API.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"horizonx-console/internal/domain"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// fieldRules are evaluated tag by tag; the first failing tag wins.
var fieldRules = map[domain.FieldID][]string{
	domain.FieldEmail:    {"required", "email"},
	domain.FieldPassword: {"required", "min=6", "max=20"},
}

type Result struct {
	Valid bool
	Error string
}

// Field validates a single login field value.
func Field(id domain.FieldID, value string) Result {
	if !id.Known() {
		return Result{Error: fmt.Sprintf("The %s field is invalid.", id.Label())}
	}

	for _, tag := range fieldRules[id] {
		err := validate.Var(value, tag)
		if err == nil {
			continue
		}

		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			return Result{Error: message(id.Label(), validationErrors[0])}
		}
		return Result{Error: fmt.Sprintf("The %s field is invalid.", id.Label())}
	}

	return Result{Valid: true}
}

// Struct validates a tagged request payload and returns messages keyed by the
// lower-cased field name.
func Struct(payload any) map[string]string {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	errs := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fe := range validationErrors {
			fieldName := strings.ToLower(fe.Field())
			if _, exists := errs[fieldName]; exists {
				continue
			}
			errs[fieldName] = message(fe.Field(), fe)
		}
	}

	return errs
}

func message(name string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", name)
	case "min":
		return fmt.Sprintf("The %s must be at least %s characters.", name, fe.Param())
	case "max":
		return fmt.Sprintf("The %s may not be greater than %s characters.", name, fe.Param())
	case "eqfield":
		return fmt.Sprintf("The %s field must be equal to %s field.", name, fe.Param())
	default:
		return fmt.Sprintf("The %s field is invalid.", name)
	}
}
