package auth

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/tm-acme-shop/acme-shop-storefront/internal/errors"
)

var fieldNames = map[string]string{
	"Name":            "name",
	"Email":           "email",
	"Password":        "password",
	"ConfirmPassword": "confirmPassword",
	"Token":           "token",
}

var requiredMessages = map[string]string{
	"name":            "Name is required",
	"email":           "Email is required",
	"password":        "Password is required",
	"confirmPassword": "Confirm Password is required",
	"token":           "Reset token is required",
}

// newValidator adds maxbytes, a byte length limit. bcrypt refuses
// passwords longer than 72 bytes.
func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		n, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= n
	})
	return v
}

func (s *Service) validateStruct(v interface{}) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	return formatValidationErrors(validationErrors)
}

// formatValidationErrors turns validator output into one ValidationError
// whose details hold a message per failing field.
func formatValidationErrors(errs validator.ValidationErrors) *errors.ValidationError {
	details := make(map[string]string, len(errs))
	first := ""
	for _, fe := range errs {
		field, ok := fieldNames[fe.Field()]
		if !ok {
			field = fe.Field()
		}
		if _, seen := details[field]; seen {
			continue
		}

		var msg string
		switch fe.Tag() {
		case "required":
			msg = requiredMessages[field]
		case "email":
			msg = "Invalid email"
		case "min":
			msg = "Password must be at least " + fe.Param() + " characters"
		case "maxbytes":
			msg = "Password is too long"
		case "eqfield":
			msg = "Passwords must match"
		default:
			msg = "Invalid value"
		}
		details[field] = msg
		if first == "" {
			first = field
		}
	}

	verr := errors.NewValidationError(first, details[first])
	verr.Details = details
	return verr
}
