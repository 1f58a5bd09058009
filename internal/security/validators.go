package security

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/BradenHooton/giftgate/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	employeeIDPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]{3,50}$`)
	serialNumberPattern = regexp.MustCompile(`^[A-Za-z0-9-]{6,50}$`)
)

// Shared validator instance with the credential tags registered
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("employee_id", func(fl validator.FieldLevel) bool {
		return employeeIDPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("serial_number", func(fl validator.FieldLevel) bool {
		return serialNumberPattern.MatchString(fl.Field().String())
	})
	return v
}

// Validator returns the validator used for credential formats.
// Request DTOs may use the employee_id and serial_number tags.
func Validator() *validator.Validate {
	return validate
}

func ValidateEmailFormat(s string) bool {
	return validate.Var(s, "required,email,max=254") == nil
}

// ValidateEmployeeID accepts 3-50 letters, digits, underscores or hyphens
func ValidateEmployeeID(s string) bool {
	return validate.Var(s, "required,employee_id") == nil
}

// ValidateSerialNumber accepts 6-50 letters, digits or hyphens
func ValidateSerialNumber(s string) bool {
	return validate.Var(s, "required,serial_number") == nil
}

// ValidateCredential checks value against the format rules of method.
// Returned errors wrap models.ErrInvalidFormat.
func ValidateCredential(method models.ValidationMethod, value string) error {
	var ok bool
	switch method {
	case models.MethodEmail:
		ok = ValidateEmailFormat(value)
	case models.MethodEmployeeID:
		ok = ValidateEmployeeID(value)
	case models.MethodSerialCard:
		ok = ValidateSerialNumber(value)
	case models.MethodMagicLink:
		ok = strings.TrimSpace(value) != ""
	default:
		return fmt.Errorf("unknown validation method %q: %w", method, models.ErrBadRequest)
	}

	if !ok {
		return fmt.Errorf("%s: %w", method, models.ErrInvalidFormat)
	}
	return nil
}
