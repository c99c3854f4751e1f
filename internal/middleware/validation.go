package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "scorecli/internal/errors"
	"scorecli/pkg/contracts/domain"
)

// Validator checks request parameter structs using struct tags
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator with the API's custom tags: datekey
// accepts a YYYYMMDD date and sheetname an Excel sheet name.
func NewValidator() *Validator {
	v := validator.New()

	v.RegisterValidation("datekey", isDateKey)
	v.RegisterValidation("sheetname", isSheetName)

	// Use query tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	return &Validator{validate: v}
}

// ValidateStruct returns an APIError listing every failed field
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.New(http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	}

	out := make([]apperrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, apperrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apperrors.NewValidationErrors(out)
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "datekey":
		return fmt.Sprintf("%s must be a date in YYYYMMDD form", fe.Field())
	case "sheetname":
		return fmt.Sprintf("%s is not a valid sheet name", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func isDateKey(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := domain.ParseDateKey(s)
	return err == nil
}

func isSheetName(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || len([]rune(name)) > 31 {
		return false
	}
	return !strings.ContainsAny(name, `[]:*?/\`)
}
