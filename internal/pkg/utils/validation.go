package utils

import (
	"carelink-service/internal/pkg/exceptions"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct runs tag validation and converts the first failure into a
// client-readable error.
func ValidateStruct(input interface{}) error {
	if err := validate.Struct(input); err != nil {
		return exceptions.ErrInputValidation(err)
	}
	return nil
}
