// Package validator plugs the shared struct validator into echo.
package validator

import (
	"threads/internal/util"
)

// CustomValidator implements echo.Validator.
type CustomValidator struct{}

// New returns the validator installed on the echo instance.
func New() *CustomValidator {
	return &CustomValidator{}
}

// Validate checks the validate tags of i.
func (cv *CustomValidator) Validate(i any) error {
	return util.ValidateStruct(i)
}
