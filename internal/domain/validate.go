package domain

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

// validatorOnce lazily builds the shared validator instance; go-playground's
// validator.New() does reflection-based struct-tag caching internally so a
// single shared instance is the idiomatic usage (mirrors how the teacher's
// indirect dependency on this package was intended to be wired, never
// actually exercised there).
var (
	validatorOnce sync.Once
	structValidator *validator.Validate
)

func sharedValidator() *validator.Validate {
	validatorOnce.Do(func() {
		structValidator = validator.New()
	})
	return structValidator
}

// ValidateStruct runs go-playground/validator's struct-tag checks (see the
// `validate:"..."` tags on Instrument) and wraps any failure as
// ErrValidation.
func ValidateStruct(v any) error {
	if err := sharedValidator().Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
