package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// uuid.Nil passes "required" because it is a zero-filled array, so UUID
	// fields carry their own presence tag.
	v.RegisterValidation("uuid_required", func(fl validator.FieldLevel) bool {
		id, ok := fl.Field().Interface().(uuid.UUID)
		return ok && id != uuid.Nil
	})

	return v
}

// ValidateStruct runs the struct's validate tags and reports the first
// violation as an error suitable for a client-facing message.
func ValidateStruct(data interface{}) error {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	violations, ok := err.(validator.ValidationErrors)
	if !ok || len(violations) == 0 {
		return err
	}

	first := violations[0]
	field := first.StructNamespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	if first.Param() != "" {
		return fmt.Errorf("field '%s' failed on tag '%s=%s'", field, first.Tag(), first.Param())
	}
	return fmt.Errorf("field '%s' failed on tag '%s'", field, first.Tag())
}
