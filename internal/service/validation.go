package service

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return validate
}

// describeItem converts the first validator failure of a list item into a ValidationError.
func describeItem(list string, index int, err error) error {
	prefix := fmt.Sprintf("%s[%d]", list, index)

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return validationErrorf("%s is invalid", prefix)
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return validationErrorf("%s.%s is required", prefix, fe.Field())
	case "gt":
		return validationErrorf("%s.%s must be greater than %s", prefix, fe.Field(), fe.Param())
	case "gte":
		return validationErrorf("%s.%s must be at least %s", prefix, fe.Field(), fe.Param())
	default:
		return validationErrorf("%s.%s is invalid", prefix, fe.Field())
	}
}

func finite(value float64) bool {
	return !math.IsNaN(value) && !math.IsInf(value, 0)
}
