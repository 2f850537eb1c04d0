package httpx

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// NewValidator returns the validator used by every form.
func NewValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

// FieldErrors turns validator failures into one Spanish message per field.
// labels maps struct field names to the words shown in the form.
func FieldErrors(err error, labels map[string]string) map[string]string {
	out := make(map[string]string)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["general"] = err.Error()
		return out
	}
	for _, fe := range verrs {
		label := labels[fe.Field()]
		if label == "" {
			label = fe.Field()
		}
		out[fe.Field()] = fieldMessage(label, fe)
	}
	return out
}

func fieldMessage(label string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s es obligatorio.", label)
	case "email":
		return fmt.Sprintf("%s no es un correo válido.", label)
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s debe tener al menos %s caracteres.", label, fe.Param())
		}
		return fmt.Sprintf("%s debe ser al menos %s.", label, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s admite como máximo %s caracteres.", label, fe.Param())
		}
		return fmt.Sprintf("%s debe ser como máximo %s.", label, fe.Param())
	case "gte":
		return fmt.Sprintf("%s debe ser mayor o igual a %s.", label, fe.Param())
	case "gt":
		return fmt.Sprintf("%s debe ser mayor que %s.", label, fe.Param())
	case "eqfield":
		return fmt.Sprintf("%s no coincide.", label)
	case "oneof":
		return fmt.Sprintf("%s no es una opción válida.", label)
	default:
		return fmt.Sprintf("%s no es válido.", label)
	}
}
