package handlers

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Shared validator instance (validator.Validate caches struct metadata)
var validate = validator.New()

// ValidateRequest validates a request struct against its validate tags and
// returns a message naming the first failing field.
func ValidateRequest(req interface{}) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
		return fmt.Errorf("validation failed: %s: %s", ve[0].Field(), formatValidationError(ve[0]))
	}
	return fmt.Errorf("validation failed: %w", err)
}

// formatValidationError converts a validator FieldError to a readable message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "ce champ est requis"
	case "email":
		return "adresse email invalide"
	case "min":
		return fmt.Sprintf("minimum %s caractères", fe.Param())
	case "max":
		return fmt.Sprintf("maximum %s caractères", fe.Param())
	case "len":
		return fmt.Sprintf("doit contenir exactement %s caractères", fe.Param())
	case "oneof":
		return fmt.Sprintf("valeurs autorisées: %s", fe.Param())
	case "numeric":
		return "doit être numérique"
	case "uuid":
		return "identifiant invalide"
	case "gt":
		return fmt.Sprintf("doit être supérieur à %s", fe.Param())
	default:
		return fmt.Sprintf("validation échouée: %s", fe.Tag())
	}
}
