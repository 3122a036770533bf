package domain

import (
	"fmt"
	"strings"
)

// ValidateInputs checks user inputs against a content type's inputs contract.
// Violations wrap ErrValidation; orchestration never starts for a project
// that fails here.
func ValidateInputs(contract []InputField, inputs map[string]any) error {
	for _, field := range contract {
		value, ok := inputs[field.Key]
		if !ok || value == nil {
			if field.Required {
				return fmt.Errorf("%w: field %q is required", ErrValidation, field.Key)
			}
			continue
		}
		if err := validateField(field, value); err != nil {
			return err
		}
	}
	return nil
}

func validateField(field InputField, value any) error {
	switch field.Type {
	case InputTypeString:
		s, ok := value.(string)
		if !ok {
			return typeError(field, "string")
		}
		if field.Required && strings.TrimSpace(s) == "" {
			return fmt.Errorf("%w: field %q must not be empty", ErrValidation, field.Key)
		}
		if field.MaxLength > 0 && len(s) > field.MaxLength {
			return fmt.Errorf("%w: field %q exceeds %d characters", ErrValidation, field.Key, field.MaxLength)
		}
	case InputTypeNumber:
		n, ok := toFloat(value)
		if !ok {
			return typeError(field, "number")
		}
		if field.Min != nil && n < *field.Min {
			return fmt.Errorf("%w: field %q below minimum %v", ErrValidation, field.Key, *field.Min)
		}
		if field.Max != nil && n > *field.Max {
			return fmt.Errorf("%w: field %q above maximum %v", ErrValidation, field.Key, *field.Max)
		}
	case InputTypeBoolean:
		if _, ok := value.(bool); !ok {
			return typeError(field, "boolean")
		}
	case InputTypeEnum:
		s, ok := value.(string)
		if !ok {
			return typeError(field, "enum value")
		}
		for _, allowed := range field.Values {
			if s == allowed {
				return nil
			}
		}
		return fmt.Errorf("%w: field %q must be one of %v", ErrValidation, field.Key, field.Values)
	case InputTypeList:
		items, ok := toList(value)
		if !ok {
			return typeError(field, "list")
		}
		if field.Required && len(items) == 0 {
			return fmt.Errorf("%w: field %q must not be empty", ErrValidation, field.Key)
		}
		for _, item := range items {
			if field.MaxLength > 0 && len(item) > field.MaxLength {
				return fmt.Errorf("%w: field %q entry exceeds %d characters", ErrValidation, field.Key, field.MaxLength)
			}
		}
	default:
		return fmt.Errorf("%w: field %q has unknown type %q", ErrValidation, field.Key, field.Type)
	}
	return nil
}

func typeError(field InputField, want string) error {
	return fmt.Errorf("%w: field %q must be a %s", ErrValidation, field.Key, want)
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func toList(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			items = append(items, s)
		}
		return items, true
	}
	return nil, false
}
