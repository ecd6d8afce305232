package bragapi

import "fmt"

// FieldType names the JSON value types ValidateResponse can require.
type FieldType string

const (
	TypeString FieldType = "string"
	TypeNumber FieldType = "number"
	TypeBool   FieldType = "bool"
	TypeArray  FieldType = "array"
	TypeObject FieldType = "object"
)

// ValidateResponse checks that a decoded payload is a JSON object carrying
// every required top-level field, and optionally that fields have the
// expected value types. It is applied by the caller after a successful
// CallResult, not inline in the transport path.
func ValidateResponse(payload any, requiredFields []string, expectedTypes map[string]FieldType) *APIError {
	obj, ok := payload.(map[string]any)
	if !ok {
		return newAPIError(KindValidation, "response payload is not a JSON object", "", 0, nil, map[string]any{
			"payload_type": fmt.Sprintf("%T", payload),
		})
	}

	for _, field := range requiredFields {
		if _, ok := obj[field]; !ok {
			return newAPIError(KindValidation, "response missing required field "+field, "", 0, nil, map[string]any{
				"field": field,
			})
		}
	}

	for field, want := range expectedTypes {
		value, ok := obj[field]
		if !ok {
			continue
		}
		if !matchesType(value, want) {
			return newAPIError(KindValidation, fmt.Sprintf("response field %s is not a %s", field, want), "", 0, nil, map[string]any{
				"field":       field,
				"expected":    string(want),
				"actual_type": fmt.Sprintf("%T", value),
			})
		}
	}
	return nil
}

func matchesType(value any, want FieldType) bool {
	switch want {
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeNumber:
		// encoding/json decodes all JSON numbers into float64.
		_, ok := value.(float64)
		return ok
	case TypeBool:
		_, ok := value.(bool)
		return ok
	case TypeArray:
		_, ok := value.([]any)
		return ok
	case TypeObject:
		_, ok := value.(map[string]any)
		return ok
	default:
		return false
	}
}
