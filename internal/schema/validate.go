package schema

import (
	"fmt"
)

// Failure describes a single schema violation, anchored to the field path
// that caused it (e.g. "service" or "filters.time_range").
type Failure struct {
	Field     string
	Violation string
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s", f.Field, f.Violation)
}

// Validate checks args against schemaObj (an object-type JSON-schema
// fragment as produced by Generate or hand-written inline), materializing
// any declared defaults into the returned map. On the first violation it
// returns a non-nil Failure and a nil map.
func Validate(schemaObj map[string]any, args map[string]any) (map[string]any, *Failure) {
	if args == nil {
		args = map[string]any{}
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}

	if err := validateObject("", schemaObj, out); err != nil {
		return nil, err
	}
	return out, nil
}

func validateObject(path string, schemaObj map[string]any, data map[string]any) *Failure {
	properties, _ := schemaObj["properties"].(map[string]any)
	required, _ := schemaObj["required"].([]any)
	additionalProperties, hasAdditional := schemaObj["additionalProperties"]

	requiredSet := make(map[string]struct{}, len(required))
	for _, r := range required {
		if name, ok := r.(string); ok {
			requiredSet[name] = struct{}{}
		}
	}

	// Materialize defaults and recursively validate known properties.
	for name, rawPropSchema := range properties {
		propSchema, _ := rawPropSchema.(map[string]any)
		fieldPath := joinPath(path, name)

		value, present := data[name]
		if !present {
			if def, hasDefault := propSchema["default"]; hasDefault {
				data[name] = def
				value = def
				present = true
			}
		}

		if !present {
			if _, isRequired := requiredSet[name]; isRequired {
				return &Failure{Field: fieldPath, Violation: "required field is missing"}
			}
			continue
		}

		if err := validateValue(fieldPath, propSchema, value); err != nil {
			return err
		}
	}

	// Reject unknown fields unless additionalProperties:true.
	allowAdditional := hasAdditional && additionalProperties == true
	if !allowAdditional {
		for name := range data {
			if _, known := properties[name]; !known {
				return &Failure{Field: joinPath(path, name), Violation: "unknown field not declared in schema"}
			}
		}
	}

	return nil
}

func validateValue(path string, propSchema map[string]any, value any) *Failure {
	if propSchema == nil {
		return nil
	}

	typeName, _ := propSchema["type"].(string)
	if enum, ok := propSchema["enum"].([]any); ok {
		if !containsAny(enum, value) {
			return &Failure{Field: path, Violation: fmt.Sprintf("value %v is not one of the allowed values", value)}
		}
	}

	switch typeName {
	case "string":
		if _, ok := value.(string); !ok {
			return &Failure{Field: path, Violation: "expected a string"}
		}
	case "integer":
		if !isIntegerJSONValue(value) {
			return &Failure{Field: path, Violation: "expected an integer"}
		}
	case "number":
		if !isNumberJSONValue(value) {
			return &Failure{Field: path, Violation: "expected a number"}
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return &Failure{Field: path, Violation: "expected a boolean"}
		}
	case "array":
		arr, ok := value.([]any)
		if !ok {
			return &Failure{Field: path, Violation: "expected an array"}
		}
		itemSchema, _ := propSchema["items"].(map[string]any)
		if itemSchema != nil {
			for i, item := range arr {
				if err := validateValue(fmt.Sprintf("%s[%d]", path, i), itemSchema, item); err != nil {
					return err
				}
			}
		}
	case "object":
		nested, ok := value.(map[string]any)
		if !ok {
			return &Failure{Field: path, Violation: "expected an object"}
		}
		return validateObject(path, propSchema, nested)
	case "":
		// No declared type: accept anything (e.g. a schema that only
		// constrains via enum, or a free-form field).
	default:
		return &Failure{Field: path, Violation: fmt.Sprintf("unsupported schema type %q", typeName)}
	}

	return nil
}

func isIntegerJSONValue(v any) bool {
	switch n := v.(type) {
	case int, int32, int64:
		return true
	case float64:
		return n == float64(int64(n))
	default:
		return false
	}
}

func isNumberJSONValue(v any) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}

func containsAny(haystack []any, needle any) bool {
	for _, h := range haystack {
		if fmt.Sprintf("%v", h) == fmt.Sprintf("%v", needle) {
			return true
		}
	}
	return false
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}
