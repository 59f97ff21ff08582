package gateway

import (
	"encoding/json"
	"fmt"
)

// CleanDocument strips null object fields and null array elements from a JSON
// document, recursively. Stored documents never carry nulls: the wire format
// treats an absent field and a null field as the same thing, and nulls only
// waste space against the size ceiling. Cleaning is idempotent.
func CleanDocument(doc json.RawMessage) (json.RawMessage, error) {
	var v any
	if err := json.Unmarshal(doc, &v); err != nil {
		return nil, fmt.Errorf("gateway.CleanDocument: %w", err)
	}

	cleaned, err := json.Marshal(cleanValue(v))
	if err != nil {
		return nil, fmt.Errorf("gateway.CleanDocument: %w", err)
	}
	return cleaned, nil
}

func cleanValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			if elem == nil {
				continue
			}
			out[k] = cleanValue(elem)
		}
		return out
	case []any:
		out := make([]any, 0, len(val))
		for _, elem := range val {
			if elem == nil {
				continue
			}
			out = append(out, cleanValue(elem))
		}
		return out
	default:
		return v
	}
}
