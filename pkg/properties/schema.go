package properties

import (
	"fmt"
	"slices"
)

// ValidationResult collects every schema violation in an update payload
// instead of stopping at the first. Violations are reported, never
// raised: callers inspect Valid.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// schemaMode selects which fields the schema accepts.
type schemaMode int

const (
	// parseSchema is applied to decoded documents. Documents
	// legitimately carry a modified timestamp.
	parseSchema schemaMode = iota

	// updateSchema is applied to caller-supplied update payloads.
	// Server-managed timestamp fields are rejected.
	updateSchema
)

// Validate checks a partial update payload against the recognized-fields
// schema. All violations are collected; the payload is not modified.
func (s *Store) Validate(updates map[string]any) ValidationResult {
	violations := checkSchema(updates, updateSchema)

	return ValidationResult{
		Valid:  len(violations) == 0,
		Errors: violations,
	}
}

var scalarFields = []string{fieldTitle, fieldAuthor, fieldStatus, fieldVersion, fieldCreated}

func checkSchema(raw map[string]any, mode schemaMode) []string {
	var violations []string

	for key, value := range raw {
		if value == nil {
			continue
		}

		switch {
		case slices.Contains(scalarFields, key):
			if !isScalar(value) {
				violations = append(violations, fmt.Sprintf("%s: must be a scalar", key))
			}
		case key == fieldModified:
			if mode == updateSchema {
				violations = append(violations, "modified: read-only field, set on merge")

				continue
			}

			if !isScalar(value) {
				violations = append(violations, "modified: must be a scalar")
			}
		case key == fieldTags:
			violations = append(violations, checkTags(value)...)
		case key == fieldCustom:
			if _, ok := stringKeyedMap(value); !ok {
				violations = append(violations, "custom: must be a map")
			}
		default:
			if mode == updateSchema {
				violations = append(violations, fmt.Sprintf("unknown field %q", key))
			}
			// Unknown keys in documents are preserved in Extra, not
			// reported: notes written by other tools are common.
		}
	}

	return violations
}

func checkTags(value any) []string {
	switch list := value.(type) {
	case string:
		return nil
	case []any:
		var violations []string

		for i, item := range list {
			str, ok := item.(string)
			if !ok {
				violations = append(violations, fmt.Sprintf("tags[%d]: must be a string", i))

				continue
			}

			if normalizeTag(str) == "" {
				violations = append(violations, fmt.Sprintf("tags[%d]: empty tag", i))
			}
		}

		return violations
	default:
		return []string{"tags: must be a list of strings"}
	}
}

func isScalar(value any) bool {
	switch value.(type) {
	case string, bool, int, int64, uint64, float64:
		return true
	default:
		return false
	}
}
