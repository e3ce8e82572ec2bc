package properties

import (
	"fmt"
	"maps"
	"slices"
)

// Recognized frontmatter field names.
const (
	fieldTitle    = "title"
	fieldAuthor   = "author"
	fieldStatus   = "status"
	fieldVersion  = "version"
	fieldCreated  = "created"
	fieldTags     = "tags"
	fieldCustom   = "custom"
	fieldModified = "modified"
)

// Record holds the structured properties of a single note.
//
// Tags are always stored without the leading marker character. Modified
// is write-only from the caller's perspective: Merge stamps it and
// ignores any caller-supplied value. Extra preserves unrecognized
// top-level keys so a rewrite does not silently lose data.
type Record struct {
	Title    string
	Author   string
	Status   string
	Version  string
	Created  string
	Tags     []string
	Custom   map[string]any
	Extra    map[string]any
	Modified string
}

// IsZero reports whether the record carries no data at all.
func (r Record) IsZero() bool {
	return r.Title == "" && r.Author == "" && r.Status == "" &&
		r.Version == "" && r.Created == "" && r.Modified == "" &&
		len(r.Tags) == 0 && len(r.Custom) == 0 && len(r.Extra) == 0
}

// Clone returns a copy that shares no top-level state with r.
// Values nested inside Custom and Extra are shared; Merge never mutates
// them below the top level.
func (r Record) Clone() Record {
	out := r
	out.Tags = slices.Clone(r.Tags)
	out.Custom = maps.Clone(r.Custom)
	out.Extra = maps.Clone(r.Extra)

	return out
}

// Map returns the record as a generic property map, the inverse of
// FromMap. Absent fields are omitted rather than emitted as zero values.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.Extra)+8)

	maps.Copy(m, r.Extra)

	for field, value := range map[string]string{
		fieldTitle:    r.Title,
		fieldAuthor:   r.Author,
		fieldStatus:   r.Status,
		fieldVersion:  r.Version,
		fieldCreated:  r.Created,
		fieldModified: r.Modified,
	} {
		if value != "" {
			m[field] = value
		}
	}

	if len(r.Tags) > 0 {
		m[fieldTags] = slices.Clone(r.Tags)
	}

	if len(r.Custom) > 0 {
		m[fieldCustom] = maps.Clone(r.Custom)
	}

	return m
}

// FromMap builds a Record from a decoded key-value payload, coercing
// scalar values to strings where that loses nothing. Callers that need
// violations reported should run Validate on the payload first; FromMap
// itself is silent and keeps everything it can represent.
func FromMap(m map[string]any) Record {
	raw := maps.Clone(m)
	normalizeRawTags(raw)

	return recordFromMap(raw, false)
}

// recordFromMap converts a decoded (and tag-normalized) map into a
// Record. In strict mode, values that fail the schema are dropped; in
// best-effort mode scalars are stringified and kept.
func recordFromMap(raw map[string]any, strict bool) Record {
	var rec Record

	for key, value := range raw {
		if value == nil {
			continue
		}

		switch key {
		case fieldTitle:
			assignScalar(&rec.Title, value, strict)
		case fieldAuthor:
			assignScalar(&rec.Author, value, strict)
		case fieldStatus:
			assignScalar(&rec.Status, value, strict)
		case fieldVersion:
			assignScalar(&rec.Version, value, strict)
		case fieldCreated:
			assignScalar(&rec.Created, value, strict)
		case fieldModified:
			assignScalar(&rec.Modified, value, strict)
		case fieldTags:
			rec.Tags = tagsFromValue(value, strict)
		case fieldCustom:
			custom, ok := stringKeyedMap(value)
			if ok {
				rec.Custom = custom
			}
		default:
			if rec.Extra == nil {
				rec.Extra = make(map[string]any)
			}

			rec.Extra[key] = value
		}
	}

	return rec
}

// assignScalar stores a scalar value as a string. Non-string scalars are
// stringified in best-effort mode and dropped in strict mode; list and
// map values are never coerced.
func assignScalar(dst *string, value any, strict bool) {
	switch typed := value.(type) {
	case string:
		*dst = typed
	case bool, int, int64, uint64, float64:
		if !strict {
			*dst = fmt.Sprint(typed)
		}
	}
}

func tagsFromValue(value any, strict bool) []string {
	list, ok := value.([]any)
	if !ok {
		return nil
	}

	out := make([]string, 0, len(list))

	for _, item := range list {
		switch typed := item.(type) {
		case string:
			out = append(out, typed)
		case bool, int, int64, uint64, float64:
			if !strict {
				out = append(out, fmt.Sprint(typed))
			}
		}
	}

	if len(out) == 0 {
		return nil
	}

	return out
}

// stringKeyedMap converts the map shapes yaml.v3 produces into
// map[string]any. Non-map values and non-string keys are rejected.
func stringKeyedMap(value any) (map[string]any, bool) {
	switch typed := value.(type) {
	case map[string]any:
		return typed, true
	case map[any]any:
		out := make(map[string]any, len(typed))

		for k, v := range typed {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}

			out[key] = v
		}

		return out, true
	default:
		return nil, false
	}
}

// marshalDoc is the YAML encoding shape for Generate. Field order here
// is the on-disk key order.
type marshalDoc struct {
	Title    string         `yaml:"title,omitempty"`
	Author   string         `yaml:"author,omitempty"`
	Status   string         `yaml:"status,omitempty"`
	Version  string         `yaml:"version,omitempty"`
	Created  string         `yaml:"created,omitempty"`
	Tags     []string       `yaml:"tags,omitempty"`
	Custom   map[string]any `yaml:"custom,omitempty"`
	Modified string         `yaml:"modified,omitempty"`
	Extra    map[string]any `yaml:",inline"`
}

func (r Record) marshalDoc() marshalDoc {
	return marshalDoc{
		Title:    r.Title,
		Author:   r.Author,
		Status:   r.Status,
		Version:  r.Version,
		Created:  r.Created,
		Tags:     r.Tags,
		Custom:   r.Custom,
		Modified: r.Modified,
		Extra:    r.Extra,
	}
}
