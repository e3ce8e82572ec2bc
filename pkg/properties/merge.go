package properties

import (
	"maps"
	"reflect"
	"time"
)

// Merge combines an update payload into an existing record using
// field-specific policies and returns the result. Neither input is
// mutated.
//
// Policies, per field kind:
//   - array fields (tags, list-valued extras): replaced wholesale when
//     replace is true, otherwise unioned with duplicates removed. Result
//     order is not guaranteed.
//   - the custom map: update keys are shallow-merged over existing keys
//     (update wins). This holds even when replace is true.
//   - everything else: the update value replaces the existing value.
//
// Fields absent from updates are left untouched. The modified field is
// always stamped with the store clock in RFC 3339 UTC; a caller-supplied
// modified value is never honored.
func (s *Store) Merge(existing, updates Record, replace bool) Record {
	out := existing.Clone()

	assignIfSet(&out.Title, updates.Title)
	assignIfSet(&out.Author, updates.Author)
	assignIfSet(&out.Status, updates.Status)
	assignIfSet(&out.Version, updates.Version)
	assignIfSet(&out.Created, updates.Created)

	if updates.Tags != nil {
		incoming := normalizeTags(updates.Tags)
		if replace {
			out.Tags = incoming
		} else {
			out.Tags = normalizeTags(append(cloneStrings(existing.Tags), incoming...))
		}
	}

	if updates.Custom != nil {
		merged := make(map[string]any, len(existing.Custom)+len(updates.Custom))
		maps.Copy(merged, existing.Custom)
		maps.Copy(merged, updates.Custom)
		out.Custom = merged
	}

	for key, value := range updates.Extra {
		if value == nil {
			continue
		}

		if out.Extra == nil {
			out.Extra = make(map[string]any, len(updates.Extra))
		}

		out.Extra[key] = mergeExtraValue(existing.Extra[key], value, replace)
	}

	out.Modified = s.now().UTC().Format(time.RFC3339)

	return out
}

func assignIfSet(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// cloneStrings copies a string slice so the append in Merge cannot
// write through to the caller's backing array.
func cloneStrings(s []string) []string {
	out := make([]string, 0, len(s))

	return append(out, s...)
}

// mergeExtraValue applies the array policy to unrecognized fields:
// two list values union unless replace is set; anything else is a
// straight replacement.
func mergeExtraValue(existing, update any, replace bool) any {
	if replace {
		return update
	}

	existingList, existingOK := existing.([]any)

	updateList, updateOK := update.([]any)
	if !existingOK || !updateOK {
		return update
	}

	out := make([]any, 0, len(existingList)+len(updateList))

	for _, item := range existingList {
		if !containsDeep(out, item) {
			out = append(out, item)
		}
	}

	for _, item := range updateList {
		if !containsDeep(out, item) {
			out = append(out, item)
		}
	}

	return out
}

// containsDeep uses DeepEqual so uncomparable items (nested maps or
// lists) cannot panic the merge.
func containsDeep(list []any, value any) bool {
	for _, item := range list {
		if reflect.DeepEqual(item, value) {
			return true
		}
	}

	return false
}
