package properties_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/vaultmd/vaultmd/pkg/properties"
)

func Test_Merge_Unions_Tags_When_Replace_False(t *testing.T) {
	t.Parallel()

	store := properties.NewStore(properties.WithClock(fixedClock()))

	existing := properties.Record{Tags: []string{"a", "b"}}
	updates := properties.Record{Tags: []string{"b", "c"}}

	got := store.Merge(existing, updates, false)

	want := []string{"a", "b", "c"}
	if diff := cmp.Diff(want, got.Tags, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
}

func Test_Merge_Replaces_Tags_When_Replace_True(t *testing.T) {
	t.Parallel()

	store := properties.NewStore(properties.WithClock(fixedClock()))

	existing := properties.Record{Tags: []string{"a", "b"}}
	updates := properties.Record{Tags: []string{"#c"}}

	got := store.Merge(existing, updates, true)

	if diff := cmp.Diff([]string{"c"}, got.Tags); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
}

func Test_Merge_Shallow_Merges_Custom_Even_When_Replace_True(t *testing.T) {
	t.Parallel()

	store := properties.NewStore(properties.WithClock(fixedClock()))

	existing := properties.Record{Custom: map[string]any{"p": 1}}
	updates := properties.Record{Custom: map[string]any{"q": 2}}

	got := store.Merge(existing, updates, true)

	want := map[string]any{"p": 1, "q": 2}
	if diff := cmp.Diff(want, got.Custom); diff != "" {
		t.Fatalf("custom mismatch (-want +got):\n%s", diff)
	}
}

func Test_Merge_Custom_Update_Wins_On_Key_Conflict(t *testing.T) {
	t.Parallel()

	store := properties.NewStore(properties.WithClock(fixedClock()))

	existing := properties.Record{Custom: map[string]any{"p": 1, "keep": "old"}}
	updates := properties.Record{Custom: map[string]any{"p": 9}}

	got := store.Merge(existing, updates, false)

	want := map[string]any{"p": 9, "keep": "old"}
	if diff := cmp.Diff(want, got.Custom); diff != "" {
		t.Fatalf("custom mismatch (-want +got):\n%s", diff)
	}
}

func Test_Merge_Stamps_Modified_And_Ignores_Caller_Value(t *testing.T) {
	t.Parallel()

	store := properties.NewStore(properties.WithClock(fixedClock()))

	existing := properties.Record{Modified: "2001-01-01T00:00:00Z"}
	updates := properties.Record{Modified: "1999-12-31T23:59:59Z", Title: "T"}

	got := store.Merge(existing, updates, false)

	if got.Modified != "2026-01-02T03:04:05Z" {
		t.Fatalf("modified = %q, want clock value", got.Modified)
	}
}

func Test_Merge_Replaces_Scalars_And_Keeps_Absent_Fields(t *testing.T) {
	t.Parallel()

	store := properties.NewStore(properties.WithClock(fixedClock()))

	existing := properties.Record{Title: "Old", Author: "alice", Status: "draft"}
	updates := properties.Record{Title: "New"}

	got := store.Merge(existing, updates, false)

	if got.Title != "New" {
		t.Errorf("title = %q, want %q", got.Title, "New")
	}

	if got.Author != "alice" || got.Status != "draft" {
		t.Errorf("absent fields changed: %+v", got)
	}
}

func Test_Merge_Does_Not_Mutate_Inputs(t *testing.T) {
	t.Parallel()

	store := properties.NewStore(properties.WithClock(fixedClock()))

	existing := properties.Record{
		Tags:   []string{"a"},
		Custom: map[string]any{"p": 1},
		Extra:  map[string]any{"aliases": []any{"x"}},
	}
	updates := properties.Record{
		Tags:   []string{"b"},
		Custom: map[string]any{"q": 2},
		Extra:  map[string]any{"aliases": []any{"y"}},
	}

	_ = store.Merge(existing, updates, false)

	if diff := cmp.Diff([]string{"a"}, existing.Tags); diff != "" {
		t.Errorf("existing tags mutated:\n%s", diff)
	}

	if diff := cmp.Diff(map[string]any{"p": 1}, existing.Custom); diff != "" {
		t.Errorf("existing custom mutated:\n%s", diff)
	}

	if diff := cmp.Diff(map[string]any{"aliases": []any{"x"}}, existing.Extra); diff != "" {
		t.Errorf("existing extra mutated:\n%s", diff)
	}

	if diff := cmp.Diff(map[string]any{"q": 2}, updates.Custom); diff != "" {
		t.Errorf("updates custom mutated:\n%s", diff)
	}
}

func Test_Merge_Unions_List_Valued_Extra_Fields(t *testing.T) {
	t.Parallel()

	store := properties.NewStore(properties.WithClock(fixedClock()))

	existing := properties.Record{Extra: map[string]any{"aliases": []any{"x", "y"}}}
	updates := properties.Record{Extra: map[string]any{"aliases": []any{"y", "z"}}}

	union := store.Merge(existing, updates, false)

	wantUnion := map[string]any{"aliases": []any{"x", "y", "z"}}
	if diff := cmp.Diff(wantUnion, union.Extra); diff != "" {
		t.Errorf("union mismatch (-want +got):\n%s", diff)
	}

	replaced := store.Merge(existing, updates, true)

	wantReplaced := map[string]any{"aliases": []any{"y", "z"}}
	if diff := cmp.Diff(wantReplaced, replaced.Extra); diff != "" {
		t.Errorf("replace mismatch (-want +got):\n%s", diff)
	}
}
