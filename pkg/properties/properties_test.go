package properties_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/vaultmd/vaultmd/pkg/properties"
)

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	}
}

func Test_Parse_Returns_Empty_Record_When_No_Block(t *testing.T) {
	t.Parallel()

	store := properties.NewStore()

	docs := map[string]string{
		"plain text":          "# Heading\n\nBody text.\n",
		"empty":               "",
		"delimiter mid-file":  "intro\n---\ntags: [x]\n---\n",
		"unterminated block":  "---\ntitle: Oops\nno closing line\n",
		"lone delimiter":      "---",
		"indented delimiter":  "  ---\ntitle: X\n---\n",
		"dashes inside first": "----\ntitle: X\n---\n",
	}

	for name, doc := range docs {
		rec := store.Parse([]byte(doc))
		if !rec.IsZero() {
			t.Errorf("%s: Parse returned non-empty record: %+v", name, rec)
		}
	}
}

func Test_Parse_Returns_Empty_Record_When_Block_Undecodable(t *testing.T) {
	t.Parallel()

	store := properties.NewStore()

	doc := "---\ntitle: [unclosed\n  - broken: {{\n---\nbody\n"

	rec := store.Parse([]byte(doc))
	if !rec.IsZero() {
		t.Fatalf("Parse returned non-empty record for malformed YAML: %+v", rec)
	}
}

func Test_Parse_Normalizes_Tag_Markers_When_Present(t *testing.T) {
	t.Parallel()

	store := properties.NewStore()

	doc := "---\ntags:\n  - \"#project\"\n  - review\n  - \"#\"\n---\nbody\n"

	rec := store.Parse([]byte(doc))

	want := []string{"project", "review"}
	if diff := cmp.Diff(want, rec.Tags); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
}

func Test_Parse_Accepts_Scalar_Tags_Value(t *testing.T) {
	t.Parallel()

	store := properties.NewStore()

	rec := store.Parse([]byte("---\ntags: \"#solo\"\n---\n"))

	if diff := cmp.Diff([]string{"solo"}, rec.Tags); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
}

func Test_Parse_Tolerates_CRLF_Line_Endings(t *testing.T) {
	t.Parallel()

	store := properties.NewStore()

	doc := "---\r\ntitle: Windows Note\r\ntags: [a, b]\r\n---\r\nbody\r\n"

	rec := store.Parse([]byte(doc))

	if rec.Title != "Windows Note" {
		t.Errorf("title = %q, want %q", rec.Title, "Windows Note")
	}

	if diff := cmp.Diff([]string{"a", "b"}, rec.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func Test_Parse_Keeps_Invalid_Fields_When_Best_Effort(t *testing.T) {
	t.Parallel()

	var logBuf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&logBuf, nil))
	store := properties.NewStore(properties.WithLogger(logger))

	// title decodes as an int: a schema violation, but best-effort mode
	// keeps the stringified value.
	rec := store.Parse([]byte("---\ntitle: 42\n---\n"))

	if rec.Title != "42" {
		t.Errorf("title = %q, want %q", rec.Title, "42")
	}

	if !strings.Contains(logBuf.String(), "schema validation") {
		t.Errorf("expected a validation warning in log output, got: %s", logBuf.String())
	}
}

func Test_Parse_Drops_Invalid_Fields_When_Strict(t *testing.T) {
	t.Parallel()

	store := properties.NewStore(properties.WithStrictValidation(true))

	rec := store.Parse([]byte("---\ntitle: 42\nauthor: alice\n---\n"))

	if rec.Title != "" {
		t.Errorf("title = %q, want empty in strict mode", rec.Title)
	}

	if rec.Author != "alice" {
		t.Errorf("author = %q, want %q", rec.Author, "alice")
	}
}

func Test_Parse_Preserves_Unknown_Fields_In_Extra(t *testing.T) {
	t.Parallel()

	store := properties.NewStore()

	rec := store.Parse([]byte("---\ntitle: T\naliases:\n  - alt-name\n---\n"))

	want := map[string]any{"aliases": []any{"alt-name"}}
	if diff := cmp.Diff(want, rec.Extra); diff != "" {
		t.Fatalf("extra mismatch (-want +got):\n%s", diff)
	}
}

func Test_Generate_Omits_Absent_Fields_When_Invoked(t *testing.T) {
	t.Parallel()

	store := properties.NewStore()

	out, err := store.Generate(properties.Record{Title: "Only Title"})
	if err != nil {
		t.Fatal(err)
	}

	text := string(out)

	if !strings.HasPrefix(text, "---\n") || !strings.HasSuffix(text, "---\n") {
		t.Fatalf("output not delimited: %q", text)
	}

	for _, absent := range []string{"author", "status", "tags", "custom", "modified"} {
		if strings.Contains(text, absent+":") {
			t.Errorf("output contains absent field %q: %s", absent, text)
		}
	}
}

func Test_Generate_Fails_When_Custom_Unencodable(t *testing.T) {
	t.Parallel()

	store := properties.NewStore()

	cyclic := map[string]any{}
	cyclic["self"] = cyclic

	cases := map[string]properties.Record{
		"function value": {Custom: map[string]any{"fn": func() {}}},
		"cyclic map":     {Custom: cyclic},
	}

	for name, rec := range cases {
		_, err := store.Generate(rec)
		if err == nil {
			t.Errorf("%s: Generate succeeded, want error", name)

			continue
		}

		if !strings.Contains(err.Error(), properties.ErrSerialize.Error()) {
			t.Errorf("%s: error %v does not wrap ErrSerialize", name, err)
		}
	}
}

func Test_Parse_Recovers_Generated_Record_When_Round_Tripped(t *testing.T) {
	t.Parallel()

	store := properties.NewStore()

	rec := properties.Record{
		Title:    "Round Trip",
		Author:   "bob",
		Status:   "draft",
		Version:  "3",
		Created:  "2026-01-01T00:00:00Z",
		Tags:     []string{"one", "two"},
		Custom:   map[string]any{"depth": 2, "nested": map[string]any{"k": "v"}},
		Extra:    map[string]any{"aliases": []any{"alt"}},
		Modified: "2026-01-02T03:04:05Z",
	}

	out, err := store.Generate(rec)
	if err != nil {
		t.Fatal(err)
	}

	got := store.Parse(out)

	// YAML decodes nested values as any-typed, so compare through a
	// tag-set-insensitive diff on the fields that round-trip exactly.
	if diff := cmp.Diff(rec, got,
		cmpopts.SortSlices(func(a, b string) bool { return a < b }),
		cmpopts.IgnoreFields(properties.Record{}, "Custom"),
	); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	if got.Custom["depth"] != 2 {
		t.Errorf("custom.depth = %v, want 2", got.Custom["depth"])
	}
}

func Test_Body_Returns_Content_After_Block_When_Present(t *testing.T) {
	t.Parallel()

	doc := []byte("---\ntitle: T\n---\n# Heading\n\nBody.\n")

	got := string(properties.Body(doc))
	if got != "# Heading\n\nBody.\n" {
		t.Fatalf("body = %q", got)
	}

	plain := []byte("no frontmatter here\n")
	if string(properties.Body(plain)) != string(plain) {
		t.Fatal("body of plain document should be unchanged")
	}
}
