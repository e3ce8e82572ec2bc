package cli_test

import (
	"testing"

	"github.com/vaultmd/vaultmd/internal/cli"
)

func Test_Set_When_Note_Exists(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteNote("note.md", "---\ntitle: Old Title\ntags: [a]\n---\nthe body stays\n")

	stdout := c.MustRun("set", "note.md", "-f", "title=New Title", "-f", "tags=[b]")

	cli.AssertContains(t, stdout, "properties updated")

	content := c.ReadNote("note.md")
	cli.AssertContains(t, content, "title: New Title")
	cli.AssertContains(t, content, "the body stays")

	// List values merge by default
	cli.AssertContains(t, content, "- a")
	cli.AssertContains(t, content, "- b")

	// Merge stamps the modification time
	cli.AssertContains(t, content, "modified:")
}

func Test_Set_When_Replace_Flag_Set(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteNote("note.md", "---\ntags: [a, b]\n---\nbody\n")

	c.MustRun("set", "note.md", "--replace", "-f", "tags=[c]")

	content := c.ReadNote("note.md")
	cli.AssertContains(t, content, "- c")
	cli.AssertNotContains(t, content, "- a")
	cli.AssertNotContains(t, content, "- b")
}

func Test_Set_When_Note_Has_No_Frontmatter(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteNote("plain.md", "just a body\n")

	c.MustRun("set", "plain.md", "-f", "title=Added")

	content := c.ReadNote("plain.md")
	cli.AssertContains(t, content, "title: Added")
	cli.AssertContains(t, content, "just a body")
}

func Test_Set_When_Payload_Fails_Validation(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteNote("note.md", "---\ntitle: Keep\n---\nbody\n")

	stderr := c.MustFail("set", "note.md", "-f", "modified=2020-01-01")

	cli.AssertContains(t, stderr, "validation")

	// The note is untouched on a failed update
	content := c.ReadNote("note.md")
	cli.AssertContains(t, content, "title: Keep")
	cli.AssertNotContains(t, content, "2020-01-01")
}

func Test_Set_When_Field_Is_Malformed(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteNote("note.md", "---\ntitle: x\n---\nbody\n")

	stderr := c.MustFail("set", "note.md", "-f", "no-equals-sign")

	cli.AssertContains(t, stderr, "key=value")
}

func Test_Set_When_No_Fields_Given(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteNote("note.md", "---\ntitle: x\n---\nbody\n")

	stderr := c.MustFail("set", "note.md")

	cli.AssertContains(t, stderr, "--field is required")
}

func Test_Set_When_Note_Missing(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("set", "ghost.md", "-f", "title=x")

	cli.AssertContains(t, stderr, "ghost.md")
}

func Test_Set_With_Typed_YAML_Values(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.WriteNote("note.md", "---\ntitle: x\n---\nbody\n")

	c.MustRun("set", "note.md", "-f", "custom={reviewed: true, score: 9}")

	content := c.ReadNote("note.md")
	cli.AssertContains(t, content, "reviewed: true")
	cli.AssertContains(t, content, "score: 9")
}
