package cli_test

import (
	"testing"

	"github.com/vaultmd/vaultmd/internal/cli"
)

func Test_Usage_When_Invoked_Without_Command(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, exitCode := c.Run()

	if got, want := exitCode, 0; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	if got, want := stderr, ""; got != want {
		t.Errorf("stderr=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stdout, "Usage: vaultmd")
	cli.AssertContains(t, stdout, "tags")
	cli.AssertContains(t, stdout, "get")
	cli.AssertContains(t, stdout, "set")
	cli.AssertContains(t, stdout, "repl")
	cli.AssertContains(t, stdout, "print-config")
}

func Test_Invalid_Global_Flag_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, exitCode := c.Run("--invalid-flag", "tags")

	if got, want := exitCode, 1; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	if got, want := stdout, ""; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stderr, "unknown flag")
	cli.AssertContains(t, stderr, "--invalid-flag")
}

func Test_Unknown_Command_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, stderr, exitCode := c.Run("frobnicate")

	if got, want := exitCode, 1; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	if got, want := stdout, ""; got != want {
		t.Errorf("stdout=%q, want=%q", got, want)
	}

	cli.AssertContains(t, stderr, "unknown command")
	cli.AssertContains(t, stderr, "frobnicate")
}

func Test_Help_Flag_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, _, exitCode := c.Run("--help")

	if got, want := exitCode, 0; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	cli.AssertContains(t, stdout, "Usage: vaultmd")
	cli.AssertContains(t, stdout, "--chdir")
	cli.AssertContains(t, stdout, "--vault")
}

func Test_Command_Help_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout, _, exitCode := c.Run("tags", "--help")

	if got, want := exitCode, 0; got != want {
		t.Errorf("exitCode=%d, want=%d", got, want)
	}

	cli.AssertContains(t, stdout, "Usage: vaultmd tags")
	cli.AssertContains(t, stdout, "--rebuild")
	cli.AssertContains(t, stdout, "--max-tokens")
	cli.AssertContains(t, stdout, "--stale-after")
}
