package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/vaultmd/vaultmd/pkg/vault"
	"github.com/vaultmd/vaultmd/pkg/vault/dirvault"
	"github.com/vaultmd/vaultmd/pkg/vault/restvault"
)

const (
	minArgs      = 2
	consumedOne  = 1
	consumedTwo  = 2
	consumedNone = 0
	helpFlag     = "--help"
)

var (
	errFlagRequiresArg = errors.New("flag requires an argument")
	errUnknownFlag     = errors.New("unknown flag")
)

// Run is the main entry point. Returns exit code.
func Run(_ io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string) int {
	if len(args) < minArgs {
		printUsage(out)

		return 0
	}

	// Parse global flags
	flags, err := parseGlobalFlags(args[1:])
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	// Load and validate config
	cfg, err := LoadConfig(LoadConfigInput{
		WorkDirOverride:  flags.workDir,
		ConfigPath:       flags.configPath,
		VaultDirOverride: flags.vaultDir,
		Env:              env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut)

		return 1
	}

	if len(flags.remaining) == 0 {
		printUsage(out)

		return 0
	}

	cmd := flags.remaining[0]
	cmdArgs := flags.remaining[1:]

	// Handle help flags
	if cmd == "-h" || cmd == helpFlag {
		printUsage(out)

		return 0
	}

	// Dispatch to command
	switch cmd {
	case "tags":
		return cmdTags(out, errOut, cfg, cmdArgs)
	case "get":
		return cmdGet(out, errOut, cfg, cmdArgs)
	case "set":
		return cmdSet(out, errOut, cfg, cmdArgs)
	case "repl":
		return cmdRepl(out, errOut, cfg, cmdArgs)
	case "print-config":
		return cmdPrintConfig(out, errOut, cfg)
	default:
		fprintln(errOut, "error: unknown command:", cmd)
		printUsage(errOut)

		return 1
	}
}

type globalFlags struct {
	workDir    string
	configPath string
	vaultDir   string
	remaining  []string
}

func parseGlobalFlags(args []string) (globalFlags, error) {
	var flags globalFlags

	idx := 0
	for idx < len(args) {
		consumed, err := parseFlag(args, idx, &flags)
		if err != nil {
			return globalFlags{}, err
		}

		if consumed == 0 {
			// Not a flag, this is the command
			flags.remaining = args[idx:]

			break
		}

		idx += consumed
	}

	return flags, nil
}

// parseFlag tries to parse a flag at args[idx]. Returns number of args consumed (0 if not a flag).
func parseFlag(args []string, idx int, flags *globalFlags) (int, error) {
	arg := args[idx]

	// -C/--chdir flag (work directory)
	if (arg == "-C" || arg == "--chdir") && idx+1 < len(args) {
		flags.workDir = args[idx+1]

		return consumedTwo, nil
	}

	if after, ok := strings.CutPrefix(arg, "-C"); ok {
		flags.workDir = after

		return consumedOne, nil
	}

	if after, ok := strings.CutPrefix(arg, "--chdir="); ok {
		flags.workDir = after

		return consumedOne, nil
	}

	// -c/--config flag
	if arg == "-c" || arg == "--config" {
		if idx+1 >= len(args) {
			return consumedNone, fmt.Errorf("%w: %s", errFlagRequiresArg, arg)
		}

		flags.configPath = args[idx+1]

		return consumedTwo, nil
	}

	if after, ok := strings.CutPrefix(arg, "--config="); ok {
		flags.configPath = after

		return consumedOne, nil
	}

	// --vault flag
	if arg == "--vault" {
		if idx+1 >= len(args) {
			return consumedNone, fmt.Errorf("%w: %s", errFlagRequiresArg, arg)
		}

		flags.vaultDir = args[idx+1]

		return consumedTwo, nil
	}

	if after, ok := strings.CutPrefix(arg, "--vault="); ok {
		flags.vaultDir = after

		return consumedOne, nil
	}

	// -h/--help flags
	if arg == "-h" || arg == helpFlag {
		flags.remaining = []string{helpFlag}

		return len(args) - idx, nil
	}

	// Unknown flag
	if strings.HasPrefix(arg, "-") && arg != "-" {
		return consumedNone, fmt.Errorf("%w: %s", errUnknownFlag, arg)
	}

	// Not a flag
	return consumedNone, nil
}

// openVault builds the vault backend the config points at: a REST client
// when api_base_url is set, a local directory vault otherwise.
func openVault(cfg Config, errOut io.Writer) (vault.Vault, error) {
	if cfg.APIBaseURL != "" {
		return restvault.New(cfg.APIBaseURL, cfg.APIKey,
			restvault.WithLogger(newLogger(errOut))), nil
	}

	return dirvault.Open(cfg.VaultDirAbs)
}

// newLogger returns an slog logger that writes warnings to errOut.
// Library packages log skipped documents and validation issues through it.
func newLogger(errOut io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

func cmdPrintConfig(out, errOut io.Writer, cfg Config) int {
	formatted, err := formatConfig(cfg)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	fprintln(out, formatted)

	// Print sources
	fprintln(out, "")
	fprintln(out, "# Sources:")

	if cfg.Sources.Global != "" {
		fprintln(out, "#   global:", cfg.Sources.Global)
	}

	if cfg.Sources.Project != "" {
		fprintln(out, "#   project:", cfg.Sources.Project)
	}

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		fprintln(out, "#   (using defaults only)")
	}

	return 0
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func fprintf(w io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(w, format, a...)
}

func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "-h" || arg == helpFlag {
			return true
		}
	}

	return false
}

func homeDir(env map[string]string) string {
	if home := env["HOME"]; home != "" {
		return home
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return home
}

func printUsage(writer io.Writer) {
	fprintln(writer, `vaultmd - frontmatter properties and tags for markdown vaults

Usage: vaultmd [options] <command> [args]

Options:
  -C, --chdir <dir>  Run as if started in <dir>
  -c, --config       Use specified config file
  --vault <dir>      Use <dir> as the vault root (overrides config)

Commands:`)
	fprintln(writer, tagsHelp)
	fprintln(writer, getHelp)
	fprintln(writer, setHelp)
	fprintln(writer, `  repl                   Interactive session`)
	fprintln(writer, `  print-config           Show resolved configuration`)
}
