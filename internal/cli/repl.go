package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/vaultmd/vaultmd/pkg/notes"
	"github.com/vaultmd/vaultmd/pkg/tagindex"
	"github.com/vaultmd/vaultmd/pkg/vault"
)

var replCommands = []string{"tags", "rebuild", "get", "set", "help", "exit", "quit"}

// repl is the interactive command loop.
type repl struct {
	cfg    Config
	vault  vault.Vault
	svc    *notes.Service
	index  *tagindex.Index
	out    io.Writer
	errOut io.Writer
	liner  *liner.State
	env    map[string]string
}

func cmdRepl(out io.Writer, errOut io.Writer, cfg Config, args []string) int {
	if hasHelpFlag(args) {
		fprintln(out, "Usage: vaultmd repl")
		fprintln(out, "")
		fprintln(out, "Start an interactive session against the configured vault.")

		return 0
	}

	v, err := openVault(cfg, errOut)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	logger := newLogger(errOut)

	r := &repl{
		cfg:    cfg,
		vault:  v,
		svc:    notes.NewService(v, notes.WithLogger(logger)),
		out:    out,
		errOut: errOut,
		env:    envFromProcess(),
	}

	r.index = tagindex.New(v,
		tagindex.WithStaleAfter(time.Duration(cfg.StaleAfterMS)*time.Millisecond),
		tagindex.WithLogger(logger))

	if err := r.run(); err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	return 0
}

func envFromProcess() map[string]string {
	env := make(map[string]string)

	for _, e := range os.Environ() {
		if k, v, ok := strings.Cut(e, "="); ok {
			env[k] = v
		}
	}

	return env
}

// historyFile returns the path to the history file.
func (r *repl) historyFile() string {
	home := homeDir(r.env)
	if home == "" {
		return ""
	}

	return filepath.Join(home, ".vaultmd_history")
}

// run starts the interactive loop.
func (r *repl) run() error {
	// Set up liner for readline-style input
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	// Configure liner
	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	// Load history
	if f, err := os.Open(r.historyFile()); err == nil {
		_, _ = r.liner.ReadHistory(f)
		f.Close()
	}

	fprintf(r.out, "vaultmd - interactive session (vault: %s)\n", r.vaultLabel())
	fprintln(r.out, "Type 'help' for available commands.")
	fprintln(r.out, "")

	for {
		line, err := r.liner.Prompt("vaultmd> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fprintln(r.out, "\nBye!")

				break
			}

			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		// Add to history
		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fprintln(r.out, "Bye!")

			r.saveHistory()

			return nil

		case "help", "?":
			r.printHelp()

		case "tags":
			r.cmdTags(args)

		case "rebuild":
			r.cmdRebuild()

		case "get":
			r.cmdGet(args)

		case "set":
			r.cmdSet(args)

		default:
			fprintf(r.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}

	r.saveHistory()

	return nil
}

func (r *repl) vaultLabel() string {
	if r.cfg.APIBaseURL != "" {
		return r.cfg.APIBaseURL
	}

	return r.cfg.VaultDirAbs
}

// saveHistory persists command history to disk.
func (r *repl) saveHistory() {
	if path := r.historyFile(); path != "" {
		if f, err := os.Create(path); err == nil {
			_, _ = r.liner.WriteHistory(f)
			f.Close()
		}
	}
}

// completer provides tab completion for commands.
func (r *repl) completer(line string) []string {
	var matches []string

	lower := strings.ToLower(line)
	for _, cmd := range replCommands {
		if strings.HasPrefix(cmd, lower) {
			matches = append(matches, cmd)
		}
	}

	return matches
}

func (r *repl) printHelp() {
	fprintln(r.out, `Commands:
  tags [scope]            Show tag usage (cached between calls)
  rebuild                 Force a tag index rebuild
  get <note>              Print a note's frontmatter properties
  set <note> k=v ...      Update properties (append '!' to a key to replace lists)
  help                    Show this help
  exit                    Leave the session`)
}

func (r *repl) cmdTags(args []string) {
	ctx := context.Background()

	index := r.index
	if len(args) > 0 {
		// Scoped queries get a throwaway index; the cached one covers
		// the whole vault.
		index = tagindex.New(r.vault,
			tagindex.WithScope(args[0]),
			tagindex.WithStaleAfter(time.Duration(r.cfg.StaleAfterMS)*time.Millisecond),
			tagindex.WithLogger(newLogger(r.errOut)))
	}

	snap, err := index.Snapshot(ctx)
	if err != nil {
		fprintln(r.errOut, "error:", err)

		return
	}

	rendered, renderErr := renderSnapshot(snap, false, false)
	if renderErr != nil {
		fprintln(r.errOut, "error:", renderErr)

		return
	}

	fprintf(r.out, "%s", rendered)
}

func (r *repl) cmdRebuild() {
	snap, err := r.index.Rebuild(context.Background())
	if err != nil {
		fprintln(r.errOut, "error:", err)

		return
	}

	fprintf(r.out, "rebuilt: %d tags across %d documents\n",
		snap.Stats.UniqueTags, snap.Stats.DocumentsScanned)
}

func (r *repl) cmdGet(args []string) {
	if len(args) == 0 {
		fprintln(r.errOut, "usage: get <note>")

		return
	}

	rec, err := r.svc.Properties(context.Background(), args[0])
	if err != nil {
		fprintln(r.errOut, "error:", err)

		return
	}

	block, genErr := propertiesBlock(rec)
	if genErr != nil {
		fprintln(r.errOut, "error:", genErr)

		return
	}

	fprintf(r.out, "%s", block)
}

func (r *repl) cmdSet(args []string) {
	if len(args) < 2 {
		fprintln(r.errOut, "usage: set <note> key=value ...")

		return
	}

	notePath := args[0]

	// A trailing '!' on any key switches list handling to replace.
	replace := false
	fields := make([]string, 0, len(args)-1)

	for _, field := range args[1:] {
		if key, value, ok := strings.Cut(field, "="); ok && strings.HasSuffix(key, "!") {
			replace = true
			field = strings.TrimSuffix(key, "!") + "=" + value
		}

		fields = append(fields, field)
	}

	updates, err := parseFieldArgs(fields)
	if err != nil {
		fprintln(r.errOut, "error:", err)

		return
	}

	result := r.svc.Update(context.Background(), notePath, updates, replace)
	if !result.Success {
		fprintln(r.errOut, "error:", result.Message)

		for _, detail := range result.Errors {
			fprintln(r.errOut, "  -", detail)
		}

		return
	}

	fprintln(r.out, result.Message)
}
