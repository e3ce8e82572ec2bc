package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/vaultmd/vaultmd/pkg/tagindex"
)

const tagsHelp = `  tags [scope]           Show tag usage across the vault
    --rebuild              Force a rebuild even if the index is fresh
    --json                 Emit the snapshot as JSON
    --files                Show the files each tag appears in
    --max-tokens=N         Truncate output to roughly N tokens
    --stale-after=MS       Staleness window in milliseconds`

// charsPerToken is the rough cost of one token in the rendered output.
const charsPerToken = 4

func cmdTags(out io.Writer, errOut io.Writer, cfg Config, args []string) int {
	flagSet := flag.NewFlagSet("tags", flag.ContinueOnError)
	flagSet.SetOutput(errOut)
	flagSet.Usage = func() {
		w := flagSet.Output()
		fprintf(w, "Usage: vaultmd tags [scope] [options]\n\n")
		fprintf(w, "Show every tag in the vault with its usage count.\n")
		fprintf(w, "An optional scope limits the scan to one folder.\n\n")
		fprintf(w, "Options:\n")
		flagSet.PrintDefaults()
	}

	rebuild := flagSet.Bool("rebuild", false, "Force a rebuild even if the index is fresh")
	asJSON := flagSet.Bool("json", false, "Emit the snapshot as JSON")
	withFiles := flagSet.Bool("files", false, "Show the files each tag appears in")
	maxTokens := flagSet.Int("max-tokens", 0, "Truncate output to roughly N tokens (0 = unlimited)")
	staleAfter := flagSet.Int("stale-after", cfg.StaleAfterMS, "Staleness window in milliseconds")

	if hasHelpFlag(args) {
		flagSet.SetOutput(out)
		flagSet.Usage()

		return 0
	}

	parseErr := flagSet.Parse(args)
	if parseErr != nil {
		fprintf(errOut, "error: %v\n\n", parseErr)
		flagSet.Usage()

		return 1
	}

	scope := ""
	if flagSet.NArg() > 0 {
		scope = flagSet.Arg(0)
	}

	if *staleAfter < 0 {
		fprintln(errOut, "error: --stale-after must be non-negative")

		return 1
	}

	v, err := openVault(cfg, errOut)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	index := tagindex.New(v,
		tagindex.WithScope(scope),
		tagindex.WithStaleAfter(time.Duration(*staleAfter)*time.Millisecond),
		tagindex.WithLogger(newLogger(errOut)))

	ctx := context.Background()

	var snap *tagindex.Snapshot
	if *rebuild {
		snap, err = index.Rebuild(ctx)
	} else {
		snap, err = index.Snapshot(ctx)
	}

	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	rendered, renderErr := renderSnapshot(snap, *asJSON, *withFiles)
	if renderErr != nil {
		fprintln(errOut, "error:", renderErr)

		return 1
	}

	if *maxTokens > 0 {
		rendered = truncateToTokens(rendered, *maxTokens)
	}

	fprintf(out, "%s", rendered)

	return 0
}

func renderSnapshot(snap *tagindex.Snapshot, asJSON, withFiles bool) (string, error) {
	if asJSON {
		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding snapshot: %w", err)
		}

		return string(data) + "\n", nil
	}

	var builder strings.Builder

	for _, entry := range snap.Entries {
		fmt.Fprintf(&builder, "%6d  #%s\n", entry.Count, entry.Name)

		if withFiles {
			for _, file := range entry.Files {
				fmt.Fprintf(&builder, "        %s\n", file)
			}
		}
	}

	fmt.Fprintf(&builder, "\n%d tags, %d occurrences, %d tagged documents\n",
		snap.Stats.UniqueTags, snap.Stats.TotalOccurrences, snap.Stats.DocumentsScanned)

	return builder.String(), nil
}

// truncateToTokens cuts rendered output down to a rough token budget,
// keeping whole lines. The heuristic treats four characters as one token.
func truncateToTokens(rendered string, maxTokens int) string {
	budget := maxTokens * charsPerToken
	if len(rendered) <= budget {
		return rendered
	}

	cut := rendered[:budget]

	// Drop the partial last line
	if idx := strings.LastIndexByte(cut, '\n'); idx >= 0 {
		cut = cut[:idx+1]
	} else {
		cut = ""
	}

	total := strings.Count(rendered, "\n")
	kept := strings.Count(cut, "\n")

	return cut + fmt.Sprintf("... output truncated (%d of %d lines shown)\n", kept, total)
}
