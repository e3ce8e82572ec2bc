package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/vaultmd/vaultmd/pkg/notes"
)

var (
	errFieldRequired   = errors.New("at least one --field is required")
	errFieldMalformed  = errors.New("field must be key=value")
	errFieldKeyMissing = errors.New("field key must not be empty")
)

const setHelp = `  set <note> -f k=v      Update a note's frontmatter properties
    -f, --field            Property as key=value, YAML values allowed (repeatable)
    --replace              Replace list values instead of merging`

func cmdSet(out io.Writer, errOut io.Writer, cfg Config, args []string) int {
	flagSet := flag.NewFlagSet("set", flag.ContinueOnError)
	flagSet.SetOutput(errOut)
	flagSet.Usage = func() {
		w := flagSet.Output()
		fprintf(w, "Usage: vaultmd set <note> -f key=value [-f key=value ...] [options]\n\n")
		fprintf(w, "Update frontmatter properties of a note. Values parse as YAML, so\n")
		fprintf(w, "lists (-f tags='[a, b]') and maps (-f custom='{x: 1}') work. Lists\n")
		fprintf(w, "merge with existing values unless --replace is given. The body of\n")
		fprintf(w, "the note is never touched.\n\n")
		fprintf(w, "Options:\n")
		flagSet.PrintDefaults()
	}

	fields := flagSet.StringArrayP("field", "f", nil, "Property as key=value (repeatable)")
	replace := flagSet.Bool("replace", false, "Replace list values instead of merging")

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

	if flagSet.NArg() == 0 {
		fprintln(errOut, "error:", errNotePathRequired)

		return 1
	}

	if len(*fields) == 0 {
		fprintln(errOut, "error:", errFieldRequired)

		return 1
	}

	notePath := flagSet.Arg(0)

	updates, err := parseFieldArgs(*fields)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	v, err := openVault(cfg, errOut)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	svc := notes.NewService(v, notes.WithLogger(newLogger(errOut)))

	result := svc.Update(context.Background(), notePath, updates, *replace)
	if !result.Success {
		fprintln(errOut, "error:", result.Message)

		for _, detail := range result.Errors {
			fprintln(errOut, "  -", detail)
		}

		return 1
	}

	fprintln(out, result.Message)

	return 0
}

// parseFieldArgs turns repeated key=value flags into an update payload.
// Values go through the YAML scalar parser so numbers, booleans, lists
// and maps arrive typed rather than as strings.
func parseFieldArgs(fields []string) (map[string]any, error) {
	updates := make(map[string]any, len(fields))

	for _, field := range fields {
		key, rawValue, found := strings.Cut(field, "=")
		if !found {
			return nil, fmt.Errorf("%w: %q", errFieldMalformed, field)
		}

		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("%w: %q", errFieldKeyMissing, field)
		}

		var value any

		if err := yaml.Unmarshal([]byte(rawValue), &value); err != nil {
			// Not valid YAML, keep the raw string
			value = rawValue
		}

		updates[key] = value
	}

	return updates, nil
}
