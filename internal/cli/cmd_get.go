package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/vaultmd/vaultmd/pkg/notes"
	"github.com/vaultmd/vaultmd/pkg/properties"
)

var errNotePathRequired = errors.New("note path is required")

const getHelp = `  get <note>             Print a note's frontmatter properties
    --json                 Emit properties as JSON instead of YAML`

func cmdGet(out io.Writer, errOut io.Writer, cfg Config, args []string) int {
	flagSet := flag.NewFlagSet("get", flag.ContinueOnError)
	flagSet.SetOutput(errOut)
	flagSet.Usage = func() {
		w := flagSet.Output()
		fprintf(w, "Usage: vaultmd get <note> [options]\n\n")
		fprintf(w, "Print the frontmatter properties of a note.\n\n")
		fprintf(w, "Options:\n")
		flagSet.PrintDefaults()
	}

	asJSON := flagSet.Bool("json", false, "Emit properties as JSON instead of YAML")

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

	notePath := flagSet.Arg(0)

	v, err := openVault(cfg, errOut)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	svc := notes.NewService(v, notes.WithLogger(newLogger(errOut)))

	rec, err := svc.Properties(context.Background(), notePath)
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	if *asJSON {
		data, marshalErr := json.MarshalIndent(rec.Map(), "", "  ")
		if marshalErr != nil {
			fprintln(errOut, "error:", marshalErr)

			return 1
		}

		fprintln(out, string(data))

		return 0
	}

	block, genErr := propertiesBlock(rec)
	if genErr != nil {
		fprintln(errOut, "error:", genErr)

		return 1
	}

	fprintf(out, "%s", block)

	return 0
}

// propertiesBlock renders a record as a delimited YAML frontmatter block.
func propertiesBlock(rec properties.Record) ([]byte, error) {
	return properties.NewStore().Generate(rec)
}
