package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/reconcile-cli/internal/ingest"
	"github.com/sells-group/reconcile-cli/internal/recon"
)

var (
	inspectKey      string
	inspectSheet    string
	inspectEncoding string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <source>",
	Short: "List a file's columns and check a key column for duplicates",
	Long: `Loads one source and prints its columns and row count. With --key it
also counts duplicated anchor values, the pre-flight check to run before
choosing that column as the join anchor.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		l := ingest.NewLoader(
			ingestHTTPOptions(),
			ingest.CSVOptions{Delimiter: delimiterRune(), Encoding: resolveEncoding(inspectEncoding), TrimSpace: true},
			ingest.XLSXOptions{SheetName: inspectSheet},
		)
		t, err := l.Load(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "inspect")
		}

		cmd.Printf("%s: %d rows, %d columns\n", t.Name, t.Len(), len(t.Columns))
		for _, c := range t.Columns {
			cmd.Printf("  %s\n", c)
		}

		if inspectKey != "" {
			dupes, err := recon.DuplicateKeys(t, inspectKey)
			if err != nil {
				return err
			}
			if dupes == 0 {
				cmd.Printf("column %q is unique, safe to use as the anchor\n", inspectKey)
			} else {
				cmd.Printf("column %q has %d duplicated values; joining on it multiplies matching rows\n", inspectKey, dupes)
			}
		}

		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectKey, "key", "", "candidate anchor column to check for duplicates")
	inspectCmd.Flags().StringVar(&inspectSheet, "sheet", "", "sheet name for xlsx sources")
	inspectCmd.Flags().StringVar(&inspectEncoding, "encoding", "", "CSV charset (IANA name, e.g. windows-1252)")

	rootCmd.AddCommand(inspectCmd)
}
