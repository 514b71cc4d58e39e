package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"letterdesk/internal/auth"
	"letterdesk/internal/importer"
)

func newImportUsersCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "import-users",
		Short: "Create or update users from a CSV file",
		Long: "Reads a CSV file with a header row and reconciles it against the user table by email.\n" +
			"New emails become users, known emails are updated, invalid rows are reported.",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open %s: %w", file, err)
			}
			defer f.Close()

			if err := a.open(); err != nil {
				return err
			}
			summary, err := a.imports.ImportUsers(cmd.Context(), auth.System, "cli:"+filepath.Base(file), f)
			if err != nil {
				return err
			}
			return printSummary(cmd.OutOrStdout(), summary)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "CSV file to import (required)")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func newImportTemplateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import-template",
		Short: "Print the user import CSV template",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := cmd.OutOrStdout().Write(importer.TemplateCSV())
			return err
		},
	}
}

// printSummary writes the import counters followed by a table of rejected rows.
func printSummary(w io.Writer, s *importer.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Created\t%d\n", s.Created)
	fmt.Fprintf(tw, "Updated\t%d\n", s.Updated)
	fmt.Fprintf(tw, "Rejected\t%d\n", s.Rejected)
	fmt.Fprintf(tw, "Total\t%d\n", s.Total)

	if len(s.Errors) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "ROW\tEMAIL\tERROR")
		for _, e := range s.Errors {
			fmt.Fprintf(tw, "%d\t%s\t%s\n", e.Row, e.Email, e.Error)
		}
	}
	return tw.Flush()
}
