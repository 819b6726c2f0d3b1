package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <db>",
	Short: "Write a SQLite snapshot of every record",
	Long: `Write every record into a fresh SQLite database, one table per type.
Declared fields get their own columns; other fields are kept as JSON in the
"extra" column. The _meta table records the SHA-256 of the backing file.

An existing file at <db> is replaced.

Example:
  hbnb export snapshot.db`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	dbPath := args[0]
	s := mustOpenStore()

	n, err := s.ExportSQLite(dbPath)
	if err != nil {
		exitWithError(ExitDataError, "exporting snapshot: %v", err)
	}

	if humanOutput {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", n, dbPath)
		return nil
	}
	return outputJSON(cmd.OutOrStdout(), ExportResponse{Status: "exported", Path: dbPath, Records: n})
}
