package main

import (
	"fmt"
	"io"

	"github.com/matsen/hbnb/internal/schema"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(schemaCmd)
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show the record types and their default fields",
	Args:  cobra.NoArgs,
	RunE:  runSchema,
}

func runSchema(cmd *cobra.Command, args []string) error {
	sch := mustLoadSchema()
	if humanOutput {
		printSchemaHuman(cmd.OutOrStdout(), sch)
		return nil
	}
	return outputJSON(cmd.OutOrStdout(), sch)
}

func printSchemaHuman(w io.Writer, sch *schema.Schema) {
	for i, t := range sch.Types {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, t.Name)
		for _, f := range t.Fields {
			def, _ := t.Default(f.Name)
			fmt.Fprintf(w, "  %-16s %-8s %s\n", f.Name, f.Type, def.Repr())
		}
	}
}
