package main

import (
	"github.com/matsen/hbnb/internal/console"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(execCmd)
}

var execCmd = &cobra.Command{
	Use:   "exec <line>...",
	Short: "Run console commands without a prompt",
	Long: `Run each argument as one console line, in order, then exit.
Output is exactly what the interactive console would print, without prompts.

Example:
  hbnb exec 'create User' 'count User'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	d := console.NewDispatcher(mustOpenStore(), cmd.OutOrStdout(), cmd.ErrOrStderr(), logger)
	c := console.New(d, cmd.OutOrStdout())
	c.Prompt = ""
	c.Exec(args)
	return nil
}
