package session

import "github.com/spf13/cobra"

// Cmd is the tracked session command group.
var Cmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session"},
	Short:   "Start, stop and list tracked sessions",
	Long: `Tracked sessions are running time entries. Starting a session evaluates
capture consent; stopping it ends every capture loop of the session.`,
}

func init() {
	Cmd.AddCommand(startCmd)
	Cmd.AddCommand(stopCmd)
	Cmd.AddCommand(listCmd)
}
