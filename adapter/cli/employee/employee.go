package employee

import "github.com/spf13/cobra"

// Cmd is the employee command group.
var Cmd = &cobra.Command{
	Use:     "employees",
	Aliases: []string{"employee"},
	Short:   "Register employees and their work agreements",
}

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(agreementCmd)
}
