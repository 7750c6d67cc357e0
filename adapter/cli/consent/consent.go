package consent

import "github.com/spf13/cobra"

// Cmd is the consent command group.
var Cmd = &cobra.Command{
	Use:   "consent",
	Short: "Evaluate and audit monitoring consent",
	Long:  `Check whether a capability is permitted for an employee and inspect the consent audit trail.`,
}

func init() {
	Cmd.AddCommand(checkCmd)
	Cmd.AddCommand(auditCmd)
}
