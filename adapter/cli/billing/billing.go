package billing

import "github.com/spf13/cobra"

// Cmd is the billing command group.
var Cmd = &cobra.Command{
	Use:   "billing",
	Short: "Manage company subscriptions",
	Long:  `Inspect and set the subscription plan that gates screen recording.`,
}

func init() {
	Cmd.AddCommand(statusCmd)
	Cmd.AddCommand(setPlanCmd)
}
