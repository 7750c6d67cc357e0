package cli

import (
	"fmt"
	"sort"

	"github.com/felixgeelhaar/vigil/pkg/observability"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check connectivity of the configured backends",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil {
			return fmt.Errorf("app not initialized")
		}
		if app.Health == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		}

		status, results := app.Health.Check(cmd.Context())
		names := make([]string, 0, len(results))
		for name := range results {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			r := results[name]
			line := fmt.Sprintf("%-10s %s", name, r.Status)
			if r.Message != "" {
				line += ": " + r.Message
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		if status != observability.HealthStatusHealthy {
			return fmt.Errorf("unhealthy")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
