package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/vigil/adapter/cli"
	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop <session-id>",
	Short: "Stop a tracked session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.TrackingService == nil {
			return errors.New("sessions require database connection")
		}
		entryID, err := cli.ParseID("session-id", args[0])
		if err != nil {
			return err
		}

		entry, err := app.TrackingService.Stop(cmd.Context(), entryID)
		if entry == nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session stopped: %s (%s)\n", entry.ID, entry.Duration().Round(time.Second))
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Warning: %v\n", err)
		}
		return nil
	},
}
