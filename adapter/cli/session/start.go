package session

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/vigil/adapter/cli"
	"github.com/spf13/cobra"
)

var (
	startUser    string
	startCompany string
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a tracked session for an employee",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.TrackingService == nil {
			return errors.New("sessions require database connection")
		}
		userID, err := cli.ParseID("user", startUser)
		if err != nil {
			return err
		}
		companyID, err := cli.ParseID("company", startCompany)
		if err != nil {
			return err
		}

		entry, err := app.TrackingService.Start(cmd.Context(), userID, companyID)
		if entry == nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session started: %s\n", entry.ID)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Warning: %v\n", err)
		}
		if app.Coordinator != nil {
			screenshots, recordings := app.Coordinator.SessionActive(entry.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Screenshots: %s\n", activeLabel(screenshots))
			fmt.Fprintf(cmd.OutOrStdout(), "Screen recording: %s\n", activeLabel(recordings))
		}
		return nil
	},
}

func activeLabel(active bool) string {
	if active {
		return "scheduled"
	}
	return "not permitted"
}

func init() {
	startCmd.Flags().StringVar(&startUser, "user", "", "employee id")
	startCmd.Flags().StringVar(&startCompany, "company", "", "company id")
}
