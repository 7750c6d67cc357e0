package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/vigil/adapter/cli"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var listCompanies []string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List running sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.TrackingService == nil {
			return errors.New("sessions require database connection")
		}
		companyIDs := make([]uuid.UUID, 0, len(listCompanies))
		for _, v := range listCompanies {
			id, err := cli.ParseID("company", v)
			if err != nil {
				return err
			}
			companyIDs = append(companyIDs, id)
		}

		entries, err := app.TrackingService.ListRunning(cmd.Context(), companyIDs)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No running sessions.")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(out, "%s  user=%s company=%s started=%s\n",
				e.ID, e.UserID, e.CompanyID, e.StartedAt.Local().Format(time.DateTime))
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringSliceVar(&listCompanies, "company", nil, "restrict to company ids")
}
