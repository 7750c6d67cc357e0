package consent

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/vigil/adapter/cli"
	"github.com/spf13/cobra"
)

var (
	auditUser  string
	auditLimit int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent consent decisions for an employee",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.AuditReader == nil {
			return errors.New("audit history requires database connection")
		}
		userID, err := cli.ParseID("user", auditUser)
		if err != nil {
			return err
		}

		records, err := app.AuditReader.ListByUser(cmd.Context(), userID, auditLimit)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(records) == 0 {
			fmt.Fprintln(out, "No consent checks recorded.")
			return nil
		}
		for _, r := range records {
			verdict := "denied"
			if r.Decision.HasConsent {
				verdict = "granted"
			}
			fmt.Fprintf(out, "%s  %-18s %-7s %s\n",
				r.CreatedAt.Local().Format(time.DateTime), r.Capability, verdict, r.Decision.Reason)
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditUser, "user", "", "employee id")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 20, "maximum number of records")
}
