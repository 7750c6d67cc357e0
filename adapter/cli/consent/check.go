package consent

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/vigil/adapter/cli"
	"github.com/felixgeelhaar/vigil/internal/consent/domain"
	"github.com/spf13/cobra"
)

var (
	checkUser       string
	checkCompany    string
	checkCapability string
	checkAudit      bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check consent for a capability",
	Long: `Evaluate whether a capability is permitted for an employee.

Capabilities: auto_timer, screenshot, activity_tracking, screen_recording.

Examples:
  vigil consent check --user 3f0c... --capability screenshot
  vigil consent check --user 3f0c... --capability screen_recording --company 9a1b... --audit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.ConsentGate == nil {
			return errors.New("consent checks require database connection")
		}

		userID, err := cli.ParseID("user", checkUser)
		if err != nil {
			return err
		}
		companyID, err := cli.ParseOptionalID("company", checkCompany)
		if err != nil {
			return err
		}
		capability, err := domain.ParseCapability(checkCapability)
		if err != nil {
			return err
		}

		decision, err := app.ConsentGate.Check(cmd.Context(), capability, userID, companyID)
		if err != nil {
			return err
		}
		if checkAudit {
			app.ConsentGate.LogConsentCheck(cmd.Context(), userID, companyID, capability, decision, map[string]string{"trigger": "cli"})
		}

		verdict := "denied"
		if decision.HasConsent {
			verdict = "granted"
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %s\n", capability, verdict)
		fmt.Fprintf(out, "Reason: %s\n", decision.Reason)
		if decision.EmploymentType != "" {
			fmt.Fprintf(out, "Employment: %s\n", decision.EmploymentType)
		}
		if decision.Plan != "" {
			fmt.Fprintf(out, "Plan: %s\n", decision.Plan)
		}
		if decision.AgreementID != nil {
			fmt.Fprintf(out, "Agreement: %s\n", decision.AgreementID)
		}
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkUser, "user", "", "employee id")
	checkCmd.Flags().StringVar(&checkCompany, "company", "", "company id (defaults to the employee's company)")
	checkCmd.Flags().StringVar(&checkCapability, "capability", "", "capability to check")
	checkCmd.Flags().BoolVar(&checkAudit, "audit", false, "append the decision to the consent audit log")
}
