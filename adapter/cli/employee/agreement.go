package employee

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/vigil/adapter/cli"
	"github.com/felixgeelhaar/vigil/internal/workforce/domain"
	"github.com/spf13/cobra"
)

var (
	agreementEmployee  string
	agreementAutoTimer bool
	agreementShots     bool
	agreementActivity  bool
	agreementRecording bool
	agreementSign      bool
)

var agreementCmd = &cobra.Command{
	Use:   "agreement",
	Short: "Create a work agreement for an employee",
	Long: `Create a work agreement with the given monitoring consents.

Consent only takes effect once the agreement is signed by both parties
and active. Use --sign to record both signatures and activate it.

Examples:
  vigil employees agreement --employee 3f0c... --screenshot --sign`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.EmployeeRepo == nil || app.AgreementRepo == nil {
			return errors.New("agreements require database connection")
		}
		employeeID, err := cli.ParseID("employee", agreementEmployee)
		if err != nil {
			return err
		}
		employee, err := app.EmployeeRepo.FindByID(cmd.Context(), employeeID)
		if err != nil {
			return err
		}

		agreement := domain.NewWorkAgreement(employee.ID, employee.CompanyID)
		agreement.AutoTimerConsent = agreementAutoTimer
		agreement.ScreenshotConsent = agreementShots
		agreement.ActivityTrackingConsent = agreementActivity
		agreement.ScreenRecordingConsent = agreementRecording
		if agreementSign {
			agreement.Activate()
		}
		if err := app.AgreementRepo.Save(cmd.Context(), agreement); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Agreement created: %s (%s)\n", agreement.ID, agreement.Status)
		return nil
	},
}

func init() {
	agreementCmd.Flags().StringVar(&agreementEmployee, "employee", "", "employee id")
	agreementCmd.Flags().BoolVar(&agreementAutoTimer, "auto-timer", false, "consent to the automatic timer")
	agreementCmd.Flags().BoolVar(&agreementShots, "screenshot", false, "consent to screenshots")
	agreementCmd.Flags().BoolVar(&agreementActivity, "activity-tracking", false, "consent to activity tracking")
	agreementCmd.Flags().BoolVar(&agreementRecording, "screen-recording", false, "consent to screen recording")
	agreementCmd.Flags().BoolVar(&agreementSign, "sign", false, "record both signatures and activate")
}
