package employee

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/vigil/adapter/cli"
	"github.com/felixgeelhaar/vigil/internal/workforce/domain"
	"github.com/spf13/cobra"
)

var (
	addCompany string
	addEmail   string
	addName    string
	addType    string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Register an employee",
	Long: `Register an employee of a company.

Examples:
  vigil employees add --company 9a1b... --email dana@example.com --name Dana --type full_time
  vigil employees add --company 9a1b... --email lee@example.com --name Lee --type freelancer`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.EmployeeRepo == nil {
			return errors.New("employee registration requires database connection")
		}
		companyID, err := cli.ParseID("company", addCompany)
		if err != nil {
			return err
		}
		employmentType, err := domain.ParseEmploymentType(addType)
		if err != nil {
			return err
		}

		employee, err := domain.NewEmployee(companyID, addEmail, addName, employmentType)
		if err != nil {
			return err
		}
		if err := app.EmployeeRepo.Save(cmd.Context(), employee); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Employee registered: %s (%s)\n", employee.ID, employee.EmploymentType)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addCompany, "company", "", "company id")
	addCmd.Flags().StringVar(&addEmail, "email", "", "employee email")
	addCmd.Flags().StringVar(&addName, "name", "", "employee name")
	addCmd.Flags().StringVar(&addType, "type", string(domain.EmploymentFullTime), "employment type: full_time or freelancer")
}
