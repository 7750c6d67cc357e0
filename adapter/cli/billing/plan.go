package billing

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/vigil/adapter/cli"
	"github.com/felixgeelhaar/vigil/internal/billing/domain"
	"github.com/spf13/cobra"
)

var (
	setPlanCompany string
	setPlanName    string
	setPlanStatus  string
)

var setPlanCmd = &cobra.Command{
	Use:   "set-plan",
	Short: "Create or update a company subscription",
	Long: `Set the subscription plan of a company.

Examples:
  vigil billing set-plan --company 9a1b... --plan business
  vigil billing set-plan --company 9a1b... --plan business --status canceled`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.SubscriptionRepo == nil {
			return errors.New("subscription updates require database connection")
		}
		companyID, err := cli.ParseID("company", setPlanCompany)
		if err != nil {
			return err
		}
		plan, err := domain.ParsePlan(setPlanName)
		if err != nil {
			return err
		}
		status, err := domain.ParseSubscriptionStatus(setPlanStatus)
		if err != nil {
			return err
		}

		subscription, err := app.SubscriptionRepo.FindByCompanyID(cmd.Context(), companyID)
		if err != nil {
			return err
		}
		if subscription == nil {
			subscription = domain.NewSubscription(companyID, plan)
		}
		subscription.Plan = plan
		subscription.Status = status
		subscription.UpdatedAt = time.Now().UTC()

		if err := app.SubscriptionRepo.Upsert(cmd.Context(), subscription); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Subscription updated: %s (%s)\n", subscription.Plan, subscription.Status)
		return nil
	},
}

func init() {
	setPlanCmd.Flags().StringVar(&setPlanCompany, "company", "", "company id")
	setPlanCmd.Flags().StringVar(&setPlanName, "plan", "", "plan: free, starter, professional or business")
	setPlanCmd.Flags().StringVar(&setPlanStatus, "status", string(domain.SubscriptionActive), "subscription status")
}
