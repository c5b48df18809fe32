package cli

import (
	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/liteclient/pkg/model"
)

var budgetCmd = &cobra.Command{
	Use:   "budget",
	Short: "Create and assign LiteLLM budgets",
}

var budgetCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a budget",
	Args:  cobra.NoArgs,
	RunE:  runBudgetCreate,
}

var budgetAssignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Assign a budget to a customer",
	Args:  cobra.NoArgs,
	RunE:  runBudgetAssign,
}

func init() {
	rootCmd.AddCommand(budgetCmd)
	budgetCmd.AddCommand(budgetCreateCmd)
	budgetCmd.AddCommand(budgetAssignCmd)

	budgetCreateCmd.Flags().StringP("id", "i", "", "Budget ID")
	budgetCreateCmd.Flags().Float64P("max", "m", 0, "Maximum budget (0 caps spend at zero)")
	budgetCreateCmd.Flags().String("currency", "USD", "Currency")
	budgetCreateCmd.Flags().StringP("reset", "r", "monthly", "Reset interval")
	_ = budgetCreateCmd.MarkFlagRequired("id")
	_ = budgetCreateCmd.MarkFlagRequired("max")
	addCredentialFlags(budgetCreateCmd)

	budgetAssignCmd.Flags().StringP("user", "u", "", "Customer user ID")
	budgetAssignCmd.Flags().StringP("budget", "b", "", "Budget ID")
	_ = budgetAssignCmd.MarkFlagRequired("user")
	_ = budgetAssignCmd.MarkFlagRequired("budget")
	addCredentialFlags(budgetAssignCmd)
}

func runBudgetCreate(cmd *cobra.Command, _ []string) error {
	id, _ := cmd.Flags().GetString("id")
	maxBudget, _ := cmd.Flags().GetFloat64("max")
	currency, _ := cmd.Flags().GetString("currency")
	reset, _ := cmd.Flags().GetString("reset")

	a, err := setupApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, end, err := a.signIn(cmd)
	if err != nil {
		return err
	}
	defer end()

	resp, err := a.router.CreateBudget(ctx, model.BudgetCreateRequest{
		BudgetID:      id,
		MaxBudget:     maxBudget,
		Currency:      currency,
		ResetInterval: reset,
	})
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), outputFormat, resp, budgetResponseTable(resp))
}

func runBudgetAssign(cmd *cobra.Command, _ []string) error {
	user, _ := cmd.Flags().GetString("user")
	budget, _ := cmd.Flags().GetString("budget")

	a, err := setupApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, end, err := a.signIn(cmd)
	if err != nil {
		return err
	}
	defer end()

	resp, err := a.router.AssignBudget(ctx, model.BudgetAssignment{UserID: user, BudgetID: budget})
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), outputFormat, resp, budgetResponseTable(resp))
}
