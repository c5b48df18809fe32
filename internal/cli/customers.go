package cli

import (
	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/liteclient/pkg/model"
)

var customersCmd = &cobra.Command{
	Use:   "customers",
	Short: "Inspect LiteLLM customers",
}

var customersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List customers with their spend and budget",
	Args:  cobra.NoArgs,
	RunE:  runCustomersList,
}

var customersInfoCmd = &cobra.Command{
	Use:   "info <user-id>",
	Short: "Show one customer and its budgets",
	Args:  cobra.ExactArgs(1),
	RunE:  runCustomersInfo,
}

func init() {
	rootCmd.AddCommand(customersCmd)
	customersCmd.AddCommand(customersListCmd)
	customersCmd.AddCommand(customersInfoCmd)

	addCredentialFlags(customersListCmd)
	addCredentialFlags(customersInfoCmd)
}

func runCustomersList(cmd *cobra.Command, _ []string) error {
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

	customers, err := a.router.ListCustomers(ctx)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), outputFormat, customers, customersTable(customers))
}

func runCustomersInfo(cmd *cobra.Command, args []string) error {
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

	detail, err := a.router.GetCustomerInfo(ctx, model.CustomerInfoInput{EndUserID: args[0]})
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), outputFormat, detail, customerDetailTable(detail))
}
