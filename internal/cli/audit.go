package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/liteclient/pkg/model"
	"github.com/ogulcanaydogan/liteclient/pkg/storage"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit trail of budget changes",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded budget mutations, newest first",
	Args:  cobra.NoArgs,
	RunE:  runAuditList,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd)

	auditListCmd.Flags().StringP("procedure", "p", "", "Filter by procedure (e.g. budget.createBudget)")
	auditListCmd.Flags().StringP("actor", "a", "", "Filter by admin email")
	auditListCmd.Flags().Duration("since", 0, "Only entries newer than this (e.g. 24h)")
	auditListCmd.Flags().IntP("limit", "n", 50, "Maximum entries to show")
}

func runAuditList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	procedure, _ := cmd.Flags().GetString("procedure")
	actor, _ := cmd.Flags().GetString("actor")
	since, _ := cmd.Flags().GetDuration("since")
	limit, _ := cmd.Flags().GetInt("limit")

	store, err := storage.NewSQLite(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	defer store.Close()

	filter := model.AuditFilter{
		Procedure: procedure,
		Actor:     actor,
		Limit:     limit,
	}
	if since > 0 {
		filter.Since = time.Now().Add(-since)
	}

	entries, err := store.QueryAudit(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("query audit log: %w", err)
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}

	if len(entries) == 0 && (outputFormat == "table" || outputFormat == "") {
		fmt.Fprintln(cmd.OutOrStdout(), "No audit entries found.")
		return nil
	}
	return render(cmd.OutOrStdout(), outputFormat, entries, auditTable(entries))
}
