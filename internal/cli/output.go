package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/ogulcanaydogan/liteclient/pkg/model"
)

// render writes v as JSON or YAML, or calls table for the table format.
func render(w io.Writer, format string, v any, table func(*tabwriter.Writer)) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q (use table, json or yaml)", format)
	}
}

func formatBudget(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f", *v)
}

func customersTable(customers []model.Customer) func(*tabwriter.Writer) {
	return func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "USER ID\tSPEND\tMAX BUDGET\n")
		for _, c := range customers {
			fmt.Fprintf(w, "%s\t$%.2f\t%s\n", c.UserID, c.Spend, formatBudget(c.MaxBudget))
		}
	}
}

func customerDetailTable(d *model.CustomerDetail) func(*tabwriter.Writer) {
	return func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "User ID:\t%s\n", d.UserID)
		fmt.Fprintf(w, "Spend:\t$%.2f\n", d.Spend)
		fmt.Fprintf(w, "Max budget:\t%s\n", formatBudget(d.MaxBudget))
		if len(d.Budgets) == 0 {
			fmt.Fprintf(w, "Budgets:\tnone\n")
			return
		}
		fmt.Fprintf(w, "\nBUDGET ID\tMAX BUDGET\tSPEND\n")
		for _, b := range d.Budgets {
			fmt.Fprintf(w, "%s\t%s\t$%.2f\n", b.BudgetID, formatBudget(b.MaxBudget), b.Spend)
		}
	}
}

func budgetResponseTable(r *model.BudgetResponse) func(*tabwriter.Writer) {
	return func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "BUDGET ID\tMAX BUDGET\n")
		fmt.Fprintf(w, "%s\t%s\n", r.BudgetID, formatBudget(r.MaxBudget))
	}
}

func auditTable(entries []model.AuditEntry) func(*tabwriter.Writer) {
	return func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "TIME\tPROCEDURE\tACTOR\tOUTCOME\tINPUT\n")
		for _, e := range entries {
			outcome := e.Outcome
			if e.ErrorKind != "" {
				outcome += " (" + e.ErrorKind + ")"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				e.Procedure, e.Actor, outcome, e.Input,
			)
		}
	}
}
