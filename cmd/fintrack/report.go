package main

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"fintrack/internal/cli"
	"fintrack/internal/core"
	"fintrack/internal/services"
)

func reportCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print transactions and totals",
		Long: `Print the stored transactions and the income, expense and net balance
totals as tables, reading the configured store directly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var filter core.TransactionType
			if kind != "" {
				t, err := core.ParseTransactionType(kind)
				if err != nil {
					return fmt.Errorf("--type %q: %w", kind, err)
				}
				filter = t
			}

			cfg, logger, err := cli.LoadAndValidateConfig()
			if err != nil {
				return fmt.Errorf("configuration: %w", err)
			}
			store, err := cli.OpenStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			svc := services.NewTransactionService(store.Store,
				services.WithRetry(cli.RetryOptions(cfg)),
				services.WithLogger(logger))

			var ts []core.Transaction
			if filter != "" {
				ts, err = svc.ByType(ctx, filter)
			} else {
				ts, err = svc.All(ctx)
			}
			if err != nil {
				return err
			}
			summary, err := svc.Summary(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			renderTransactions(out, ts)
			fmt.Fprintln(out)
			renderSummary(out, summary)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "type", "", "only list transactions of this type (INCOME or EXPENSE)")
	return cmd
}

func renderTransactions(w io.Writer, ts []core.Transaction) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Date", "Type", "Category", "Description", "Amount"})
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT,
	})
	for _, t := range ts {
		table.Append([]string{
			fmt.Sprintf("%d", t.ID),
			t.Date.String(),
			t.Type.String(),
			t.Category,
			t.Description,
			core.FormatAmount(t.Amount),
		})
	}
	table.SetFooter([]string{"", "", "", "", "Count", fmt.Sprintf("%d", len(ts))})
	table.Render()
}

func renderSummary(w io.Writer, s core.Summary) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Total income", "Total expense", "Net balance"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.Append([]string{
		core.FormatAmount(s.TotalIncome),
		core.FormatAmount(s.TotalExpense),
		core.FormatAmount(s.NetBalance),
	})
	table.Render()
}
