package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cashflow/internal/billing"
	"github.com/Veraticus/cashflow/internal/staging"
)

func resolveCmd() *cobra.Command {
	var (
		closingDay int
		dueDay     int
	)

	cmd := &cobra.Command{
		Use:   "resolve <competence-date>",
		Short: "Show which invoice a card purchase falls on",
		Long: `Resolve the cash date of a card purchase: the due date of the invoice the
purchase belongs to. Purchases after the closing day go to the next invoice.`,
		Example: `  cashflow resolve 2024-03-28 --closing-day 25 --due-day 10`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			competence, err := staging.ParseDate(args[0])
			if err != nil {
				return err
			}
			due, err := billing.ResolveCashDate(competence, closingDay, dueDay)
			if err != nil {
				return err
			}
			closing := billing.ClosingDate(due, closingDay)

			printf(cmd, "Purchase on %s\n", competence.Format(time.DateOnly))
			printf(cmd, "  Invoice closes %s\n", closing.Format(time.DateOnly))
			printf(cmd, "  Cash date (due) %s\n", due.Format(time.DateOnly))
			return nil
		},
	}

	cmd.Flags().IntVar(&closingDay, "closing-day", 0, "Day of month the invoice closes (1-31)")
	cmd.Flags().IntVar(&dueDay, "due-day", 0, "Day of month the invoice is due (1-31)")
	_ = cmd.MarkFlagRequired("closing-day")
	_ = cmd.MarkFlagRequired("due-day")

	return cmd
}

