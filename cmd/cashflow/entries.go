package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cashflow/internal/cli"
	"github.com/Veraticus/cashflow/internal/ledger"
	"github.com/Veraticus/cashflow/internal/model"
	"github.com/Veraticus/cashflow/internal/recurrence"
	"github.com/Veraticus/cashflow/internal/service"
)

func entriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "Manage ledger entries",
		Long: `Add, edit, delete, reconcile and list ledger entries.

Card entries get their cash date from the card's invoice cycle. Entries created
with --repeat belong to a recurrence series; edits and deletes on them take a
--scope of "one" or "all" (this and every later unreconciled instance).`,
	}

	cmd.AddCommand(addEntryCmd())
	cmd.AddCommand(editEntryCmd())
	cmd.AddCommand(deleteEntryCmd())
	cmd.AddCommand(reconcileEntryCmd())
	cmd.AddCommand(listEntriesCmd())

	return cmd
}

func addEntryCmd() *cobra.Command {
	var (
		kind        string
		periodicity string
		count       int
	)

	cmd := &cobra.Command{
		Use:   "add <description> <amount>",
		Short: "Add an entry or a recurring series",
		Example: `  # A card purchase; the cash date is the invoice due date
  cashflow entries add "Dinner" 120 --card 1 --date 2024-03-28

  # Twelve monthly rent payments from a bank account
  cashflow entries add "Rent" 1500 --account 1 --date 2024-01-05 --repeat monthly --count 12`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			n, err := newEntryFromFlags(cmd, args, kind, periodicity, count)
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			var created []model.LedgerEntry
			err = withReopen(cmd, func(confirm bool) error {
				n.ConfirmReopen = confirm
				var createErr error
				created, createErr = a.ledger.CreateEntry(ctx, n)
				return createErr
			})
			if err != nil {
				return err
			}

			printf(cmd, "%s Created %d entr%s\n",
				cli.SuccessStyle.Render(cli.SuccessIcon), len(created), plural(len(created), "y", "ies"))
			printLine(cmd, cli.EntryTable(created))
			return nil
		},
	}

	cmd.Flags().Int64("account", 0, "Bank account ID")
	cmd.Flags().Int64("card", 0, "Credit card ID")
	cmd.Flags().Int64("category", 0, "Category ID")
	cmd.Flags().String("date", "", "Competence date (default today)")
	cmd.Flags().String("cash-date", "", "Cash date for bank entries (default competence date)")
	cmd.Flags().StringVar(&kind, "kind", "D", "Entry kind: D (debit) or C (credit)")
	cmd.Flags().StringVar(&periodicity, "repeat", "", "Periodicity: daily, weekly, monthly, semiannual, annual (monthly when only --count is given)")
	cmd.Flags().IntVar(&count, "count", 1, "Number of occurrences")
	cmd.Flags().Bool("reconciled", false, "Mark the first occurrence as reconciled")
	addReopenFlag(cmd)

	return cmd
}

func newEntryFromFlags(cmd *cobra.Command, args []string, kind, periodicity string, count int) (ledger.NewEntry, error) {
	var n ledger.NewEntry

	amount, err := parseAmountArg(args[1])
	if err != nil {
		return n, err
	}
	k, err := model.ParseKind(kind)
	if err != nil {
		return n, err
	}
	var p model.Periodicity
	if periodicity != "" {
		if p, err = model.ParsePeriodicity(periodicity); err != nil {
			return n, err
		}
	}
	competence, err := optionalDate(cmd, "date")
	if err != nil {
		return n, err
	}
	if competence.IsZero() {
		competence = time.Now()
	}
	cashDate, err := optionalDate(cmd, "cash-date")
	if err != nil {
		return n, err
	}

	n = ledger.NewEntry{
		Description:    args[0],
		Amount:         amount,
		Kind:           k,
		CompetenceDate: competence,
		CashDate:       cashDate,
		CategoryID:     optionalInt64(cmd, "category"),
		AccountID:      optionalInt64(cmd, "account"),
		CardID:         optionalInt64(cmd, "card"),
		Periodicity:    p,
		Count:          count,
	}
	n.Reconciled, _ = cmd.Flags().GetBool("reconciled")

	if (n.AccountID == nil) == (n.CardID == nil) {
		return n, fmt.Errorf("exactly one of --account or --card is required")
	}
	return n, nil
}

func editEntryCmd() *cobra.Command {
	var scopeFlag string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit an entry",
		Long: `Edit an entry. With --scope all the changes also reach every later
unreconciled instance of its series; a new --date only moves the targeted entry.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			scope, err := recurrence.ParseScope(scopeFlag)
			if err != nil {
				return err
			}
			changes, err := changesFromFlags(cmd)
			if err != nil {
				return err
			}
			if changes.IsEmpty() {
				return fmt.Errorf("nothing to change")
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			var updated []model.LedgerEntry
			err = withReopen(cmd, func(confirm bool) error {
				var updateErr error
				updated, updateErr = a.ledger.UpdateEntry(ctx, id, changes, scope, confirm)
				return updateErr
			})
			if err != nil {
				return err
			}

			printf(cmd, "%s Updated %d entr%s\n",
				cli.SuccessStyle.Render(cli.SuccessIcon), len(updated), plural(len(updated), "y", "ies"))
			printLine(cmd, cli.EntryTable(updated))
			return nil
		},
	}

	addChangeFlags(cmd)
	cmd.Flags().StringVar(&scopeFlag, "scope", "one", "Scope for recurring entries: one or all")
	addReopenFlag(cmd)

	return cmd
}

func deleteEntryCmd() *cobra.Command {
	var scopeFlag string

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an entry",
		Long: `Delete an entry. With --scope all every later unreconciled instance of its
series is deleted too; reconciled instances are kept and detached from the series.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			scope, err := recurrence.ParseScope(scopeFlag)
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			var plan recurrence.DeletePlan
			err = withReopen(cmd, func(confirm bool) error {
				var deleteErr error
				plan, deleteErr = a.ledger.DeleteEntry(ctx, id, scope, confirm)
				return deleteErr
			})
			if err != nil {
				return err
			}

			printDeletePlan(cmd, plan)
			return nil
		},
	}

	cmd.Flags().StringVar(&scopeFlag, "scope", "one", "Scope for recurring entries: one or all")
	addReopenFlag(cmd)

	return cmd
}

func printDeletePlan(cmd *cobra.Command, plan recurrence.DeletePlan) {
	printf(cmd, "%s Deleted %d entr%s\n",
		cli.SuccessStyle.Render(cli.SuccessIcon), len(plan.Delete), plural(len(plan.Delete), "y", "ies"))
	if len(plan.Orphan) > 0 {
		printf(cmd, "%s Kept %d reconciled entr%s outside the series: %v\n",
			cli.InfoStyle.Render(cli.InfoIcon), len(plan.Orphan), plural(len(plan.Orphan), "y", "ies"), plan.Orphan)
	}
}

func reconcileEntryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile <id>",
		Short: "Mark an entry as reconciled",
		Long: `Mark an entry as reconciled, optionally correcting the amount that actually
moved and, for bank entries, the date it moved.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			r, err := reconciliationFromFlags(cmd)
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			var entry *model.LedgerEntry
			err = withReopen(cmd, func(confirm bool) error {
				r.ConfirmReopen = confirm
				var reconcileErr error
				entry, reconcileErr = a.ledger.ReconcileEntry(ctx, id, r)
				return reconcileErr
			})
			if err != nil {
				return err
			}

			printf(cmd, "%s Reconciled entry %d (%s on %s)\n",
				cli.SuccessStyle.Render(cli.CheckIcon), entry.ID,
				entry.Amount.StringFixed(2), entry.CashDate.Format(time.DateOnly))
			return nil
		},
	}

	cmd.Flags().String("amount", "", "Amount that actually moved")
	cmd.Flags().String("cash-date", "", "Date the money moved (bank entries only)")
	addReopenFlag(cmd)

	return cmd
}

func reconciliationFromFlags(cmd *cobra.Command) (ledger.Reconciliation, error) {
	var r ledger.Reconciliation
	amount, err := parseAmountFlag(cmd, "amount")
	if err != nil {
		return r, err
	}
	r.Amount = amount
	cashDate, err := optionalDate(cmd, "cash-date")
	if err != nil {
		return r, err
	}
	if !cashDate.IsZero() {
		r.CashDate = &cashDate
	}
	return r, nil
}

func listEntriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger entries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			filter, err := entryFilterFromFlags(cmd)
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			entries, err := a.ledger.ListEntries(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to list entries: %w", err)
			}
			if len(entries) == 0 {
				printLine(cmd, cli.InfoStyle.Render("No entries found."))
				return nil
			}

			printLine(cmd, cli.EntryTable(entries))
			return nil
		},
	}

	cmd.Flags().String("from", "", "First date to include")
	cmd.Flags().String("to", "", "Last date to include")
	cmd.Flags().Bool("by-competence", false, "Filter dates by competence instead of cash date")
	cmd.Flags().Int64("account", 0, "Only this bank account")
	cmd.Flags().Int64("card", 0, "Only this credit card")
	cmd.Flags().Int64("invoice", 0, "Only this invoice")
	cmd.Flags().Int64("series", 0, "Only this recurrence series")
	cmd.Flags().Bool("unreconciled", false, "Only unreconciled entries")
	cmd.Flags().Int("limit", 0, "Maximum number of entries")

	return cmd
}

func entryFilterFromFlags(cmd *cobra.Command) (service.EntryFilter, error) {
	var filter service.EntryFilter

	from, err := optionalDate(cmd, "from")
	if err != nil {
		return filter, err
	}
	to, err := optionalDate(cmd, "to")
	if err != nil {
		return filter, err
	}
	if !from.IsZero() {
		filter.StartDate = &from
	}
	if !to.IsZero() {
		filter.EndDate = &to
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return filter, fmt.Errorf("--to %s is before --from %s", to.Format(time.DateOnly), from.Format(time.DateOnly))
	}

	filter.ByCompetence, _ = cmd.Flags().GetBool("by-competence")
	filter.AccountID = optionalInt64(cmd, "account")
	filter.CardID = optionalInt64(cmd, "card")
	filter.InvoiceID = optionalInt64(cmd, "invoice")
	filter.SeriesID = optionalInt64(cmd, "series")
	if unreconciled, _ := cmd.Flags().GetBool("unreconciled"); unreconciled {
		no := false
		filter.Reconciled = &no
	}
	filter.Limit, _ = cmd.Flags().GetInt("limit")
	return filter, nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
