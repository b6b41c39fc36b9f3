package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/cashflow/internal/bulk"
	"github.com/Veraticus/cashflow/internal/cli"
	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/ledger"
	"github.com/Veraticus/cashflow/internal/model"
	"github.com/Veraticus/cashflow/internal/recurrence"
)

func bulkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Act on a selection of entries",
		Long: `Edit, delete or reconcile several entries at once.

Entries are selected by id, separated by spaces or commas.`,
	}

	cmd.AddCommand(bulkEditCmd())
	cmd.AddCommand(bulkDeleteCmd())
	cmd.AddCommand(bulkReconcileCmd())

	return cmd
}

func selectionFromArgs(args []string) (*bulk.Selection, error) {
	ids, err := parseIDs(args)
	if err != nil {
		return nil, err
	}
	return bulk.NewSelection(ids...), nil
}

func bulkEditCmd() *cobra.Command {
	var scopeFlag string

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit the single selected entry",
		Long: `Edit the selected entry. Exactly one entry must be selected. For a recurring
entry --scope all also updates its later unreconciled instances.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sel, err := selectionFromArgs(args)
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

			target, err := bulk.NewCoordinator(a.ledger).Edit(ctx, sel)
			if err != nil {
				return err
			}

			scope := recurrence.ScopeOne
			if target.Recurring {
				if scope, err = recurrence.ParseScope(scopeFlag); err != nil {
					return err
				}
				if scope == recurrence.ScopeAllFuture && !target.FutureUnreconciled {
					printLine(cmd, cli.FormatInfo("No later unreconciled instances; only this entry changes."))
				}
			}

			var updated []model.LedgerEntry
			err = withReopen(cmd, func(confirm bool) error {
				var updateErr error
				updated, updateErr = a.ledger.UpdateEntry(ctx, target.Entry.ID, changes, scope, confirm)
				return updateErr
			})
			if err != nil {
				return err
			}

			printLine(cmd, cli.EntryTable(updated))
			return nil
		},
	}

	addChangeFlags(cmd)
	cmd.Flags().StringVar(&scopeFlag, "scope", "one", "Scope for a recurring entry: one or all")
	addReopenFlag(cmd)

	return cmd
}

func bulkDeleteCmd() *cobra.Command {
	var optionFlag string

	cmd := &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete the selected entries",
		Long: `Delete the selected entries. When any of them is recurring --option is
required: "one" deletes only the selected entries, "all" also deletes every
later unreconciled instance of their series.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sel, err := selectionFromArgs(args)
			if err != nil {
				return err
			}
			var opt *bulk.DeleteOption
			if optionFlag != "" {
				parsed, err := bulk.ParseDeleteOption(optionFlag)
				if err != nil {
					return err
				}
				opt = &parsed
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			coordinator := bulk.NewCoordinator(a.ledger)
			var plan recurrence.DeletePlan
			err = withReopen(cmd, func(confirm bool) error {
				var deleteErr error
				plan, deleteErr = coordinator.Delete(ctx, sel, opt, confirm)
				return deleteErr
			})
			if errors.Is(err, common.ErrDeleteOptionRequired) {
				return common.NewUserError("pass --option one or --option all", err)
			}
			if err != nil {
				return err
			}

			printDeletePlan(cmd, plan)
			return nil
		},
	}

	cmd.Flags().StringVar(&optionFlag, "option", "", "For recurring entries: one or all")
	addReopenFlag(cmd)

	return cmd
}

func bulkReconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile <id>...",
		Short: "Reconcile the selected entries in cash date order",
		Long: `Reconcile the selected entries that are not reconciled yet, oldest cash date
first. With --interactive each entry is confirmed before it is reconciled.
Entries that fail are reported and the rest of the queue continues.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			sel, err := selectionFromArgs(args)
			if err != nil {
				return err
			}
			interactive, _ := cmd.Flags().GetBool("interactive")
			reopen, _ := cmd.Flags().GetBool("reopen")

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			queue, err := bulk.NewCoordinator(a.ledger).Reconcile(ctx, sel)
			if err != nil {
				return err
			}
			if len(queue) == 0 {
				printLine(cmd, cli.InfoStyle.Render("Every selected entry is already reconciled."))
				return nil
			}

			console := cli.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout())
			var bar *progressbar.ProgressBar
			if !interactive {
				bar = cli.NewProgress(cmd.ErrOrStderr(), len(queue), "Reconciling")
			}

			var done, failed int
			for _, id := range queue {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if interactive {
					entry, err := a.ledger.Entry(ctx, id)
					if err != nil {
						return err
					}
					ok, err := console.Confirm(ctx, fmt.Sprintf("Reconcile %d %q %s on %s?",
						entry.ID, entry.Description, entry.Amount.StringFixed(2), entry.CashDate.Format(time.DateOnly)))
					if err != nil {
						return err
					}
					if !ok {
						continue
					}
				}

				if _, err := a.ledger.ReconcileEntry(ctx, id, ledger.Reconciliation{ConfirmReopen: reopen}); err != nil {
					failed++
					common.LogError(err, "Failed to reconcile entry", common.Fields{"id": id})
				} else {
					done++
				}
				cli.Step(bar)
			}

			printf(cmd, "%s Reconciled %d of %d entries\n",
				cli.SuccessStyle.Render(cli.CheckIcon), done, len(queue))
			if failed > 0 {
				return fmt.Errorf("%d entries could not be reconciled", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolP("interactive", "i", false, "Confirm each entry")
	addReopenFlag(cmd)

	return cmd
}
