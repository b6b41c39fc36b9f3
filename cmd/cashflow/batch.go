package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cashflow/internal/cli"
	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/session"
	"github.com/Veraticus/cashflow/internal/staging"
	"github.com/Veraticus/cashflow/internal/storage"
)

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Review and commit staged import batches",
		Long: `Review a staged import batch, edit or exclude rows, and commit it.

Commands act on the most recent uncommitted batch unless --batch is given.
A commit writes every pending row or nothing at all.`,
	}

	cmd.PersistentFlags().String("batch", "", "Batch ID (default latest uncommitted batch)")

	cmd.AddCommand(listBatchesCmd())
	cmd.AddCommand(showBatchCmd())
	cmd.AddCommand(editRowCmd())
	cmd.AddCommand(excludeRowCmd())
	cmd.AddCommand(commitBatchCmd())
	cmd.AddCommand(discardBatchCmd())

	return cmd
}

// loadBatch returns the batch named by --batch, or the latest uncommitted one.
func loadBatch(cmd *cobra.Command, sessions *session.Store) (*staging.Batch, error) {
	id, _ := cmd.Flags().GetString("batch")
	if id != "" {
		return sessions.Load(id)
	}
	b, err := sessions.Latest()
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.NewUserError("no staged batch; run 'cashflow import' first", err)
	}
	return b, err
}

func printBatch(cmd *cobra.Command, b *staging.Batch) {
	counts := b.Counts()
	printLine(cmd, cli.FormatTitle(fmt.Sprintf("Batch %s (%s)", b.ID, b.Source)))
	printLine(cmd, cli.BatchTable(b))
	printf(cmd, "%d rows: %d pending, %d excluded, %d already imported\n",
		counts.Total, counts.Pending, counts.Excluded, counts.AlreadyImported)
	if counts.Old > 0 {
		printLine(cmd, cli.FormatInfo(fmt.Sprintf("%d lines dated before the account opening were set aside", counts.Old)))
	}
	for _, w := range b.Warnings {
		printLine(cmd, cli.FormatWarning(w))
	}
}

func listBatchesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List staged batches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := openSessions()
			if err != nil {
				return err
			}
			batches, err := sessions.List()
			if err != nil {
				return fmt.Errorf("failed to list batches: %w", err)
			}
			if len(batches) == 0 {
				printLine(cmd, cli.InfoStyle.Render("No staged batches."))
				return nil
			}

			for _, b := range batches {
				state := "staged"
				if b.Committed {
					state = "committed"
				}
				counts := b.Counts()
				printf(cmd, "%s  %s  account %d  %-24s  %d rows (%d pending)  %s\n",
					b.ID, b.CreatedAt.Format(time.DateTime), b.AccountID, b.Source,
					counts.Total, counts.Pending, state)
			}
			return nil
		},
	}
}

func showBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the rows of a batch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := openSessions()
			if err != nil {
				return err
			}
			b, err := loadBatch(cmd, sessions)
			if err != nil {
				return err
			}
			printBatch(cmd, b)
			return nil
		},
	}
}

func editRowCmd() *cobra.Command {
	fields := make([]string, 0, len(staging.Fields()))
	for _, f := range staging.Fields() {
		fields = append(fields, f.String())
	}

	return &cobra.Command{
		Use:   "edit <row> <field> <value>",
		Short: "Edit a field of a staged row",
		Long:  "Edit a field of a staged row. Editable fields: " + strings.Join(fields, ", ") + ".\n\nRaising occurrence_count above one on a single row makes it monthly.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rowID, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid row %q", args[0])
			}
			field, err := staging.ParseField(args[1])
			if err != nil {
				return err
			}

			sessions, err := openSessions()
			if err != nil {
				return err
			}
			b, err := loadBatch(cmd, sessions)
			if err != nil {
				return err
			}
			if err := b.EditRow(rowID, field, args[2]); err != nil {
				return err
			}
			if err := sessions.Save(b); err != nil {
				return fmt.Errorf("failed to save batch: %w", err)
			}

			printf(cmd, "%s Row %d: %s set to %q\n",
				cli.SuccessStyle.Render(cli.SuccessIcon), rowID, field, args[2])
			return nil
		},
	}
}

func excludeRowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exclude <row>...",
		Short: "Toggle whether staged rows are committed",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := openSessions()
			if err != nil {
				return err
			}
			b, err := loadBatch(cmd, sessions)
			if err != nil {
				return err
			}

			for _, arg := range args {
				rowID, err := strconv.Atoi(arg)
				if err != nil {
					return fmt.Errorf("invalid row %q", arg)
				}
				excluded, err := b.ToggleExclusion(rowID)
				if err != nil {
					return err
				}
				state := "included"
				if excluded {
					state = "excluded"
				}
				printf(cmd, "Row %d %s\n", rowID, state)
			}

			if err := sessions.Save(b); err != nil {
				return fmt.Errorf("failed to save batch: %w", err)
			}
			return nil
		},
	}
}

func commitBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Write a batch's pending rows to the ledger",
		Long: `Validate every pending row and write them all in one transaction. If any row
is invalid nothing is written and the batch stays staged. Imported rows become
reconciled bank entries; rows with an occurrence count above one also create
the later instances of their series, unreconciled.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := openSessions()
			if err != nil {
				return err
			}
			b, err := loadBatch(cmd, sessions)
			if err != nil {
				return err
			}

			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				printBatch(cmd, b)
				console := cli.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout())
				ok, err := console.Confirm(cmd.Context(), fmt.Sprintf("Commit %d rows?", b.Counts().Pending))
				if err != nil {
					return err
				}
				if !ok {
					printLine(cmd, cli.InfoStyle.Render("Nothing committed."))
					return nil
				}
			}

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Commit", "The batch is still staged; run 'cashflow batch commit' again.")
			ctx := handler.HandleInterrupts(cmd.Context())
			defer handler.Stop()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			if a.cfg.SnapshotOnCommit {
				info, err := a.store.Snapshot(ctx, "before committing batch "+b.ID)
				switch {
				case errors.Is(err, storage.ErrSnapshotUnsupported):
					slog.Debug("Skipping snapshot", "reason", err)
				case err != nil:
					return fmt.Errorf("failed to snapshot database: %w", err)
				default:
					slog.Info("Created snapshot", "id", info.ID, "path", info.Path)
				}
			}

			result, err := b.Commit(ctx, a.ledger)
			if err != nil {
				return err
			}
			if err := sessions.Save(b); err != nil {
				return fmt.Errorf("entries were written but the batch could not be marked committed: %w", err)
			}

			printf(cmd, "%s Committed batch %s: %d entries created\n",
				cli.SuccessStyle.Render(cli.SuccessIcon), b.ID, len(result.CreatedEntryIDs))
			return nil
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "Commit without asking")

	return cmd
}

func discardBatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard",
		Short: "Delete a staged batch without committing it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sessions, err := openSessions()
			if err != nil {
				return err
			}
			b, err := loadBatch(cmd, sessions)
			if err != nil {
				return err
			}
			if err := sessions.Discard(b.ID); err != nil {
				return fmt.Errorf("failed to discard batch: %w", err)
			}
			printLine(cmd, cli.FormatSuccess("Discarded batch "+b.ID))
			return nil
		},
	}
}
