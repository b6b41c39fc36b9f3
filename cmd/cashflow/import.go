package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/importer"
)

func importCmd() *cobra.Command {
	var (
		accountID int64
		sheet     string
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Stage a bank statement for review",
		Long: `Parse a bank statement (OFX, CSV or XLSX) into a staging batch.

Nothing is written to the ledger yet. Review the batch with 'cashflow batch show',
edit or exclude rows, and write it with 'cashflow batch commit'. Lines already
imported into the account are flagged and skipped on commit.`,
		Example: `  cashflow import extrato.ofx --account 1
  cashflow import extrato.xlsx --account 1 --sheet Lancamentos`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			path := args[0]

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			account, err := a.store.GetAccount(ctx, accountID)
			if err != nil {
				return fmt.Errorf("failed to load account %d: %w", accountID, err)
			}

			if sheet == "" {
				sheet = a.cfg.DefaultSheet
			}
			lines, warnings, err := importer.ParseFile(ctx, path, sheet)
			if err != nil {
				return fmt.Errorf("failed to parse %s: %w", path, err)
			}

			existing, err := a.store.GetImportHashes(ctx, account.ID)
			if err != nil {
				return fmt.Errorf("failed to load import history: %w", err)
			}

			batch := importer.NewBatch(account, filepath.Base(path), lines, warnings, existing)

			sessions, err := openSessions()
			if err != nil {
				return err
			}
			if err := sessions.Save(batch); err != nil {
				return fmt.Errorf("failed to save batch: %w", err)
			}

			common.LogInfo("Staged statement", common.Fields{
				"file":  path,
				"batch": batch.ID,
				"rows":  len(batch.Rows),
				"old":   len(batch.Old),
			})

			printBatch(cmd, batch)
			printf(cmd, "\nReview, then run 'cashflow batch commit' to write batch %s.\n", batch.ID)
			return nil
		},
	}

	cmd.Flags().Int64Var(&accountID, "account", 0, "Bank account the statement belongs to")
	cmd.Flags().StringVar(&sheet, "sheet", "", "Worksheet name for XLSX files (default first sheet)")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}
