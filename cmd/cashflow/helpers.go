package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/cashflow/internal/cli"
	"github.com/Veraticus/cashflow/internal/config"
	"github.com/Veraticus/cashflow/internal/ledger"
	"github.com/Veraticus/cashflow/internal/model"
	"github.com/Veraticus/cashflow/internal/recurrence"
	"github.com/Veraticus/cashflow/internal/session"
	"github.com/Veraticus/cashflow/internal/staging"
	"github.com/Veraticus/cashflow/internal/storage"
)

// app bundles what most commands need: the resolved config, an open and
// migrated store and the ledger service on top of it.
type app struct {
	cfg    *config.Config
	store  *storage.SQLiteStorage
	ledger *ledger.Service
}

func (a *app) Close() error {
	return a.store.Close()
}

// initStorage opens the configured database and runs migrations.
func initStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	store, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:    cfg,
		store:  store,
		ledger: ledger.NewService(store),
	}, nil
}

func openSessions() (*session.Store, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return session.NewStore(cfg.SessionsDir)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		for _, part := range strings.Split(arg, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			id, err := parseID(part)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// optionalDate parses a date flag; an empty value yields the zero time.
func optionalDate(cmd *cobra.Command, name string) (time.Time, error) {
	raw, _ := cmd.Flags().GetString(name)
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	d, err := staging.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: %w", name, err)
	}
	return d, nil
}

// optionalInt64 returns nil for an unset flag.
func optionalInt64(cmd *cobra.Command, name string) *int64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetInt64(name)
	return &v
}

func parseAmountFlag(cmd *cobra.Command, name string) (*decimal.Decimal, error) {
	if !cmd.Flags().Changed(name) {
		return nil, nil
	}
	raw, _ := cmd.Flags().GetString(name)
	amount, err := staging.ParseAmount(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &amount, nil
}

// changesFromFlags collects the entry fields set on cmd.
func changesFromFlags(cmd *cobra.Command) (recurrence.Changes, error) {
	var c recurrence.Changes

	if cmd.Flags().Changed("description") {
		d, _ := cmd.Flags().GetString("description")
		c.Description = &d
	}
	amount, err := parseAmountFlag(cmd, "amount")
	if err != nil {
		return c, err
	}
	c.Amount = amount
	if cmd.Flags().Changed("kind") {
		raw, _ := cmd.Flags().GetString("kind")
		k, err := model.ParseKind(raw)
		if err != nil {
			return c, err
		}
		c.Kind = &k
	}
	c.CategoryID = optionalInt64(cmd, "category")
	c.ClearCategory, _ = cmd.Flags().GetBool("clear-category")
	c.AccountID = optionalInt64(cmd, "account")
	c.CardID = optionalInt64(cmd, "card")
	if c.AccountID != nil && c.CardID != nil {
		return c, fmt.Errorf("--account and --card are mutually exclusive")
	}
	if cmd.Flags().Changed("date") {
		d, err := optionalDate(cmd, "date")
		if err != nil {
			return c, err
		}
		c.CompetenceDate = &d
	}
	return c, nil
}

// addChangeFlags registers the flags read by changesFromFlags.
func addChangeFlags(cmd *cobra.Command) {
	cmd.Flags().String("description", "", "New description")
	cmd.Flags().String("amount", "", "New amount")
	cmd.Flags().String("kind", "", "New kind (D or C)")
	cmd.Flags().Int64("category", 0, "New category ID")
	cmd.Flags().Bool("clear-category", false, "Remove the category")
	cmd.Flags().Int64("account", 0, "Move to this bank account")
	cmd.Flags().Int64("card", 0, "Move to this credit card")
	cmd.Flags().String("date", "", "New competence date (YYYY-MM-DD or DD/MM/YYYY)")
}

// withReopen runs op, and when it is blocked by a closed invoice asks the user
// whether to reopen it and retries with confirmation. --reopen skips the question.
func withReopen(cmd *cobra.Command, op func(confirm bool) error) error {
	confirm, _ := cmd.Flags().GetBool("reopen")
	err := op(confirm)
	if err == nil || confirm || !ledger.IsInvoiceClosed(err) {
		return err
	}

	console := cli.NewConsole(cmd.InOrStdin(), cmd.OutOrStdout())
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(err.Error()))
	ok, promptErr := console.Confirm(cmd.Context(), "Reopen the invoice and continue?")
	if promptErr != nil {
		return promptErr
	}
	if !ok {
		return err
	}
	return op(true)
}

func addReopenFlag(cmd *cobra.Command) {
	cmd.Flags().Bool("reopen", false, "Reopen a closed invoice without asking")
}

func printf(cmd *cobra.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

func printLine(cmd *cobra.Command, args ...any) {
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), args...)
}

func parseAmountArg(s string) (decimal.Decimal, error) {
	amount, err := staging.ParseAmount(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return amount, nil
}
