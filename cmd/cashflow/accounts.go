package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Veraticus/cashflow/internal/billing"
	"github.com/Veraticus/cashflow/internal/cli"
	"github.com/Veraticus/cashflow/internal/model"
)

func accountsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "Manage bank accounts",
		Long:  `List and add bank accounts, and compute their balances.`,
	}

	cmd.AddCommand(listAccountsCmd())
	cmd.AddCommand(addAccountCmd())
	cmd.AddCommand(balanceCmd())

	return cmd
}

func listAccountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all bank accounts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			accounts, err := a.store.GetAccounts(ctx)
			if err != nil {
				return fmt.Errorf("failed to get accounts: %w", err)
			}
			if len(accounts) == 0 {
				printLine(cmd, cli.InfoStyle.Render("No accounts found. Use 'cashflow accounts add' to create one."))
				return nil
			}

			printLine(cmd, cli.AccountTable(accounts))
			return nil
		},
	}
}

func addAccountCmd() *cobra.Command {
	var (
		branch  string
		opening string
	)

	cmd := &cobra.Command{
		Use:   "add <bank> <number>",
		Short: "Add a bank account",
		Long: `Create a bank account. Entries dated before the opening date are not
counted in the balance, and imported statement lines before it are set aside.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			balance := decimal.Zero
			if opening != "" {
				var err error
				if balance, err = decimal.NewFromString(opening); err != nil {
					return fmt.Errorf("invalid opening balance %q: %w", opening, err)
				}
			}
			openedAt, err := optionalDate(cmd, "opened")
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			account := &model.Account{
				BankName:       args[0],
				Branch:         branch,
				Number:         args[1],
				OpeningBalance: balance,
				OpeningDate:    openedAt,
			}
			if err := a.store.CreateAccount(ctx, account); err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}

			printf(cmd, "%s Created account %d (%s %s)\n",
				cli.SuccessStyle.Render(cli.SuccessIcon), account.ID, account.BankName, account.Number)
			return nil
		},
	}

	cmd.Flags().StringVar(&branch, "branch", "", "Branch number")
	cmd.Flags().StringVar(&opening, "opening-balance", "", "Balance on the opening date")
	cmd.Flags().String("opened", "", "Opening date (YYYY-MM-DD or DD/MM/YYYY)")

	return cmd
}

func balanceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "balance <account-id>",
		Short: "Show an account balance",
		Long:  `Show the opening balance plus every entry on the account up to --as-of (default today).`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			asOf, err := optionalDate(cmd, "as-of")
			if err != nil {
				return err
			}
			if asOf.IsZero() {
				asOf = billing.Day(time.Now())
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			balance, err := a.ledger.Balance(ctx, id, asOf)
			if err != nil {
				return fmt.Errorf("failed to compute balance: %w", err)
			}

			style := cli.CreditStyle
			if balance.IsNegative() {
				style = cli.DebitStyle
			}
			printf(cmd, "Balance of account %d on %s: %s\n",
				id, asOf.Format(time.DateOnly), style.Render(balance.StringFixed(2)))
			return nil
		},
	}

	cmd.Flags().String("as-of", "", "Balance date (YYYY-MM-DD or DD/MM/YYYY)")

	return cmd
}

func cardsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cards",
		Short: "Manage credit cards",
		Long:  `List and add credit cards with their closing and due days.`,
	}

	cmd.AddCommand(listCardsCmd())
	cmd.AddCommand(addCardCmd())

	return cmd
}

func listCardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all credit cards",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			cards, err := a.store.GetCards(ctx)
			if err != nil {
				return fmt.Errorf("failed to get cards: %w", err)
			}
			if len(cards) == 0 {
				printLine(cmd, cli.InfoStyle.Render("No cards found. Use 'cashflow cards add' to create one."))
				return nil
			}

			printLine(cmd, cli.CardTable(cards))
			return nil
		},
	}
}

func addCardCmd() *cobra.Command {
	var (
		closingDay int
		dueDay     int
		limit      string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a credit card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if err := (billing.Cycle{ClosingDay: closingDay, DueDay: dueDay}).Validate(); err != nil {
				return err
			}
			cardLimit := decimal.Zero
			if limit != "" {
				var err error
				if cardLimit, err = decimal.NewFromString(limit); err != nil {
					return fmt.Errorf("invalid limit %q: %w", limit, err)
				}
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			card := &model.Card{
				Name:             args[0],
				Limit:            cardLimit,
				ClosingDay:       closingDay,
				DueDay:           dueDay,
				PaymentAccountID: optionalInt64(cmd, "pay-from"),
			}
			if err := a.store.CreateCard(ctx, card); err != nil {
				return fmt.Errorf("failed to create card: %w", err)
			}

			printf(cmd, "%s Created card %d (%s, closes on %d, due on %d)\n",
				cli.SuccessStyle.Render(cli.SuccessIcon), card.ID, card.Name, card.ClosingDay, card.DueDay)
			return nil
		},
	}

	cmd.Flags().IntVar(&closingDay, "closing-day", 0, "Day of month the invoice closes (1-31)")
	cmd.Flags().IntVar(&dueDay, "due-day", 0, "Day of month the invoice is due (1-31)")
	cmd.Flags().StringVar(&limit, "limit", "", "Credit limit")
	cmd.Flags().Int64("pay-from", 0, "Bank account that pays the invoices")
	_ = cmd.MarkFlagRequired("closing-day")
	_ = cmd.MarkFlagRequired("due-day")

	return cmd
}
