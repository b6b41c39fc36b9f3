package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/cashflow/internal/cli"
	"github.com/Veraticus/cashflow/internal/model"
)

func invoicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoices",
		Short: "Manage credit card invoices",
		Long: `List card invoices and move them through their lifecycle.

A closed invoice rejects writes until it is reopened. Closing an invoice of a
card with a payment account schedules the payment on that account; reopening
removes the payment again unless it was already reconciled.`,
	}

	cmd.AddCommand(listInvoicesCmd())
	cmd.AddCommand(invoiceEntriesCmd())
	cmd.AddCommand(closeInvoiceCmd())
	cmd.AddCommand(reopenInvoiceCmd())
	cmd.AddCommand(ackInvoiceCmd())

	return cmd
}

func listInvoicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <card-id>",
		Short: "List a card's invoices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cardID, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			invoices, err := a.ledger.Invoices(ctx, cardID)
			if err != nil {
				return fmt.Errorf("failed to list invoices: %w", err)
			}
			if len(invoices) == 0 {
				printLine(cmd, cli.InfoStyle.Render("No invoices yet for this card."))
				return nil
			}

			printLine(cmd, cli.FormatTitle(fmt.Sprintf("%s Invoices of card %d", cli.InvoiceIcon, cardID)))
			printLine(cmd, cli.InvoiceTable(invoices))
			return nil
		},
	}
}

func invoiceEntriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entries <invoice-id>",
		Short: "List the entries billed on an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			entries, err := a.ledger.InvoiceEntries(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to list invoice entries: %w", err)
			}
			printLine(cmd, cli.EntryTable(entries))
			return nil
		},
	}
}

func closeInvoiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "close <invoice-id>",
		Short: "Close an invoice",
		Long: `Close an invoice, freezing its total. When the card has a payment account the
payment is scheduled on it, dated --payment-date or the due date.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			paymentDate, err := optionalDate(cmd, "payment-date")
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			inv, err := a.ledger.CloseInvoice(ctx, id, paymentDate)
			if err != nil {
				return fmt.Errorf("failed to close invoice: %w", err)
			}

			printInvoiceStatus(cmd, inv)
			if inv.PaymentEntryID != nil {
				printf(cmd, "  Payment scheduled as entry %d\n", *inv.PaymentEntryID)
			}
			return nil
		},
	}

	cmd.Flags().String("payment-date", "", "Date of the scheduled payment (default due date)")

	return cmd
}

func reopenInvoiceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reopen <invoice-id>",
		Short: "Reopen a closed invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			inv, err := a.ledger.ReopenInvoice(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to reopen invoice: %w", err)
			}
			printInvoiceStatus(cmd, inv)
			return nil
		},
	}
}

func ackInvoiceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ack <invoice-id>",
		Short: "Acknowledge a reopened invoice",
		Long:  `Mark a reopened invoice as reviewed, returning it to the open state.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			inv, err := a.ledger.AcknowledgeInvoice(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to acknowledge invoice: %w", err)
			}
			printInvoiceStatus(cmd, inv)
			return nil
		},
	}
}

func printInvoiceStatus(cmd *cobra.Command, inv *model.Invoice) {
	printf(cmd, "%s Invoice %d (due %s) is %s, total %s\n",
		cli.SuccessStyle.Render(cli.SuccessIcon), inv.ID,
		inv.DueDate.Format(time.DateOnly), inv.Status, inv.Total.StringFixed(2))
}
