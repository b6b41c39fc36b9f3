package cli

import (
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Veraticus/cashflow/internal/model"
	"github.com/Veraticus/cashflow/internal/staging"
)

const dateLayout = time.DateOnly

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#333"))).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		})
}

func optionalID(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}

func mark(ok bool, symbol string) string {
	if ok {
		return symbol
	}
	return ""
}

func styledAmount(kind model.Kind, amount string) string {
	if kind == model.KindCredit {
		return CreditStyle.Render("+" + amount)
	}
	return DebitStyle.Render("-" + amount)
}

// EntryTable renders ledger entries.
func EntryTable(entries []model.LedgerEntry) string {
	t := newTable("ID", "Competence", "Cash", "Description", "Amount", "Account", "Card", "Invoice", "Series", "Rec")
	for i := range entries {
		e := &entries[i]
		t.Row(
			strconv.FormatInt(e.ID, 10),
			e.CompetenceDate.Format(dateLayout),
			e.CashDate.Format(dateLayout),
			e.Description,
			styledAmount(e.Kind, e.Amount.StringFixed(2)),
			optionalID(e.AccountID),
			optionalID(e.CardID),
			optionalID(e.InvoiceID),
			optionalID(e.SeriesID),
			mark(e.Reconciled, SuccessIcon),
		)
	}
	return t.String()
}

// InvoiceTable renders a card's invoices.
func InvoiceTable(invoices []model.Invoice) string {
	t := newTable("ID", "Month", "Closing", "Due", "Status", "Total", "Payment")
	for i := range invoices {
		inv := &invoices[i]
		t.Row(
			strconv.FormatInt(inv.ID, 10),
			inv.ReferenceMonth.Format("2006-01"),
			inv.ClosingDate.Format(dateLayout),
			inv.DueDate.Format(dateLayout),
			string(inv.Status),
			inv.Total.StringFixed(2),
			optionalID(inv.PaymentEntryID),
		)
	}
	return t.String()
}

// BatchTable renders the rows of a staged batch.
func BatchTable(b *staging.Batch) string {
	t := newTable("Row", "Competence", "Cash", "Description", "Amount", "Category", "Repeat", "Doc", "State")
	for i := range b.Rows {
		r := &b.Rows[i]
		state := "pending"
		switch {
		case r.AlreadyImported:
			state = "imported"
		case r.Excluded:
			state = ExcludedIcon + " excluded"
		}
		repeat := ""
		if r.OccurrenceCount > 1 {
			repeat = RepeatIcon + " " + strconv.Itoa(r.OccurrenceCount) + "x " + string(r.Periodicity)
		}
		t.Row(
			strconv.Itoa(r.ID),
			r.CompetenceDate.Format(dateLayout),
			r.CashDate.Format(dateLayout),
			r.Description,
			styledAmount(r.Kind, r.Amount.StringFixed(2)),
			optionalID(r.CategoryID),
			repeat,
			r.DocumentNumber,
			state,
		)
	}
	return t.String()
}

// AccountTable renders bank accounts.
func AccountTable(accounts []model.Account) string {
	t := newTable("ID", "Bank", "Branch", "Number", "Opening Balance", "Opened")
	for i := range accounts {
		a := &accounts[i]
		opened := "-"
		if !a.OpeningDate.IsZero() {
			opened = a.OpeningDate.Format(dateLayout)
		}
		t.Row(
			strconv.FormatInt(a.ID, 10),
			a.BankName,
			a.Branch,
			a.Number,
			a.OpeningBalance.StringFixed(2),
			opened,
		)
	}
	return t.String()
}

// CardTable renders credit cards with their invoice cycle.
func CardTable(cards []model.Card) string {
	t := newTable("ID", "Name", "Limit", "Closing Day", "Due Day", "Pays From")
	for i := range cards {
		c := &cards[i]
		t.Row(
			strconv.FormatInt(c.ID, 10),
			c.Name,
			c.Limit.StringFixed(2),
			strconv.Itoa(c.ClosingDay),
			strconv.Itoa(c.DueDay),
			optionalID(c.PaymentAccountID),
		)
	}
	return t.String()
}

// CategoryTable renders categories.
func CategoryTable(categories []model.Category) string {
	t := newTable("ID", "Name")
	for i := range categories {
		t.Row(strconv.FormatInt(categories[i].ID, 10), categories[i].Name)
	}
	return t.String()
}
