package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	openTagRegex  = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// preprocessOFX fixes common formatting issues in OFX files.
func preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be INFO, WARN or ERROR.
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	// SGML exports sometimes drop the closing bracket of a bare opening tag.
	return openTagRegex.ReplaceAllString(content, "$1>")
}

// ParseOFX reads the bank and credit card statements of an OFX/QFX file.
// Transactions that cannot be converted are skipped with a warning.
func ParseOFX(ctx context.Context, r io.Reader) ([]Line, []string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(preprocessOFX(string(content))))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var lists []*ofxgo.TransactionList
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankTranList != nil {
			lists = append(lists, stmt.BankTranList)
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.BankTranList != nil {
			lists = append(lists, stmt.BankTranList)
		}
	}

	var lines []Line
	var warnings []string
	for _, list := range lists {
		for _, tx := range list.Transactions {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
			line, err := convertTransaction(tx)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("skipped transaction %s: %v", tx.FiTID, err))
				continue
			}
			lines = append(lines, line)
		}
	}

	slog.Info("Parsed OFX file",
		"lines", len(lines),
		"statements", len(lists),
		"warnings", len(warnings))

	return lines, warnings, nil
}

// convertTransaction maps an OFX transaction to a statement line. The posted
// date is both the cash and the competence date.
func convertTransaction(tx ofxgo.Transaction) (Line, error) {
	if tx.DtPosted.IsZero() {
		return Line{}, fmt.Errorf("missing posted date")
	}
	amount, err := decimal.NewFromString(tx.TrnAmt.FloatString(2))
	if err != nil {
		return Line{}, fmt.Errorf("amount: %w", err)
	}

	day := dateOnly(tx.DtPosted.Time)
	return Line{
		CashDate:       day,
		CompetenceDate: day,
		Amount:         amount,
		Description:    description(tx),
		DocumentNumber: documentNumber(tx),
	}, nil
}

// description prefers the memo, then the payee, then the name.
func description(tx ofxgo.Transaction) string {
	for _, candidate := range []string{string(tx.Memo), payeeName(tx), string(tx.Name)} {
		if name := cleanDescription(candidate); name != "" {
			return name
		}
	}
	return "OFX entry"
}

func payeeName(tx ofxgo.Transaction) string {
	if tx.Payee == nil {
		return ""
	}
	return string(tx.Payee.Name)
}

var descriptionPrefixes = []string{
	"POS PURCHASE ",
	"PURCHASE AUTHORIZED ON ",
	"DEBIT CARD PURCHASE ",
	"ACH DEBIT ",
	"CHECK CARD ",
	"VISA PURCHASE ",
	"MC PURCHASE ",
	"DEBIT PURCHASE ",
}

// cleanDescription strips card-network prefixes and a leading MM/DD stamp.
func cleanDescription(name string) string {
	name = strings.TrimSpace(name)
	upper := strings.ToUpper(name)
	for _, prefix := range descriptionPrefixes {
		if strings.HasPrefix(upper, prefix) {
			name = name[len(prefix):]
			break
		}
	}
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}
	return name
}

// documentNumber prefers the check number, then the reference number, then
// the financial institution's transaction id.
func documentNumber(tx ofxgo.Transaction) string {
	switch {
	case tx.CheckNum != "":
		return string(tx.CheckNum)
	case tx.RefNum != "":
		return string(tx.RefNum)
	default:
		return string(tx.FiTID)
	}
}
