package importer

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/Veraticus/cashflow/internal/model"
)

const sampleBankOFX = `OFXHEADER:100
DATA:OFXSGML
VERSION:102
SECURITY:NONE
ENCODING:USASCII
CHARSET:1252
COMPRESSION:NONE
OLDFILEUID:NONE
NEWFILEUID:NONE

<OFX>
<SIGNONMSGSRSV1>
<SONRS>
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<DTSERVER>20240315120000[0:GMT]
<LANGUAGE>POR
</SONRS>
</SIGNONMSGSRSV1>
<BANKMSGSRSV1>
<STMTTRNRS>
<TRNUID>1
<STATUS>
<CODE>0
<SEVERITY>INFO
</STATUS>
<STMTRS>
<CURDEF>BRL
<BANKACCTFROM>
<BANKID>001
<ACCTID>12345-6
<ACCTTYPE>CHECKING
</BANKACCTFROM>
<BANKTRANLIST>
<DTSTART>20240101120000[0:GMT]
<DTEND>20240131120000[0:GMT]
<STMTTRN>
<TRNTYPE>DEBIT
<DTPOSTED>20240115120000[0:GMT]
<TRNAMT>-25.50
<FITID>2024011501
<NAME>POS PURCHASE BAKERY
</STMTTRN>
<STMTTRN>
<TRNTYPE>CREDIT
<DTPOSTED>20240120120000[0:GMT]
<TRNAMT>3000.00
<FITID>2024012001
<REFNUM>778
<NAME>SALARY
<MEMO>Monthly salary
</STMTTRN>
<STMTTRN>
<TRNTYPE>CHECK
<DTPOSTED>20240125120000[0:GMT]
<TRNAMT>-500.00
<FITID>2024012501
<CHECKNUM>1234
<NAME>CHECK #1234
</STMTTRN>
</BANKTRANLIST>
<LEDGERBAL>
<BALAMT>1000.00
<DTASOF>20240131120000[0:GMT]
</LEDGERBAL>
</STMTRS>
</STMTTRNRS>
</BANKMSGSRSV1>
</OFX>`

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseOFX(t *testing.T) {
	lines, warnings, err := ParseOFX(context.Background(), strings.NewReader("\n\n"+sampleBankOFX))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, lines, 3)

	tests := []struct {
		wantDate time.Time
		wantDesc string
		wantDoc  string
		wantAmt  string
	}{
		{wantDate: date(2024, 1, 15), wantDesc: "BAKERY", wantDoc: "2024011501", wantAmt: "-25.5"},
		{wantDate: date(2024, 1, 20), wantDesc: "Monthly salary", wantDoc: "778", wantAmt: "3000"},
		{wantDate: date(2024, 1, 25), wantDesc: "CHECK #1234", wantDoc: "1234", wantAmt: "-500"},
	}
	for i, tt := range tests {
		assert.Equal(t, tt.wantDate, lines[i].CashDate)
		assert.Equal(t, tt.wantDate, lines[i].CompetenceDate)
		assert.Equal(t, tt.wantDesc, lines[i].Description)
		assert.Equal(t, tt.wantDoc, lines[i].DocumentNumber)
		assert.True(t, lines[i].Amount.Equal(decimal.RequireFromString(tt.wantAmt)), "amount %s", lines[i].Amount)
	}
}

func TestParseOFX_Invalid(t *testing.T) {
	_, _, err := ParseOFX(context.Background(), strings.NewReader("not an ofx file"))
	assert.Error(t, err)
}

func TestPreprocessOFX(t *testing.T) {
	got := preprocessOFX("\n  <OFX>\n<SEVERITY>Warn</SEVERITY>\n<STMTTRN\n")
	assert.Equal(t, "<OFX>\n<SEVERITY>WARN</SEVERITY>\n<STMTTRN>\n", got)
}

const sampleCSV = `Data,Lancamento,Historico,Data Balancete,Documento,Valor
01/03/2024,,Saldo Anterior,,0,1500.00
05/03/2024,,Padaria,04/03/2024,1001,-12.50
06/03/2024,,PIX recebido,,1002,200.00
07/03/2024,,Sem documento,,,99.00
xx/03/2024,,Broken,,1003,10.00
`

func TestParseCSV(t *testing.T) {
	lines, warnings, err := ParseCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "Broken")

	assert.Equal(t, date(2024, 3, 5), lines[0].CashDate)
	assert.Equal(t, date(2024, 3, 4), lines[0].CompetenceDate)
	assert.Equal(t, "Padaria", lines[0].Description)
	assert.Equal(t, "1001", lines[0].DocumentNumber)
	assert.True(t, lines[0].Amount.Equal(decimal.RequireFromString("-12.50")))

	assert.Equal(t, date(2024, 3, 6), lines[1].CompetenceDate, "competence defaults to cash date")
}

func TestParseCSV_Latin1(t *testing.T) {
	text := "Data,L,Historico,DB,Documento,Valor\n05/03/2024,,Padaria São João,,1001,\"-1.234,56\"\n"
	encoded, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(text))
	require.NoError(t, err)

	lines, warnings, err := ParseCSV(bytes.NewReader(encoded))
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, lines, 1)
	assert.Equal(t, "Padaria São João", lines[0].Description)
	assert.True(t, lines[0].Amount.Equal(decimal.RequireFromString("-1234.56")))
}

func TestParseXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "statement.xlsx")
	f := excelize.NewFile()
	rows := [][]any{
		{"Data", "Lancamento", "Historico", "Data Balancete", "Documento", "Valor"},
		{"05/03/2024", "", "Padaria", "", "1001", "-12.50"},
		{"06/03/2024", "", "Saldo", "", "0", "100.00"},
		{"07/03/2024", "", "Mercado", "", "1002", "-80.00"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	lines, warnings, err := ParseXLSX(path, "")
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, lines, 2)
	assert.Equal(t, "Mercado", lines[1].Description)

	_, _, err = ParseXLSX(path, "Missing")
	assert.Error(t, err)
}

func TestImportHash(t *testing.T) {
	got := ImportHash(7, date(2024, 1, 15), " 123 ", decimal.RequireFromString("-25.5"))
	assert.Equal(t, "8d869cbe40ffcc33ffba231769a37d53", got)

	other := ImportHash(8, date(2024, 1, 15), "123", decimal.RequireFromString("-25.5"))
	assert.NotEqual(t, got, other)
}

func TestPrepare(t *testing.T) {
	account := &model.Account{ID: 7, OpeningDate: date(2024, 3, 1)}
	lines := []Line{
		{CashDate: date(2024, 2, 28), CompetenceDate: date(2024, 2, 28), Amount: decimal.RequireFromString("-10"), Description: "Before opening", DocumentNumber: "1"},
		{CashDate: date(2024, 3, 2), CompetenceDate: date(2024, 3, 1), Amount: decimal.RequireFromString("-20"), Description: "Known", DocumentNumber: "2"},
		{CashDate: date(2024, 3, 3), CompetenceDate: date(2024, 3, 3), Amount: decimal.RequireFromString("300"), Description: "Salary", DocumentNumber: "3"},
		{CashDate: date(2024, 3, 4), CompetenceDate: date(2024, 3, 4), Amount: decimal.Zero, Description: "Nothing", DocumentNumber: "4"},
	}
	existing := map[string]bool{
		ImportHash(7, date(2024, 3, 2), "2", decimal.RequireFromString("-20")): true,
	}

	p := Prepare(account, lines, existing)

	require.Len(t, p.Old, 1)
	assert.Equal(t, "Before opening", p.Old[0].Description)
	require.Len(t, p.Rows, 2)
	assert.Len(t, p.Warnings, 1)

	assert.True(t, p.Rows[0].AlreadyImported)
	assert.Equal(t, model.KindDebit, p.Rows[0].Kind)
	assert.True(t, p.Rows[0].Amount.Equal(decimal.NewFromInt(20)))
	assert.Equal(t, date(2024, 3, 1), p.Rows[0].CompetenceDate)

	assert.False(t, p.Rows[1].AlreadyImported)
	assert.Equal(t, model.KindCredit, p.Rows[1].Kind)
	assert.NotEmpty(t, p.Rows[1].ImportHash)

	b := NewBatch(account, "statement.csv", lines, []string{"parse warning"}, existing)
	assert.Equal(t, int64(7), b.AccountID)
	assert.Len(t, b.Rows, 2)
	assert.Len(t, b.Old, 1)
	assert.Equal(t, []string{"parse warning", p.Warnings[0]}, b.Warnings)
	assert.Equal(t, 1, b.Counts().AlreadyImported)
}

func TestDetectFormat(t *testing.T) {
	tests := map[string]Format{
		"a.OFX":  FormatOFX,
		"a.qfx":  FormatOFX,
		"a.csv":  FormatCSV,
		"a.xlsx": FormatXLSX,
	}
	for path, want := range tests {
		got, err := DetectFormat(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got)
	}
	_, err := DetectFormat("a.pdf")
	assert.Error(t, err)
}
