package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findCommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, sub := range cmd.Commands() {
		if sub.Name() == name {
			return sub
		}
	}
	return nil
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	tests := map[string][]string{
		"accounts":   {"list", "add", "balance"},
		"cards":      {"list", "add"},
		"categories": {"list", "add"},
		"entries":    {"add", "edit", "delete", "reconcile", "list"},
		"invoices":   {"list", "entries", "close", "reopen", "ack"},
		"batch":      {"list", "show", "edit", "exclude", "commit", "discard"},
		"bulk":       {"edit", "delete", "reconcile"},
		"snapshots":  {"create", "list"},
		"import":     nil,
		"resolve":    nil,
		"migrate":    nil,
		"version":    nil,
	}

	for name, subs := range tests {
		t.Run(name, func(t *testing.T) {
			cmd := findCommand(root, name)
			require.NotNil(t, cmd, "%s command should exist", name)
			for _, sub := range subs {
				assert.NotNil(t, findCommand(cmd, sub), "%s %s should exist", name, sub)
			}
		})
	}
}

func TestWriteCommandsHaveReopenFlag(t *testing.T) {
	entries := entriesCmd()
	for _, name := range []string{"add", "edit", "delete", "reconcile"} {
		cmd := findCommand(entries, name)
		require.NotNil(t, cmd)
		assert.NotNil(t, cmd.Flag("reopen"), "entries %s should accept --reopen", name)
	}

	scope := findCommand(entries, "delete").Flag("scope")
	require.NotNil(t, scope)
	assert.Equal(t, "one", scope.DefValue)
}

func TestBulkDeleteOptionFlag(t *testing.T) {
	cmd := bulkDeleteCmd()
	flag := cmd.Flag("option")
	require.NotNil(t, flag)
	assert.Equal(t, "", flag.DefValue, "the option must be chosen explicitly for recurring entries")
}

// runCLI executes the root command against an isolated home directory.
func runCLI(t *testing.T, home, input string, args ...string) (string, error) {
	t.Helper()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(input))
	root.SetArgs(append([]string{"--db", filepath.Join(home, "ledger.db")}, args...))

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func isolatedHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("CASHFLOW_SESSIONS_DIR", filepath.Join(home, "sessions"))
	return home
}

func TestResolveCommand(t *testing.T) {
	home := isolatedHome(t)

	out, err := runCLI(t, home, "", "resolve", "2024-03-28", "--closing-day", "25", "--due-day", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "Cash date (due) 2024-04-10")
	assert.Contains(t, out, "Invoice closes 2024-03-25")

	_, err = runCLI(t, home, "", "resolve", "2024-03-28", "--closing-day", "40", "--due-day", "10")
	assert.Error(t, err)
}

func TestLedgerWorkflow(t *testing.T) {
	home := isolatedHome(t)

	_, err := runCLI(t, home, "", "accounts", "add", "Itau", "1234-5", "--opened", "2024-01-01", "--opening-balance", "1000")
	require.NoError(t, err)
	_, err = runCLI(t, home, "", "cards", "add", "Gold", "--closing-day", "25", "--due-day", "10", "--pay-from", "1")
	require.NoError(t, err)

	out, err := runCLI(t, home, "", "entries", "add", "Dinner", "120", "--card", "1", "--date", "2024-03-28")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-04-10")

	out, err = runCLI(t, home, "", "invoices", "list", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-04-10")
	assert.Contains(t, out, "open")

	out, err = runCLI(t, home, "", "invoices", "close", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "closed")
	assert.Contains(t, out, "Payment scheduled")

	// Writing to the closed invoice asks first; declining leaves it closed.
	_, err = runCLI(t, home, "n\n", "entries", "add", "Taxi", "30", "--card", "1", "--date", "2024-03-27")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "closed")

	out, err = runCLI(t, home, "y\n", "entries", "add", "Taxi", "30", "--card", "1", "--date", "2024-03-27")
	require.NoError(t, err)
	assert.Contains(t, out, "Created 1 entry")

	out, err = runCLI(t, home, "", "invoices", "list", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "reopened")
	assert.Contains(t, out, "150.00")
}

func TestImportWorkflow(t *testing.T) {
	home := isolatedHome(t)

	_, err := runCLI(t, home, "", "accounts", "add", "Itau", "1234-5", "--opened", "2024-01-01")
	require.NoError(t, err)

	statement := filepath.Join(home, "extrato.csv")
	require.NoError(t, os.WriteFile(statement, []byte(
		"Data,Lancamento,Historico,Data Balancete,Documento,Valor\n"+
			"05/03/2024,,Padaria,04/03/2024,1001,-12.50\n"+
			"06/03/2024,,PIX recebido,,1002,200.00\n"), 0600))

	out, err := runCLI(t, home, "", "import", statement, "--account", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Padaria")
	assert.Contains(t, out, "2 pending")

	_, err = runCLI(t, home, "", "batch", "exclude", "2")
	require.NoError(t, err)
	_, err = runCLI(t, home, "", "batch", "edit", "1", "description", "Padaria Central")
	require.NoError(t, err)

	out, err = runCLI(t, home, "", "batch", "commit", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "1 entries created")

	out, err = runCLI(t, home, "", "entries", "list", "--account", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Padaria Central")
	assert.NotContains(t, out, "PIX recebido")

	// Importing the same statement again flags the committed line.
	out, err = runCLI(t, home, "", "import", statement, "--account", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "1 already imported")

	out, err = runCLI(t, home, "", "snapshots", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "before committing batch")
}
