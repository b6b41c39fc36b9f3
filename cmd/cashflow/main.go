package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/cashflow/internal/cli"
	"github.com/Veraticus/cashflow/internal/common"
	"github.com/Veraticus/cashflow/internal/config"
)

var (
	cfgFile string
	version = "dev"
	rootCmd = newRootCmd()
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cashflow",
		Short: "📒 Personal ledger for bank accounts and credit cards",
		Long: `cashflow keeps a personal ledger of bank account and credit card entries.

It derives card cash dates from each card's invoice cycle, generates recurring
series, guards closed invoices, and reconciles bank statements through staged
import batches.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/cashflow/config.yaml)")
	cmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	cmd.PersistentFlags().String("db", "", "database path (overrides database.path)")

	_ = viper.BindPFlag(config.KeyLogLevel, cmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag(config.KeyLogFormat, cmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag(config.KeyDatabasePath, cmd.PersistentFlags().Lookup("db"))

	cmd.AddCommand(accountsCmd())
	cmd.AddCommand(cardsCmd())
	cmd.AddCommand(categoriesCmd())
	cmd.AddCommand(entriesCmd())
	cmd.AddCommand(invoicesCmd())
	cmd.AddCommand(importCmd())
	cmd.AddCommand(batchCmd())
	cmd.AddCommand(bulkCmd())
	cmd.AddCommand(resolveCmd())
	cmd.AddCommand(migrateCmd())
	cmd.AddCommand(snapshotsCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

func main() {
	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel() // Always cleanup

	if err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err.Error()))
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		// Search for config in standard locations
		viper.AddConfigPath(fmt.Sprintf("%s/.config/cashflow", home))
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("CASHFLOW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	if err := setupLogging(cfg); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	return nil
}

func setupLogging(cfg *config.Config) error {
	level, err := common.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	return common.SetupLogger(level, cfg.LogFormat)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "cashflow version %s\n", version)
		},
	}
}
