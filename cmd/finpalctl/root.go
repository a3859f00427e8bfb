package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"finpal/internal/cli"
	"finpal/internal/config"
	"finpal/internal/log"
	"finpal/internal/services"
	"finpal/internal/storage"
	"finpal/internal/tax"
)

var (
	flagConfig   string
	flagDBPath   string
	flagBrackets string
	flagUser     string
	flagLogLevel string

	cliConfig config.CLIConfig
)

var rootCmd = &cobra.Command{
	Use:           "finpalctl",
	Short:         "FinPal command line tools",
	Long:          "Estimate taxes, import statements and review budgets stored by the FinPal server.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cli.LoadEnvFile()
		// stdout is reserved for command output.
		log.SetDefault(log.NewText(os.Stderr, log.ParseLevel(flagLogLevel), log.ComponentApp))

		cfg, err := config.LoadCLIConfig(flagConfig)
		if err != nil {
			return err
		}
		cliConfig = cfg
		if !cmd.Flags().Changed("db") && cfg.Storage.SQLiteDBPath != "" {
			flagDBPath = cfg.Storage.SQLiteDBPath
		}
		if !cmd.Flags().Changed("brackets") && cfg.Tax.BracketsPath != "" {
			flagBrackets = cfg.Tax.BracketsPath
		}
		if flagUser == "" {
			flagUser = cfg.Defaults.User
		}
		return nil
	},
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", config.CLIConfigPath(), "Path to config.toml")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", envOr("SQLITE_DB_PATH", "./data/finpal.db"), "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&flagBrackets, "brackets", os.Getenv("TAX_BRACKETS_PATH"), "State bracket CSV (default: embedded 2024 table)")
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "Username")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireUser() (string, error) {
	if flagUser == "" {
		return "", fmt.Errorf("no user given: pass --user or set defaults.user in %s", flagConfig)
	}
	return flagUser, nil
}

func loadCalculator() (*tax.Calculator, error) {
	reg, err := cli.LoadTaxRegistry(flagBrackets)
	if err != nil {
		return nil, err
	}
	return tax.NewCalculator(reg), nil
}

// openService opens the SQLite store behind a budget service. Closing the
// service closes the store.
func openService() (*services.BudgetService, error) {
	calc, err := loadCalculator()
	if err != nil {
		return nil, err
	}
	repo, err := storage.NewSQLiteRepository(flagDBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", flagDBPath, err)
	}
	return services.NewBudgetService(repo, calc), nil
}
