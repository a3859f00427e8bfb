package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"finpal/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective finpalctl configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write config.toml with the current flags as defaults",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg := cliConfig
		cfg.Storage.SQLiteDBPath = flagDBPath
		cfg.Tax.BracketsPath = flagBrackets
		cfg.Defaults.User = flagUser
		if err := config.SaveCLIConfig(flagConfig, cfg); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", flagConfig)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfig(_ *cobra.Command, _ []string) error {
	fmt.Printf("  Config file: %s\n", flagConfig)
	if _, err := os.Stat(flagConfig); err == nil {
		fmt.Println("  Status: loaded")
	} else {
		fmt.Println("  Status: using defaults (no config file)")
	}
	fmt.Println()

	brackets := flagBrackets
	if brackets == "" {
		brackets = "embedded 2024 table"
	}
	user := flagUser
	if user == "" {
		user = "not set"
	}
	fmt.Printf("  Database:      %s\n", flagDBPath)
	fmt.Printf("  Brackets:      %s\n", brackets)
	fmt.Printf("  User:          %s\n", user)
	fmt.Printf("  Jurisdiction:  %s\n", cliConfig.Defaults.Jurisdiction)
	fmt.Printf("  City resident: %v\n", cliConfig.Defaults.CityResident)
	return nil
}
