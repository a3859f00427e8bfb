package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"finpal/internal/core"
)

var profileCmd = &cobra.Command{
	Use:   "profile INCOME",
	Short: "Save a user's income and jurisdiction and recalculate their taxes",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfile,
}

func init() {
	profileCmd.Flags().StringVar(&flagState, "state", "", "State code or abbreviation (default from config, else NY)")
	profileCmd.Flags().BoolVar(&flagCity, "city", false, "Apply NYC resident tax")
	rootCmd.AddCommand(profileCmd)
}

func runProfile(cmd *cobra.Command, args []string) error {
	user, err := requireUser()
	if err != nil {
		return err
	}
	cents, err := core.ParseIncomeToCents(args[0])
	if err != nil {
		return fmt.Errorf("income %q: %w", args[0], err)
	}
	state := flagState
	if state == "" {
		state = cliConfig.Defaults.Jurisdiction
	}
	city := flagCity
	if !cmd.Flags().Changed("city") {
		city = cliConfig.Defaults.CityResident
	}

	svc, err := openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	rec, err := svc.UpdateProfile(context.Background(), user, core.Money{Cents: cents}, state, city)
	if err != nil {
		return err
	}
	printTaxResult(*rec.TaxSummary)
	return nil
}
