package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"finpal/internal/storage"
)

var flagYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Drop every table in the SQLite database",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		if !flagYes {
			return fmt.Errorf("refusing to drop %s without --yes", flagDBPath)
		}
		if err := storage.DropSchema(flagDBPath); err != nil {
			return err
		}
		fmt.Printf("Dropped all data in %s\n", flagDBPath)
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&flagYes, "yes", false, "Confirm deleting all data")
	rootCmd.AddCommand(resetCmd)
}
