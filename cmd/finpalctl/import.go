package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import FILE.csv",
	Short: "Import a bank statement CSV into a user's expenses",
	Long:  "Import a CSV with Date, Description, Amount and Category columns. Rows are appended to the user's ledger.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(_ *cobra.Command, args []string) error {
	user, err := requireUser()
	if err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	svc, err := openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	n, err := svc.ImportStatement(context.Background(), user, f)
	if err != nil {
		return err
	}
	if n == 0 {
		fmt.Println("The statement had no transactions.")
		return nil
	}
	fmt.Printf("Imported %d transactions for %s\n", n, user)
	return nil
}
