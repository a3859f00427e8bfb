package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	gsheet "finpal/internal/sheets/google"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a user's summary to Google Sheets now",
	Long:  "Write the user's tax summary and budget comparison to their tab, using the GOOGLE_* environment variables.",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(_ *cobra.Command, _ []string) error {
	user, err := requireUser()
	if err != nil {
		return err
	}
	ctx := context.Background()

	client, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		return err
	}

	svc, err := openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	rec, err := svc.Record(ctx, user)
	if err != nil {
		return err
	}
	cmp, err := svc.Summary(ctx, user)
	if err != nil {
		return err
	}
	ref, err := client.ExportSummary(ctx, rec, cmp)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %s to %s\n", user, ref)
	return nil
}
