package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"finpal/internal/cli"
	"finpal/internal/core"
)

var flagMonth string

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Compare a user's budget with their actual spending",
	Args:  cobra.NoArgs,
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().StringVar(&flagMonth, "month", "", "Limit expenses to one month (YYYY-MM)")
	summaryCmd.Flags().BoolVar(&flagJSON, "json", false, "Print JSON")
	rootCmd.AddCommand(summaryCmd)
}

type summaryRowJSON struct {
	Category       string `json:"category"`
	BudgetedCents  int64  `json:"budgeted_cents"`
	ActualCents    int64  `json:"actual_cents"`
	RemainingCents int64  `json:"remaining_cents"`
}

type summaryJSON struct {
	Username              string           `json:"username"`
	Year                  int              `json:"year,omitempty"`
	Month                 int              `json:"month,omitempty"`
	MonthlyNetIncomeCents int64            `json:"monthly_net_income_cents"`
	EstimatedSpendCents   int64            `json:"estimated_spend_cents"`
	ExpectedSavingsCents  int64            `json:"expected_savings_cents"`
	TotalExpensesCents    int64            `json:"total_expenses_cents"`
	Categories            []summaryRowJSON `json:"categories"`
}

func runSummary(_ *cobra.Command, _ []string) error {
	user, err := requireUser()
	if err != nil {
		return err
	}

	svc, err := openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx := context.Background()
	var cmp core.Comparison
	if flagMonth != "" {
		t, err := time.Parse("2006-01", flagMonth)
		if err != nil {
			return fmt.Errorf("invalid --month %q: want YYYY-MM", flagMonth)
		}
		cmp, err = svc.MonthSummary(ctx, user, t.Year(), int(t.Month()))
		if err != nil {
			return err
		}
	} else if cmp, err = svc.Summary(ctx, user); err != nil {
		return err
	}

	if flagJSON {
		out := summaryJSON{
			Username:              user,
			Year:                  cmp.Year,
			Month:                 cmp.Month,
			MonthlyNetIncomeCents: cmp.MonthlyNetIncome.Cents,
			EstimatedSpendCents:   cmp.EstimatedSpend.Cents,
			ExpectedSavingsCents:  cmp.ExpectedSavings.Cents,
			TotalExpensesCents:    cmp.TotalExpenses.Cents,
			Categories:            make([]summaryRowJSON, 0, len(cmp.Rows)),
		}
		for _, r := range cmp.Rows {
			out.Categories = append(out.Categories, summaryRowJSON{
				Category:       r.Category,
				BudgetedCents:  r.Budgeted.Cents,
				ActualCents:    r.Actual.Cents,
				RemainingCents: r.Remaining().Cents,
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	period := "All time"
	if cmp.Month != 0 {
		period = time.Date(cmp.Year, time.Month(cmp.Month), 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
	}
	fmt.Println(cli.RenderTitle(fmt.Sprintf("%s: %s", user, period)))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"", "Monthly"},
		Rows: [][]string{
			{"Net income", cmp.MonthlyNetIncome.String()},
			{"Budgeted spend", cmp.EstimatedSpend.String()},
			{"Expected savings", cmp.ExpectedSavings.String()},
			{"Actual expenses", cmp.TotalExpenses.String()},
		},
		RightAlign: []int{1},
	}))
	fmt.Println()

	t := cli.Table{
		Title:      "By category",
		Headers:    []string{"Category", "Budgeted", "Actual", "Remaining"},
		RightAlign: []int{1, 2, 3},
	}
	for _, r := range cmp.Rows {
		remaining := r.Remaining()
		t.Rows = append(t.Rows, []string{
			r.Category,
			r.Budgeted.String(),
			r.Actual.String(),
			cli.Remaining(remaining.String(), remaining.Cents < 0),
		})
	}
	fmt.Print(cli.RenderTable(t))
	return nil
}
