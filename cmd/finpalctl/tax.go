package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"finpal/internal/cli"
	"finpal/internal/core"
	"finpal/internal/tax"
)

var (
	flagState string
	flagCity  bool
	flagJSON  bool
)

var taxCmd = &cobra.Command{
	Use:   "tax INCOME",
	Short: "Estimate federal, state and city tax for an annual income",
	Args:  cobra.ExactArgs(1),
	RunE:  runTax,
}

func init() {
	taxCmd.Flags().StringVar(&flagState, "state", "", "State code or abbreviation (default from config, else NY)")
	taxCmd.Flags().BoolVar(&flagCity, "city", false, "Apply NYC resident tax")
	taxCmd.Flags().BoolVar(&flagJSON, "json", false, "Print JSON")
	rootCmd.AddCommand(taxCmd)
}

func runTax(cmd *cobra.Command, args []string) error {
	cents, err := core.ParseIncomeToCents(args[0])
	if err != nil {
		return fmt.Errorf("income %q: %w", args[0], err)
	}
	calc, err := loadCalculator()
	if err != nil {
		return err
	}

	state := flagState
	if state == "" {
		state = cliConfig.Defaults.Jurisdiction
	}
	city := flagCity
	if !cmd.Flags().Changed("city") {
		city = cliConfig.Defaults.CityResident
	}

	res := calc.Calculate(core.Money{Cents: cents}.Dollars(), state, city)
	if flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	printTaxResult(res)
	return nil
}

func printTaxResult(res tax.Result) {
	dollars := func(d float64) string { return core.FromDollars(d).String() }

	fmt.Println(cli.RenderTitle(fmt.Sprintf("Taxes on %s in %s", dollars(res.GrossIncome), res.Jurisdiction.Name())))
	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Headers: []string{"", "Amount"},
		Rows: [][]string{
			{"Gross income", dollars(res.GrossIncome)},
			{"Standard deduction", dollars(res.StandardDeduction)},
			{"Taxable income", dollars(res.TaxableIncome)},
			{"Federal tax", dollars(res.FederalTax)},
			{"State tax", dollars(res.StateTax)},
			{"City tax", dollars(res.CityTax)},
			{"Total tax", dollars(res.TotalTax)},
			{"Net income", dollars(res.NetIncome)},
			{"Monthly net", dollars(res.MonthlyNetIncome())},
			{"Effective rate", cli.Percent(res.EffectiveRate())},
		},
		RightAlign: []int{1},
	}))
	fmt.Println()
	fmt.Print(breakdownTable("Federal brackets", res.FederalBreakdown))
	fmt.Println()
	fmt.Print(breakdownTable("State brackets", res.StateBreakdown))
}

func breakdownTable(title string, rows []tax.BreakdownRow) string {
	if len(rows) == 0 {
		return cli.Muted("  "+title+": no taxable income") + "\n"
	}
	t := cli.Table{
		Title:      title,
		Headers:    []string{"Bracket", "Rate", "Taxed", "Tax"},
		RightAlign: []int{1, 2, 3},
	}
	for _, r := range rows {
		bracket := core.FromDollars(r.LowerBound).String() + " +"
		if !r.Unbounded() {
			bracket = core.FromDollars(r.LowerBound).String() + " - " + core.FromDollars(r.UpperBound).String()
		}
		t.Rows = append(t.Rows, []string{
			bracket,
			cli.Percent(r.Rate),
			core.FromDollars(r.AmountTaxed).String(),
			core.FromDollars(r.Tax).String(),
		})
	}
	return cli.RenderTable(t)
}
