package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"sme-billing/internal/app"
	"sme-billing/internal/thaitext"
)

func newBahtTextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "baht-text <amount>",
		Short: "Spell an amount in Thai baht text",
		Example: `  billing baht-text 1234.50
  billing baht-text "1,000,000"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := thaitext.ParseAmount(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, thaitext.FormatAmount(amount))
			fmt.Fprintln(out, thaitext.BahtText(amount))
			return nil
		},
	}
}

func newCalcCommand() *cobra.Command {
	var (
		file   string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Price line items and print document totals",
		Long: `Read a calculation request as JSON from --file or standard input and print the
priced lines, the totals and the amount in Thai words.

The request has the same shape as POST /api/tools/calculate:
  {"items": [{"description": "...", "quantity": "2", "unit_price": "1500"}],
   "pricing": {"discount_type": "percent", "discount_value": "10", "withholding_rate": "3"}}`,
		Example: `  billing calc --file quote.json
  echo '{"items":[{"description":"Design","quantity":"1","unit_price":"900"}]}' | billing calc --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			var req app.CalculateRequest
			if err := json.NewDecoder(in).Decode(&req); err != nil {
				return fmt.Errorf("invalid JSON: %w", err)
			}

			// Pricing needs no stores.
			svc := app.NewAppService(nil, nil, nil, nil, nil, nil)
			res, err := svc.Calculate(cmd.Context(), req)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			printCalculation(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read the request from this file instead of stdin")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func printCalculation(w io.Writer, res *app.CalculationResult) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  %-3s %-34s %8s %11s %12s\n", "#", "DESCRIPTION", "QTY", "PRICE", "AMOUNT")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for i, l := range res.Lines {
		fmt.Fprintf(w, "  %-3d %-34s %8s %11s %12s\n", i+1, truncate(l.Description, 34),
			l.Quantity.String(), thaitext.FormatAmount(l.UnitPrice), thaitext.FormatAmount(l.Amount))
	}
	fmt.Fprintln(w, strings.Repeat("-", 72))

	t := res.Totals
	row := func(label string, v string) { fmt.Fprintf(w, "  %-56s %13s\n", label, v) }
	row("Subtotal", thaitext.FormatAmount(t.Subtotal))
	if t.DiscountAmount.IsPositive() {
		row("Discount", "-"+thaitext.FormatAmount(t.DiscountAmount))
	}
	if res.Pricing.VATEnabled {
		row("Pre-VAT", thaitext.FormatAmount(t.PreVATAmount))
		row(fmt.Sprintf("VAT %s%%", res.Pricing.VATRate.String()), thaitext.FormatAmount(t.VATAmount))
	}
	row("Total", thaitext.FormatAmount(t.Total))
	if t.WithholdingAmount.IsPositive() {
		row(fmt.Sprintf("Withholding %s%%", res.Pricing.WithholdingRate.String()), "-"+thaitext.FormatAmount(t.WithholdingAmount))
		row("Net payable", thaitext.FormatAmount(t.NetPayable))
	}
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "  (%s)\n", res.BahtText)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
