package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sme-billing/internal/ai"
)

const sampleItemsText = `ใบเสนอราคา
1. ออกแบบโลโก้ 1 งาน 5,000 บาท
2. นามบัตร 3 กล่อง กล่องละ 350 บาท
รวม 6,050 บาท ภาษีมูลค่าเพิ่ม 7% 423.50 บาท`

const sampleCustomerText = `ลูกค้า: บริษัท ตัวอย่าง จำกัด (สำนักงานใหญ่)
เลขประจำตัวผู้เสียภาษี 0-1055-12345-67-8
123 ถนนสุขุมวิท แขวงคลองเตย เขตคลองเตย กรุงเทพฯ 10110
โทร 02-123-4567`

// discardUsage is a UsageStore with no quota that drops every record.
type discardUsage struct{}

func (discardUsage) MonthlyQuota(context.Context, int) (int, error) { return 0, nil }

func (discardUsage) CountSuccessful(context.Context, int, time.Time) (int, error) { return 0, nil }

func (discardUsage) RecordUsage(context.Context, ai.UsageRecord) error { return nil }

func newVerifyAICommand(rt *runtime) *cobra.Command {
	var (
		text     string
		customer bool
	)
	cmd := &cobra.Command{
		Use:   "verify-ai",
		Short: "Send a sample extraction to the configured AI endpoint",
		Long: `Run one extraction against OPENAI_BASE_URL / OPENAI_MODEL and print the parsed
result. Nothing is written to the usage log.`,
		Example: `  billing verify-ai
  billing verify-ai --customer
  billing verify-ai --text "ค่าติดตั้ง 2 จุด จุดละ 1,500"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			completer, err := ai.NewOpenAICompleter(rt.cfg.AI)
			if err != nil {
				return err
			}
			gateway := ai.NewGateway(completer, discardUsage{}, rt.cfg.AI.Timeout)

			if text == "" {
				text = sampleItemsText
				if customer {
					text = sampleCustomerText
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "MODEL: %s\nINPUT:\n%s\n\n", rt.cfg.AI.Model, text)

			req := ai.ExtractRequest{UserID: "verify-ai", Text: text}
			var result any
			if customer {
				result, err = gateway.ExtractCustomer(cmd.Context(), req)
			} else {
				result, err = gateway.ExtractItems(cmd.Context(), req)
			}
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&text, "text", "", "text to extract from (default: a built-in sample)")
	cmd.Flags().BoolVar(&customer, "customer", false, "extract customer details instead of line items")
	return cmd
}
