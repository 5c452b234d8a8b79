package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"sme-billing/internal/app"
)

func runCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("LOG_OUTPUT", "stderr")
	t.Setenv("LOG_LEVEL", "error")

	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestBahtTextCommand(t *testing.T) {
	out, err := runCommand(t, "", "baht-text", "1,234.50")
	if err != nil {
		t.Fatalf("baht-text: %v", err)
	}
	for _, want := range []string{"1,234.50", "หนึ่งพันสองร้อยสามสิบสี่บาทห้าสิบสตางค์"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q does not contain %q", out, want)
		}
	}

	if _, err := runCommand(t, "", "baht-text", "abc"); err == nil {
		t.Error("expected an error for a non-numeric amount")
	}
	if _, err := runCommand(t, "", "baht-text"); err == nil {
		t.Error("expected an error when the amount is missing")
	}
}

const calcRequest = `{
  "items": [{"description": "Website design", "quantity": "1", "unit_price": "900"}],
  "pricing": {"withholding_rate": "3"}
}`

func TestCalcCommandJSON(t *testing.T) {
	out, err := runCommand(t, calcRequest, "calc", "--json")
	if err != nil {
		t.Fatalf("calc: %v", err)
	}
	var res app.CalculationResult
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	checks := []struct {
		name      string
		got, want decimal.Decimal
	}{
		{"pre-VAT", res.Totals.PreVATAmount, decimal.NewFromInt(900)},
		{"VAT", res.Totals.VATAmount, decimal.NewFromInt(63)},
		{"total", res.Totals.Total, decimal.NewFromInt(963)},
		{"withholding", res.Totals.WithholdingAmount, decimal.NewFromInt(27)},
		{"net payable", res.Totals.NetPayable, decimal.NewFromInt(936)},
	}
	for _, c := range checks {
		if !c.got.Equal(c.want) {
			t.Errorf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
	if res.BahtText != "เก้าร้อยหกสิบสามบาทถ้วน" {
		t.Errorf("baht text = %q", res.BahtText)
	}
}

func TestCalcCommandTable(t *testing.T) {
	out, err := runCommand(t, calcRequest, "calc")
	if err != nil {
		t.Fatalf("calc: %v", err)
	}
	for _, want := range []string{"Website design", "963.00", "Withholding 3%", "Net payable", "(เก้าร้อยหกสิบสามบาทถ้วน)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestCalcCommandErrors(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
	}{
		{"malformed", "{"},
		{"no items", `{"items": []}`},
		{"bad discount", `{"items": [{"description": "x", "quantity": "1", "unit_price": "1"}], "pricing": {"discount_type": "bogus"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runCommand(t, tt.stdin, "calc"); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestDatabaseCommandsRequireURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	for _, args := range [][]string{{"migrate"}, {"verify-db"}, {"expire-quotations"}, {"set-quota", "1", "0"}} {
		_, err := runCommand(t, "", args...)
		if err == nil || !strings.Contains(err.Error(), "DATABASE_URL") {
			t.Errorf("%v: err = %v, want DATABASE_URL error", args, err)
		}
	}
}

func TestExpireQuotationsRejectsBadDate(t *testing.T) {
	_, err := runCommand(t, "", "expire-quotations", "--as-of", "31/03/2025")
	if err == nil || !strings.Contains(err.Error(), "YYYY-MM-DD") {
		t.Errorf("err = %v", err)
	}
}

func TestSetQuotaValidatesArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing quota", []string{"set-quota", "1"}, "accepts 2 arg(s)"},
		{"bad company", []string{"set-quota", "acme", "10"}, "invalid company id"},
		{"negative quota", []string{"set-quota", "1", "-5"}, "non-negative"},
		{"non-numeric quota", []string{"set-quota", "1", "lots"}, "non-negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCommand(t, "", tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestVerifyAIRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := runCommand(t, "", "verify-ai"); err == nil {
		t.Error("expected an error without OPENAI_API_KEY")
	}
}

func TestServeValidatesConfig(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := runCommand(t, "", "serve"); err == nil {
		t.Error("expected a configuration error")
	}
}
