package ai

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n[1,2]\n```", `[1,2]`},
		{"fence with prose", "Here you go:\n```JSON\n{\"a\":1}\n```\nThanks", `{"a":1}`},
		{"single line fence", "```json{\"a\":1}```", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripFences(tt.in); got != tt.want {
				t.Errorf("stripFences() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseItems(t *testing.T) {
	reply := "```json\n" + `{"items": [
		{"description": "ออกแบบโลโก้", "quantity": 2, "unit": "งาน", "unit_price": "1,500.00 บาท"},
		{"name": "Hosting", "price": 990},
		{"description": "", "quantity": 1, "unit_price": 10},
		{"description": "Refund line", "quantity": 0, "unit_price": -50}
	]}` + "\n```"

	got, err := ParseItems(reply)
	if err != nil {
		t.Fatalf("ParseItems: %v", err)
	}
	if len(got.Items) != 3 {
		t.Fatalf("got %d items, want 3: %+v", len(got.Items), got.Items)
	}

	want := []struct {
		desc, qty, unit, price string
	}{
		{"ออกแบบโลโก้", "2", "งาน", "1500"},
		{"Hosting", "1", "", "990"},
		{"Refund line", "1", "", "0"},
	}
	for i, w := range want {
		item := got.Items[i]
		if item.Description != w.desc {
			t.Errorf("item %d description = %q, want %q", i, item.Description, w.desc)
		}
		if !item.Quantity.Equal(decimal.RequireFromString(w.qty)) {
			t.Errorf("item %d quantity = %s, want %s", i, item.Quantity, w.qty)
		}
		if item.Unit != w.unit {
			t.Errorf("item %d unit = %q, want %q", i, item.Unit, w.unit)
		}
		if !item.UnitPrice.Equal(decimal.RequireFromString(w.price)) {
			t.Errorf("item %d unit price = %s, want %s", i, item.UnitPrice, w.price)
		}
	}
}

func TestParseItemsArrayRoot(t *testing.T) {
	got, err := ParseItems(`[{"description": "ค่าขนส่ง", "quantity": "๓", "unit_price": 120.5}]`)
	if err != nil {
		t.Fatalf("ParseItems: %v", err)
	}
	if len(got.Items) != 1 || !got.Items[0].Quantity.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("unexpected items: %+v", got.Items)
	}
}

func TestParseItemsAfterBracketedProse(t *testing.T) {
	reply := "[Note] here you go:\n" + `{"items": [{"description": "ค่าติดตั้ง", "quantity": 2, "unit_price": 1500}]}` + "\n[end]"
	got, err := ParseItems(reply)
	if err != nil {
		t.Fatalf("ParseItems: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Description != "ค่าติดตั้ง" {
		t.Fatalf("unexpected items: %+v", got.Items)
	}
}

func TestParseItemsRejectsHugeNumbers(t *testing.T) {
	got, err := ParseItems(`{"items": [
		{"description": "exponent", "quantity": 1e9999999, "unit_price": 1e9999999},
		{"description": "too large", "quantity": 2, "unit_price": "1,000,000,000,000"}
	]}`)
	if err != nil {
		t.Fatalf("ParseItems: %v", err)
	}
	if len(got.Items) != 2 {
		t.Fatalf("got %d items, want 2", len(got.Items))
	}
	for _, item := range got.Items {
		if !item.UnitPrice.IsZero() {
			t.Errorf("%s: unit price = %s, want 0", item.Description, item.UnitPrice)
		}
	}
	if !got.Items[0].Quantity.Equal(decimal.NewFromInt(1)) {
		t.Errorf("quantity = %s, want the default of 1", got.Items[0].Quantity)
	}
}

func TestParseItemsEmpty(t *testing.T) {
	got, err := ParseItems(`{"items": []}`)
	if err != nil {
		t.Fatalf("ParseItems: %v", err)
	}
	if got.Items == nil || len(got.Items) != 0 {
		t.Errorf("expected empty non-nil items, got %#v", got.Items)
	}
}

func TestParseItemsInvalid(t *testing.T) {
	for _, reply := range []string{
		"",
		"Sorry, I cannot read this image.",
		`{"lines": []}`,
		`{"items": [`,
		`"just a string"`,
	} {
		if _, err := ParseItems(reply); !errors.Is(err, ErrInvalidReply) {
			t.Errorf("ParseItems(%q) error = %v, want ErrInvalidReply", reply, err)
		}
	}
}

func TestParseCustomer(t *testing.T) {
	reply := `{"customer": {
		"name": "  บริษัท ตัวอย่าง   จำกัด ",
		"tax_id": "0-1055-12345-67-8",
		"branch_code": "สำนักงานใหญ่",
		"address": "123 ถนนสุขุมวิท กรุงเทพฯ",
		"phone": "02-123-4567",
		"email": "not-an-email",
		"contact_person": "คุณสมชาย"
	}}`

	got, err := ParseCustomer(reply)
	if err != nil {
		t.Fatalf("ParseCustomer: %v", err)
	}
	if got.Name != "บริษัท ตัวอย่าง จำกัด" {
		t.Errorf("Name = %q", got.Name)
	}
	if got.TaxID != "0105512345678" {
		t.Errorf("TaxID = %q", got.TaxID)
	}
	if got.BranchCode != "00000" {
		t.Errorf("BranchCode = %q", got.BranchCode)
	}
	if got.Email != "" {
		t.Errorf("Email = %q, want dropped", got.Email)
	}
	if got.ContactPerson != "คุณสมชาย" {
		t.Errorf("ContactPerson = %q", got.ContactPerson)
	}
}

func TestParseCustomerDropsShortTaxID(t *testing.T) {
	got, err := ParseCustomer(`[{"name": "ACME Co., Ltd.", "tax_id": "12345", "branch_code": "2"}]`)
	if err != nil {
		t.Fatalf("ParseCustomer: %v", err)
	}
	if got.TaxID != "" {
		t.Errorf("TaxID = %q, want empty", got.TaxID)
	}
	if got.BranchCode != "00002" {
		t.Errorf("BranchCode = %q, want 00002", got.BranchCode)
	}
}

func TestParseCustomerInvalid(t *testing.T) {
	for _, reply := range []string{"no json here", `[]`, `[1, 2]`} {
		if _, err := ParseCustomer(reply); !errors.Is(err, ErrInvalidReply) {
			t.Errorf("ParseCustomer(%q) error = %v, want ErrInvalidReply", reply, err)
		}
	}
}

func TestSchemasCompile(t *testing.T) {
	for name, load := range map[string]func() (*replySchema, error){
		"items":    itemsSchema,
		"customer": customerSchema,
	} {
		s, err := load()
		if err != nil {
			t.Fatalf("%s schema: %v", name, err)
		}
		if s.doc["additionalProperties"] != false {
			t.Errorf("%s schema allows additional properties", name)
		}
	}
}
