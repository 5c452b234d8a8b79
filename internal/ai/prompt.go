package ai

import (
	"fmt"
	"strings"
)

const itemsInstructions = `You read Thai business documents (quotations, invoices, receipts, purchase orders, chat messages)
and extract the billable line items.

Rules:
1. Return ONLY a JSON object matching the schema below. No markdown, no explanation.
2. One entry per product or service line. Skip subtotal, discount, VAT (ภาษีมูลค่าเพิ่ม), withholding
   tax (หัก ณ ที่จ่าย) and grand-total rows.
3. unit_price is the price of ONE unit before VAT. If only a line total is shown, divide by the quantity.
4. Amounts are plain numbers without currency symbols or thousands separators ("1,200.00 บาท" → "1200.00").
5. Convert Thai digits (๐-๙) to Arabic digits.
6. Keep descriptions in the original language. Use quantity "1" when no quantity is stated.
7. If nothing billable is present, return {"items": []}.`

const customerInstructions = `You read Thai business documents, business cards and chat messages and extract the
customer (buyer) details a tax invoice needs.

Rules:
1. Return ONLY a JSON object matching the schema below. No markdown, no explanation.
2. name is the registered name including its legal form (บริษัท ... จำกัด, หจก. ..., Co., Ltd.).
3. tax_id is the 13-digit taxpayer number (เลขประจำตัวผู้เสียภาษี) with separators removed; empty if absent.
4. branch_code is "00000" for สำนักงานใหญ่ / head office, otherwise the 5-digit branch number (สาขาที่).
5. Use empty strings for anything that is not stated. Never invent values.
6. If the document shows both seller and buyer, extract the buyer (ลูกค้า / ผู้ซื้อ).`

// buildSystemPrompt appends the reply schema to the task instructions.
func buildSystemPrompt(instructions, schema string) string {
	return instructions + "\n\nJSON Schema:\n" + schema
}

// buildUserPrompt frames the pasted text. Images are attached separately.
func buildUserPrompt(kind Kind, text string, imageCount int) string {
	var b strings.Builder
	switch kind {
	case KindItems:
		b.WriteString("Extract the line items")
	case KindCustomer:
		b.WriteString("Extract the customer details")
	}
	switch {
	case text != "" && imageCount > 0:
		fmt.Fprintf(&b, " from the text below and the %d attached image(s).", imageCount)
	case imageCount > 0:
		fmt.Fprintf(&b, " from the %d attached image(s).", imageCount)
	default:
		b.WriteString(" from the text below.")
	}
	if text != "" {
		b.WriteString("\n\n\"\"\"\n")
		b.WriteString(text)
		b.WriteString("\n\"\"\"")
	}
	return b.String()
}
