package ai

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"sme-billing/internal/core"
	"sme-billing/internal/thaitext"
)

// ErrInvalidReply is returned when the model's reply cannot be turned into a result.
var ErrInvalidReply = errors.New("invalid ai reply")

// stripFences removes a surrounding ```json ... ``` or ``` ... ``` block.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	start := strings.Index(s, "```")
	if start < 0 {
		return s
	}
	rest := s[start+3:]
	// Drop the info string ("json", "JSON", ...) up to the end of the fence line.
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		if info := strings.TrimSpace(rest[:nl]); !strings.ContainsAny(info, "{[") {
			rest = rest[nl+1:]
		}
	} else {
		rest = strings.TrimPrefix(strings.TrimPrefix(rest, "json"), "JSON")
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// decodeReply strips fencing and decodes the first JSON object or array in the reply, with
// json.Number preserved. Each '{' or '[' is tried in turn, so bracketed prose such as
// "[Note]" before the value is skipped.
func decodeReply(reply string) (any, error) {
	s := stripFences(reply)
	var lastErr error
	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(s[i:]))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			lastErr = err
			continue
		}
		return v, nil
	}
	if lastErr == nil {
		return nil, fmt.Errorf("%w: no JSON value found", ErrInvalidReply)
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidReply, lastErr)
}

// ParseItems turns a model reply into line items. The root may be an array of items or an
// object with an "items" array. Items without a description are dropped.
func ParseItems(reply string) (*ItemsResult, error) {
	v, err := decodeReply(reply)
	if err != nil {
		return nil, err
	}

	var list []any
	switch root := v.(type) {
	case []any:
		list = root
	case map[string]any:
		items, ok := root["items"].([]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected an \"items\" array", ErrInvalidReply)
		}
		list = items
	default:
		return nil, fmt.Errorf("%w: unexpected JSON root %T", ErrInvalidReply, v)
	}

	result := &ItemsResult{Items: []ExtractedItem{}}
	for _, raw := range list {
		obj, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		item, ok := coerceItem(obj)
		if !ok {
			continue
		}
		result.Items = append(result.Items, item)
	}

	schema, err := itemsSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.validate(result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}
	return result, nil
}

func coerceItem(obj map[string]any) (ExtractedItem, bool) {
	desc := stringField(obj, "description")
	if desc == "" {
		desc = stringField(obj, "name")
	}
	if desc == "" {
		return ExtractedItem{}, false
	}

	qty, ok := decimalField(obj, "quantity")
	if !ok || !qty.IsPositive() {
		qty = decimal.NewFromInt(1)
	}
	price, ok := decimalField(obj, "unit_price")
	if !ok {
		price, ok = decimalField(obj, "price")
	}
	if !ok || price.IsNegative() {
		price = decimal.Zero
	}

	return ExtractedItem{
		Description: desc,
		Quantity:    qty,
		Unit:        stringField(obj, "unit"),
		UnitPrice:   price,
	}, true
}

// ParseCustomer turns a model reply into customer data. Values that cannot be trusted
// (short tax IDs, emails without "@") are dropped rather than guessed.
func ParseCustomer(reply string) (*core.CustomerInput, error) {
	v, err := decodeReply(reply)
	if err != nil {
		return nil, err
	}

	var obj map[string]any
	switch root := v.(type) {
	case map[string]any:
		obj = root
		if inner, ok := root["customer"].(map[string]any); ok {
			obj = inner
		}
	case []any:
		if len(root) > 0 {
			obj, _ = root[0].(map[string]any)
		}
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: expected a customer object", ErrInvalidReply)
	}

	taxID := core.NormalizeTaxID(stringField(obj, "tax_id"))
	if len(taxID) != 13 {
		taxID = ""
	}
	email := stringField(obj, "email")
	if !strings.Contains(email, "@") {
		email = ""
	}
	result := CustomerResult{
		Name:          strings.Join(strings.Fields(stringField(obj, "name")), " "),
		TaxID:         taxID,
		BranchCode:    core.NormalizeBranchCode(stringField(obj, "branch_code")),
		Address:       stringField(obj, "address"),
		Phone:         stringField(obj, "phone"),
		Email:         email,
		ContactPerson: stringField(obj, "contact_person"),
	}

	schema, err := customerSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.validate(result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidReply, err)
	}

	return &core.CustomerInput{
		Name:          result.Name,
		TaxID:         result.TaxID,
		BranchCode:    result.BranchCode,
		Address:       result.Address,
		Phone:         result.Phone,
		Email:         result.Email,
		ContactPerson: result.ContactPerson,
	}, nil
}

// stringField reads a trimmed string; numbers are rendered as written.
func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	}
	return ""
}

// decimalField reads a number or a numeric string such as "1,200.50 บาท". Exponents and
// values of 10^12 or more are treated as unreadable.
func decimalField(obj map[string]any, key string) (decimal.Decimal, bool) {
	switch v := obj[key].(type) {
	case json.Number:
		d, err := thaitext.ParseAmount(v.String())
		return d, err == nil
	case string:
		d, err := thaitext.ParseAmount(v)
		return d, err == nil
	}
	return decimal.Zero, false
}
