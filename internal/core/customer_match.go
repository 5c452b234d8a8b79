package core

import (
	"strings"
	"unicode"

	"sme-billing/internal/thaitext"
)

// HeadOfficeBranch is the branch code Thai tax invoices use for a head office.
const HeadOfficeBranch = "00000"

var headOfficeAliases = map[string]bool{
	"":             true,
	"สำนักงานใหญ่": true,
	"สนญ":          true,
	"สนญ.":         true,
	"head office":  true,
	"headoffice":   true,
	"head-office":  true,
	"hq":           true,
	"h.o.":         true,
	"main office":  true,
	"main":         true,
}

// Longest first: ห้างหุ้นส่วนจำกัด must go before จำกัด, (มหาชน) before มหาชน.
var thaiCompanyAffixes = []string{
	"ห้างหุ้นส่วนจำกัด",
	"ห้างหุ้นส่วนสามัญ",
	"บริษัท",
	"(มหาชน)",
	"มหาชน",
	"จำกัด",
	"บจก.",
	"หจก.",
	"บมจ.",
}

var englishCompanyTokens = map[string]bool{
	"co":          true,
	"ltd":         true,
	"company":     true,
	"limited":     true,
	"inc":         true,
	"corp":        true,
	"corporation": true,
	"plc":         true,
	"public":      true,
	"บจก":         true,
	"หจก":         true,
	"บมจ":         true,
}

var punctuationReplacer = strings.NewReplacer(".", " ", ",", " ", "(", " ", ")", " ")

// NormalizeTaxID keeps only the digits of a tax ID. Thai digits are converted.
func NormalizeTaxID(s string) string {
	return digitsOnly(thaitext.ArabicDigits(s))
}

// NormalizeBranchCode maps head-office spellings to "00000" and left-pads numeric
// branch codes ("1", "สาขาที่ 1", "Branch 0001") to five digits. Anything else is
// returned trimmed.
func NormalizeBranchCode(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if headOfficeAliases[lower] {
		return HeadOfficeBranch
	}
	digits := digitsOnly(thaitext.ArabicDigits(s))
	if digits == "" {
		return s
	}
	if len(digits) < 5 {
		digits = strings.Repeat("0", 5-len(digits)) + digits
	}
	return digits
}

// NameKey reduces a company name to a comparison key: lower-cased, legal-form
// affixes removed, punctuation and runs of whitespace collapsed.
func NameKey(name string) string {
	lowered := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	if lowered == "" {
		return ""
	}

	s := lowered
	for _, affix := range thaiCompanyAffixes {
		s = strings.ReplaceAll(s, affix, " ")
	}
	s = punctuationReplacer.Replace(s)

	var kept []string
	for _, tok := range strings.Fields(s) {
		if englishCompanyTokens[tok] {
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		return lowered
	}
	return strings.Join(kept, " ")
}

// Normalize trims every field and canonicalizes the tax ID and branch code.
func (in CustomerInput) Normalize() CustomerInput {
	return CustomerInput{
		Name:          strings.Join(strings.Fields(in.Name), " "),
		TaxID:         NormalizeTaxID(in.TaxID),
		BranchCode:    NormalizeBranchCode(in.BranchCode),
		Address:       strings.TrimSpace(in.Address),
		Phone:         strings.TrimSpace(in.Phone),
		Email:         strings.TrimSpace(in.Email),
		ContactPerson: strings.TrimSpace(in.ContactPerson),
	}
}

// IsEmpty reports whether the input carries nothing to match or store.
func (in CustomerInput) IsEmpty() bool {
	return in.Name == "" && in.TaxID == "" && in.Address == "" &&
		in.Phone == "" && in.Email == "" && in.ContactPerson == ""
}

// MergeCustomer overlays the non-empty fields of a normalized input onto an existing
// customer. It reports whether anything changed.
func MergeCustomer(existing Customer, in CustomerInput) (Customer, bool) {
	merged := existing
	changed := false
	set := func(dst *string, v string) {
		if v != "" && *dst != v {
			*dst = v
			changed = true
		}
	}

	set(&merged.Name, in.Name)
	set(&merged.TaxID, in.TaxID)
	set(&merged.BranchCode, in.BranchCode)
	set(&merged.Address, in.Address)
	set(&merged.Phone, in.Phone)
	set(&merged.Email, in.Email)
	set(&merged.ContactPerson, in.ContactPerson)
	merged.NameKey = NameKey(merged.Name)

	return merged, changed
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
