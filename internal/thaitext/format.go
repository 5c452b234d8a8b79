package thaitext

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Thai)

// buddhistEraOffset converts a Gregorian year to the Thai solar calendar year.
const buddhistEraOffset = 543

var thaiMonths = [12]string{
	"มกราคม", "กุมภาพันธ์", "มีนาคม", "เมษายน", "พฤษภาคม", "มิถุนายน",
	"กรกฎาคม", "สิงหาคม", "กันยายน", "ตุลาคม", "พฤศจิกายน", "ธันวาคม",
}

var thaiMonthsShort = [12]string{
	"ม.ค.", "ก.พ.", "มี.ค.", "เม.ย.", "พ.ค.", "มิ.ย.",
	"ก.ค.", "ส.ค.", "ก.ย.", "ต.ค.", "พ.ย.", "ธ.ค.",
}

// AmountDigits is the number of integer digits an amount column holds (NUMERIC(14,2)).
const AmountDigits = 12

// maxScale bounds the decimal places of an accepted number before it is rounded.
const maxScale = 18

// FitsDigits reports whether |d| < 10^intDigits with at most 18 decimal places. It looks
// only at the coefficient and exponent, so values like 1e9999999 are rejected without
// being expanded.
func FitsDigits(d decimal.Decimal, intDigits int) bool {
	if d.IsZero() {
		return true
	}
	exp := int64(d.Exponent())
	if exp < -maxScale {
		return false
	}
	return int64(d.NumDigits())+exp <= int64(intDigits)
}

// FormatAmount prints amount with thousands separators and two decimals ("1,234,567.50").
func FormatAmount(amount decimal.Decimal) string {
	s := amount.StringFixed(2)
	sign := ""
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		sign, s = "-", rest
	}
	whole, frac, _ := strings.Cut(s, ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return sign + s
	}
	return sign + printer.Sprintf("%d", n) + "." + frac
}

// FormatThaiDate prints t in the Buddhist era, e.g. "15 ตุลาคม 2569".
func FormatThaiDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), thaiMonths[t.Month()-1], t.Year()+buddhistEraOffset)
}

// FormatThaiDateShort prints t as "15 ต.ค. 69".
func FormatThaiDateShort(t time.Time) string {
	return fmt.Sprintf("%d %s %02d", t.Day(), thaiMonthsShort[t.Month()-1], (t.Year()+buddhistEraOffset)%100)
}

var amountReplacer = strings.NewReplacer(
	",", "",
	"฿", "",
	"บาท", "",
	"THB", "",
	"thb", "",
	" ", "",
	"\u00a0", "",
)

// ParseAmount parses a human-entered amount such as "1,234.50", "฿99" or "250 บาท".
// Thai digits are accepted. Exponent notation and magnitudes of 10^12 or more are rejected.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := amountReplacer.Replace(ArabicDigits(strings.TrimSpace(s)))
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	if strings.ContainsAny(cleaned, "eE") {
		return decimal.Zero, fmt.Errorf("invalid amount %q: exponent notation is not accepted", s)
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if !FitsDigits(d, AmountDigits) {
		return decimal.Zero, fmt.Errorf("amount %q is out of range", s)
	}
	return d, nil
}

// ArabicDigits replaces Thai digits (๐-๙) with 0-9.
func ArabicDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '๐' && r <= '๙' {
			return '0' + (r - '๐')
		}
		return r
	}, s)
}
