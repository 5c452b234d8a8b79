// Package thaitext renders amounts and dates the way Thai billing documents print them.
package thaitext

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var digitWords = [10]string{"ศูนย์", "หนึ่ง", "สอง", "สาม", "สี่", "ห้า", "หก", "เจ็ด", "แปด", "เก้า"}

// placeWords are the positional names inside one six-digit group, ones first.
var placeWords = [6]string{"", "สิบ", "ร้อย", "พัน", "หมื่น", "แสน"}

const (
	wordMillion = "ล้าน"
	wordBaht    = "บาท"
	wordSatang  = "สตางค์"
	wordExact   = "ถ้วน"
	wordMinus   = "ลบ"
)

var hundred = decimal.NewFromInt(100)

// BahtText spells amount as Thai currency text, e.g. 1234.50 -> "หนึ่งพันสองร้อยสามสิบสี่บาทห้าสิบสตางค์".
// The amount is rounded to the nearest satang first.
func BahtText(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	if rounded.IsZero() {
		return digitWords[0] + wordBaht + wordExact
	}

	var b strings.Builder
	if rounded.IsNegative() {
		b.WriteString(wordMinus)
		rounded = rounded.Abs()
	}

	baht := rounded.Truncate(0)
	satang := rounded.Sub(baht).Mul(hundred).IntPart()

	bahtWords := spellInteger(baht.String())
	if bahtWords != "" {
		b.WriteString(bahtWords)
		b.WriteString(wordBaht)
	}
	if satang == 0 {
		b.WriteString(wordExact)
		return b.String()
	}
	b.WriteString(spellInteger(strconv.FormatInt(satang, 10)))
	b.WriteString(wordSatang)
	return b.String()
}

// SpellNumber spells a non-negative integer in Thai ("21" -> "ยี่สิบเอ็ด"). Zero is "ศูนย์".
func SpellNumber(n int64) string {
	if n == 0 {
		return digitWords[0]
	}
	digits := strconv.FormatInt(n, 10)
	if rest, ok := strings.CutPrefix(digits, "-"); ok {
		return wordMinus + spellInteger(rest)
	}
	return spellInteger(digits)
}

// spellInteger spells a string of decimal digits. Leading zeros are ignored and an all-zero
// input yields "".
func spellInteger(digits string) string {
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return ""
	}

	first := len(digits) % 6
	if first == 0 {
		first = 6
	}
	groups := []string{digits[:first]}
	for i := first; i < len(digits); i += 6 {
		groups = append(groups, digits[i:i+6])
	}

	var b strings.Builder
	for i, g := range groups {
		b.WriteString(spellGroup(g, i > 0))
		if i < len(groups)-1 {
			b.WriteString(wordMillion)
		}
	}
	return b.String()
}

// spellGroup spells up to six digits. A trailing one reads "เอ็ด" when any higher digit of
// the whole number is non-zero; afterMillion says an earlier group exists, so 1,000,001
// reads "หนึ่งล้านเอ็ด".
func spellGroup(g string, afterMillion bool) string {
	n := len(g)
	hasHigher := afterMillion
	for i := 0; i < n-1 && !hasHigher; i++ {
		if g[i] != '0' {
			hasHigher = true
			break
		}
	}

	var b strings.Builder
	for i := 0; i < n; i++ {
		d := int(g[i] - '0')
		if d == 0 {
			continue
		}
		pos := n - 1 - i
		switch {
		case pos == 0 && d == 1 && hasHigher:
			b.WriteString("เอ็ด")
		case pos == 1 && d == 1:
			// "สิบ", never "หนึ่งสิบ"
		case pos == 1 && d == 2:
			b.WriteString("ยี่")
		default:
			b.WriteString(digitWords[d])
		}
		b.WriteString(placeWords[pos])
	}
	return b.String()
}
