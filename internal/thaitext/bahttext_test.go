package thaitext

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBahtText(t *testing.T) {
	tests := []struct {
		amount string
		want   string
	}{
		{"0", "ศูนย์บาทถ้วน"},
		{"0.001", "ศูนย์บาทถ้วน"},
		{"1", "หนึ่งบาทถ้วน"},
		{"10", "สิบบาทถ้วน"},
		{"11", "สิบเอ็ดบาทถ้วน"},
		{"20", "ยี่สิบบาทถ้วน"},
		{"21", "ยี่สิบเอ็ดบาทถ้วน"},
		{"101", "หนึ่งร้อยเอ็ดบาทถ้วน"},
		{"110", "หนึ่งร้อยสิบบาทถ้วน"},
		{"1000", "หนึ่งพันบาทถ้วน"},
		{"1001", "หนึ่งพันเอ็ดบาทถ้วน"},
		{"1234.56", "หนึ่งพันสองร้อยสามสิบสี่บาทห้าสิบหกสตางค์"},
		{"1000000", "หนึ่งล้านบาทถ้วน"},
		{"1000001", "หนึ่งล้านเอ็ดบาทถ้วน"},
		{"2000001", "สองล้านเอ็ดบาทถ้วน"},
		{"1000001000000", "หนึ่งล้านเอ็ดล้านบาทถ้วน"},
		{"1000000.01", "หนึ่งล้านบาทหนึ่งสตางค์"},
		{"11000000", "สิบเอ็ดล้านบาทถ้วน"},
		{"21000021", "ยี่สิบเอ็ดล้านยี่สิบเอ็ดบาทถ้วน"},
		{"1000000000000", "หนึ่งล้านล้านบาทถ้วน"},
		{"0.25", "ยี่สิบห้าสตางค์"},
		{"0.01", "หนึ่งสตางค์"},
		{"0.11", "สิบเอ็ดสตางค์"},
		{"5.5", "ห้าบาทห้าสิบสตางค์"},
		{"99.999", "หนึ่งร้อยบาทถ้วน"},
		{"-15.75", "ลบสิบห้าบาทเจ็ดสิบห้าสตางค์"},
		{"2140.00", "สองพันหนึ่งร้อยสี่สิบบาทถ้วน"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got := BahtText(decimal.RequireFromString(tt.amount))
			if got != tt.want {
				t.Errorf("BahtText(%s) = %q, want %q", tt.amount, got, tt.want)
			}
		})
	}
}

func TestSpellNumber(t *testing.T) {
	if got := SpellNumber(0); got != "ศูนย์" {
		t.Errorf("SpellNumber(0) = %q", got)
	}
	if got := SpellNumber(121); got != "หนึ่งร้อยยี่สิบเอ็ด" {
		t.Errorf("SpellNumber(121) = %q", got)
	}
	if got := SpellNumber(-2); got != "ลบสอง" {
		t.Errorf("SpellNumber(-2) = %q", got)
	}
	if got := SpellNumber(1_000_001); got != "หนึ่งล้านเอ็ด" {
		t.Errorf("SpellNumber(1000001) = %q", got)
	}
	want := "ลบเก้าล้านสองแสนสองหมื่นสามพันสามร้อยเจ็ดสิบสองล้านสามหมื่นหกพันแปดร้อยห้าสิบสี่ล้านเจ็ดแสนเจ็ดหมื่นห้าพันแปดร้อยแปด"
	if got := SpellNumber(math.MinInt64); got != want {
		t.Errorf("SpellNumber(MinInt64) = %q", got)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := map[string]string{
		"0":         "0.00",
		"12.5":      "12.50",
		"1234567.5": "1,234,567.50",
		"-1000":     "-1,000.00",
		"999.999":   "1,000.00",
		"-0.5":      "-0.50",

		"999999999999.99":      "999,999,999,999.99",
		"12345678901234567.89": "12,345,678,901,234,567.89",
		"1e400":                "1" + strings.Repeat("0", 400) + ".00",
	}
	for in, want := range tests {
		if got := FormatAmount(decimal.RequireFromString(in)); got != want {
			t.Errorf("FormatAmount(%s) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatThaiDate(t *testing.T) {
	d := time.Date(2026, time.October, 15, 0, 0, 0, 0, time.UTC)
	if got := FormatThaiDate(d); got != "15 ตุลาคม 2569" {
		t.Errorf("FormatThaiDate = %q", got)
	}
	if got := FormatThaiDateShort(d); got != "15 ต.ค. 69" {
		t.Errorf("FormatThaiDateShort = %q", got)
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"1,234.50", "1234.5", false},
		{"฿99", "99", false},
		{"250 บาท", "250", false},
		{"๑,๒๐๐", "1200", false},
		{"  7.25 ", "7.25", false},
		{"999,999,999,999.99", "999999999999.99", false},
		{"", "", true},
		{"abc", "", true},
		{"1e2", "", true},
		{"1E2000000", "", true},
		{"1000000000000", "", true},
		{"-1,000,000,000,000", "", true},
		{"0." + strings.Repeat("0", 30) + "1", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseAmount(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("ParseAmount(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
