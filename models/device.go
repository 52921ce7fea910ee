package models

import (
	"regexp"
	"strconv"
	"strings"
)

// Device is one normalized device record. Every scraped field is a
// best-effort string and is empty when the page does not carry it.
type Device struct {
	Name       string `json:"name"`
	Price      string `json:"price"`
	Display    string `json:"display"`
	Processor  string `json:"processor"`
	RAM        string `json:"ram"`
	Storage    string `json:"storage"`
	MainCamera string `json:"main_camera"`
	Battery    string `json:"battery"`

	// URL is the detail page the record was extracted from.
	URL string `json:"url,omitempty"`

	// Brand is the first word of a multi-word Name.
	Brand string `json:"brand,omitempty"`

	// Image is the absolute URL of the main device photo.
	Image string `json:"image,omitempty"`

	// Announced is the launch announcement text.
	Announced string `json:"announced,omitempty"`

	// PriceValue is the first number found in Price, nil when Price
	// carries no number.
	PriceValue *float64 `json:"price_value,omitempty"`
}

var priceNumberRe = regexp.MustCompile(`\d[\d.,]*`)

// ParsePrice returns the first number in s. Both "1,199.00" and "1.199,00"
// parse as 1199: when both marks appear the last one is the decimal mark,
// and a lone mark followed by exactly three digits separates thousands.
func ParsePrice(s string) (float64, bool) {
	m := strings.TrimRight(priceNumberRe.FindString(s), ".,")
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(plainNumber(m), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// plainNumber rewrites a grouped number with "." as the only mark.
func plainNumber(m string) string {
	comma, dot := strings.LastIndexByte(m, ','), strings.LastIndexByte(m, '.')
	switch {
	case comma >= 0 && dot >= 0:
		if comma > dot {
			return strings.Replace(strings.ReplaceAll(m, ".", ""), ",", ".", 1)
		}
		return strings.ReplaceAll(m, ",", "")
	case comma >= 0:
		return groupedOrDecimal(m, ",", comma)
	case dot >= 0:
		return groupedOrDecimal(m, ".", dot)
	}
	return m
}

func groupedOrDecimal(m, mark string, last int) string {
	if strings.Count(m, mark) > 1 || len(m)-last-1 == 3 {
		return strings.ReplaceAll(m, mark, "")
	}
	return strings.Replace(m, mark, ".", 1)
}

// BrandOf returns the first word of name when name has more than one word.
func BrandOf(name string) string {
	fields := strings.Fields(name)
	if len(fields) < 2 {
		return ""
	}
	return fields[0]
}

// Derive fills the fields computed from scraped text (Brand, PriceValue).
func (d *Device) Derive() {
	d.Brand = BrandOf(d.Name)
	d.PriceValue = nil
	if v, ok := ParsePrice(d.Price); ok {
		d.PriceValue = &v
	}
}
