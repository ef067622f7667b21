package receipt

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

// Request is one receipt as submitted by the user.
type Request struct {
	Name   string
	TaxID  string
	Amount decimal.Decimal
	Date   time.Time
}

// Validate checks presence of all four fields first, then their shape.
func (r Request) Validate() error {
	var missing []string
	if isBlank(r.Name) {
		missing = append(missing, "name")
	}
	if isBlank(r.TaxID) {
		missing = append(missing, "tax_id")
	}
	if r.Amount.IsZero() {
		missing = append(missing, "amount")
	}
	if r.Date.IsZero() {
		missing = append(missing, "date")
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}

	if !Printable(r.Name) {
		return ErrUnprintableName
	}
	if len(TaxIDDigits(r.TaxID)) != 11 {
		return ErrInvalidTaxID
	}
	if r.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if r.Amount.Round(2).GreaterThanOrEqual(MaxAmount) {
		return ErrAmountTooLarge
	}
	return nil
}

// brazilianAmount is a comma-decimal amount whose integer part is either plain
// digits or "." grouped in threes.
var brazilianAmount = regexp.MustCompile(`^-?(\d+|\d{1,3}(\.\d{3})+),\d+$`)

// ParseAmount reads "150", "150.5", "150,50" or "1.234,56" and rounds to cents.
// Mixed separators that do not form Brazilian grouping, such as "1,234.56", are
// rejected. An empty string yields zero so that Validate reports the field as missing.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	if strings.Contains(s, ",") {
		if !brazilianAmount.MatchString(s) {
			return decimal.Zero, ErrInvalidAmount
		}
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

var dateLayouts = []string{"02/01/2006", "02-01-2006", "2006-01-02"}

// ParseDate reads a calendar day in DD/MM/YYYY, DD-MM-YYYY or YYYY-MM-DD.
// An empty string yields the zero time so that Validate reports the field as missing.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// Printable reports whether every rune of s exists in Windows-1252, the only
// encoding the built-in PDF fonts can draw.
func Printable(s string) bool {
	for _, r := range s {
		if _, ok := charmap.Windows1252.EncodeRune(r); !ok {
			return false
		}
	}
	return true
}
