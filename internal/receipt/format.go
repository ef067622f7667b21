package receipt

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var monthNames = [12]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// brl formats numbers the Brazilian way ("1.234,56") regardless of the host locale.
var brl = message.NewPrinter(language.BrazilianPortuguese)

// Fields is the printable view of a Request.
type Fields struct {
	PayerName     string
	TaxID         string
	Amount        string
	AmountInWords string
	DateInWords   string
	DateNumeric   string
	Date          time.Time
}

// NewFields formats every value of req once. The request must have passed Validate.
func NewFields(req Request) (Fields, error) {
	taxID, err := FormatTaxID(req.TaxID)
	if err != nil {
		return Fields{}, err
	}
	words, err := AmountInWords(req.Amount)
	if err != nil {
		return Fields{}, err
	}
	return Fields{
		PayerName:     strings.TrimSpace(req.Name),
		TaxID:         taxID,
		Amount:        FormatCurrency(req.Amount),
		AmountInWords: words,
		DateInWords:   DateInWords(req.Date),
		DateNumeric:   DateNumeric(req.Date),
		Date:          req.Date,
	}, nil
}

// TaxIDDigits drops every non-digit rune from raw.
func TaxIDDigits(raw string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
}

// FormatTaxID renders a CPF as DDD.DDD.DDD-DD.
func FormatTaxID(raw string) (string, error) {
	d := TaxIDDigits(raw)
	if len(d) != 11 {
		return "", ErrInvalidTaxID
	}
	return d[0:3] + "." + d[3:6] + "." + d[6:9] + "-" + d[9:11], nil
}

// FormatCurrency renders a non-negative v with two decimals, "." grouping and
// "," as decimal separator. Reais and centavos are formatted as integers so
// every amount below MaxAmount prints exactly.
func FormatCurrency(v decimal.Decimal) string {
	v = v.Round(2)
	reais := v.Truncate(0)
	centavos := v.Sub(reais).Shift(2).Abs().IntPart()
	return fmt.Sprintf("%s,%02d", brl.Sprint(number.Decimal(reais.IntPart())), centavos)
}

// DateInWords renders t as "5 de março de 2024".
func DateInWords(t time.Time) string {
	return fmt.Sprintf("%d de %s de %d", t.Day(), monthNames[t.Month()-1], t.Year())
}

// DateNumeric renders t as DD-MM-YYYY.
func DateNumeric(t time.Time) string {
	return t.Format("02-01-2006")
}

// FileName is the suggested download name. The payer name is used as is.
func FileName(name string) string {
	return "receipt_" + name + ".pdf"
}

func isBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
