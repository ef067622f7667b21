package receipt

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatTaxID(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"12345678901", "123.456.789-01"},
		{"123.456.789-01", "123.456.789-01"},
		{" 123 456 789 01 ", "123.456.789-01"},
		{"abc98765432100xyz", "987.654.321-00"},
	}
	for _, tc := range tests {
		got, err := FormatTaxID(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got)
	}
}

func TestFormatTaxID_WrongDigitCount(t *testing.T) {
	for _, raw := range []string{"", "123", "1234567890", "123456789012", "no digits"} {
		_, err := FormatTaxID(raw)
		assert.ErrorIs(t, err, ErrInvalidTaxID, raw)
		assert.ErrorIs(t, err, ErrValidation, raw)
	}
}

func TestFormatTaxID_KeepsDigitOrder(t *testing.T) {
	pattern := regexp.MustCompile(`^\d{3}\.\d{3}\.\d{3}-\d{2}$`)
	for _, raw := range []string{"00000000000", "99999999999", "10293847561", "5.5.5.5.5.5.5.5.5.5.5"} {
		got, err := FormatTaxID(raw)
		require.NoError(t, err)
		assert.Regexp(t, pattern, got)
		assert.Equal(t, TaxIDDigits(raw), TaxIDDigits(got))
	}
}

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"150", "150,00"},
		{"0.5", "0,50"},
		{"123.4", "123,40"},
		{"1234.56", "1.234,56"},
		{"1000000", "1.000.000,00"},
		{"98765432.1", "98.765.432,10"},
		{"10.005", "10,01"},
		{"90071992547409.93", "90.071.992.547.409,93"},
		{"999999999999999.99", "999.999.999.999.999,99"},
		{"999999999999999.994", "999.999.999.999.999,99"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, FormatCurrency(decimal.RequireFromString(tc.in)), tc.in)
	}
}

func TestFormatCurrency_SeparatorConvention(t *testing.T) {
	for _, in := range []string{"0.01", "7", "999.99", "1000", "12345.6", "7654321.09", "100000000000"} {
		got := FormatCurrency(decimal.RequireFromString(in))
		require.GreaterOrEqual(t, len(got), 4, got)
		frac := got[len(got)-3:]
		assert.Equal(t, byte(','), frac[0], got)
		assert.NotContains(t, got[:len(got)-3], ",", got)
		assert.Equal(t, 1, strings.Count(got, ","), got)
	}
}

func TestDateFormats(t *testing.T) {
	d := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "5 de março de 2024", DateInWords(d))
	assert.Equal(t, "05-03-2024", DateNumeric(d))

	d = time.Date(1999, time.December, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "31 de dezembro de 1999", DateInWords(d))
	assert.Equal(t, "31-12-1999", DateNumeric(d))
}

func TestDateInWords_EveryMonth(t *testing.T) {
	for m := time.January; m <= time.December; m++ {
		got := DateInWords(time.Date(2024, m, 1, 0, 0, 0, 0, time.UTC))
		assert.Equal(t, "1 de "+monthNames[m-1]+" de 2024", got)
	}
}

func TestNewFields_Example(t *testing.T) {
	req := Request{
		Name:   "Maria Silva",
		TaxID:  "12345678901",
		Amount: decimal.NewFromFloat(150.0),
		Date:   time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, req.Validate())

	f, err := NewFields(req)
	require.NoError(t, err)
	assert.Equal(t, "Maria Silva", f.PayerName)
	assert.Equal(t, "123.456.789-01", f.TaxID)
	assert.Equal(t, "150,00", f.Amount)
	assert.Equal(t, "cento e cinquenta reais", f.AmountInWords)
	assert.Equal(t, "05-03-2024", f.DateNumeric)
	assert.Equal(t, "5 de março de 2024", f.DateInWords)
	assert.Equal(t, "receipt_Maria Silva.pdf", FileName(f.PayerName))
}

func TestNewFields_RejectsShortTaxID(t *testing.T) {
	_, err := NewFields(Request{Name: "x", TaxID: "123", Amount: decimal.NewFromInt(1), Date: time.Now()})
	assert.ErrorIs(t, err, ErrInvalidTaxID)
}

func TestFileName_PassesNameThrough(t *testing.T) {
	assert.Equal(t, "receipt_João/Ana.pdf", FileName("João/Ana"))
}
