package receipt

import (
	"strings"

	"github.com/shopspring/decimal"
)

var (
	unitWords = [20]string{
		"zero", "um", "dois", "três", "quatro", "cinco", "seis", "sete", "oito", "nove",
		"dez", "onze", "doze", "treze", "quatorze", "quinze", "dezesseis", "dezessete", "dezoito", "dezenove",
	}
	tenWords = [10]string{
		"", "", "vinte", "trinta", "quarenta", "cinquenta", "sessenta", "setenta", "oitenta", "noventa",
	}
	hundredWords = [10]string{
		"", "cento", "duzentos", "trezentos", "quatrocentos", "quinhentos",
		"seiscentos", "setecentos", "oitocentos", "novecentos",
	}
	// scale names by group of three digits, singular and plural; index 0 is the units group.
	scaleWords = [][2]string{
		{"", ""},
		{"mil", "mil"},
		{"milhão", "milhões"},
		{"bilhão", "bilhões"},
		{"trilhão", "trilhões"},
	}
)

// MaxAmount is the first amount AmountInWords cannot spell out.
var MaxAmount = decimal.New(1, 15)

var (
	million = decimal.New(1, 6)
	hundred = decimal.NewFromInt(100)
)

// AmountInWords spells out v in Brazilian reais, e.g. "cento e vinte e três
// reais e quarenta centavos".
func AmountInWords(v decimal.Decimal) (string, error) {
	v = v.Round(2)
	if v.IsNegative() {
		return "", ErrNegativeAmount
	}
	if v.GreaterThanOrEqual(MaxAmount) {
		return "", ErrAmountTooLarge
	}

	whole := v.Truncate(0)
	reais := whole.IntPart()
	cents := v.Sub(whole).Mul(hundred).IntPart()

	var parts []string
	switch {
	case reais == 1:
		parts = append(parts, "um real")
	case reais > 1:
		w := integerWords(reais)
		if whole.Mod(million).IsZero() {
			w += " de"
		}
		parts = append(parts, w+" reais")
	}
	switch {
	case cents == 1:
		parts = append(parts, "um centavo")
	case cents > 1:
		parts = append(parts, integerWords(cents)+" centavos")
	}
	if len(parts) == 0 {
		return "zero reais", nil
	}
	return strings.Join(parts, " e "), nil
}

// integerWords spells out 0 <= n < 10^15.
func integerWords(n int64) string {
	if n == 0 {
		return unitWords[0]
	}

	var groups []int
	for n > 0 {
		groups = append(groups, int(n%1000))
		n /= 1000
	}

	var b strings.Builder
	last := lowestNonZero(groups)
	for i := len(groups) - 1; i >= 0; i-- {
		g := groups[i]
		if g == 0 {
			continue
		}
		if b.Len() > 0 {
			if i == last && (g < 100 || g%100 == 0) {
				b.WriteString(" e ")
			} else {
				b.WriteString(" ")
			}
		}
		b.WriteString(groupWords(g, i))
	}
	return b.String()
}

func lowestNonZero(groups []int) int {
	for i, g := range groups {
		if g != 0 {
			return i
		}
	}
	return 0
}

func groupWords(g, scale int) string {
	switch {
	case scale == 0:
		return hundredsWords(g)
	case scale == 1 && g == 1:
		return "mil"
	case g == 1:
		return "um " + scaleWords[scale][0]
	default:
		return hundredsWords(g) + " " + scaleWords[scale][1]
	}
}

// hundredsWords spells out 1 <= n <= 999.
func hundredsWords(n int) string {
	if n == 100 {
		return "cem"
	}
	h, r := n/100, n%100
	var words []string
	if h > 0 {
		words = append(words, hundredWords[h])
	}
	switch {
	case r == 0:
	case r < 20:
		words = append(words, unitWords[r])
	case r%10 == 0:
		words = append(words, tenWords[r/10])
	default:
		words = append(words, tenWords[r/10]+" e "+unitWords[r%10])
	}
	return strings.Join(words, " e ")
}
