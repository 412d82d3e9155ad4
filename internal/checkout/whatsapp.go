package checkout

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Nvetto/magknives-tienda/internal/domain"
)

// Message renders the checkout text: one line per item plus the grand
// total, ready to be embedded in a wa.me link.
func Message(cart *domain.Cart) (string, error) {
	if cart.IsEmpty() {
		return "", domain.ErrEmptyCart
	}

	var b strings.Builder
	b.WriteString("Hola, quisiera finalizar mi compra con los siguientes artículos:\n\n")

	totals := cart.Totals()
	for _, line := range totals.Lines {
		fmt.Fprintf(&b, "- %dx %s - $%s\n", line.Quantity, line.Name, FormatAmount(line.Subtotal))
	}
	fmt.Fprintf(&b, "\n*Total del Carrito: $%s*", FormatAmount(totals.GrandTotal))

	return b.String(), nil
}

// Link builds the WhatsApp deep link for a rendered message.
func Link(phoneNumber, msg string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", phoneNumber, escapeQuery(msg))
}

// FormatAmount renders a monetary amount with es-AR digit grouping,
// matching what the storefront always showed ($12.500,75 rather than
// $12,500.75). It works on the decimal's own digits, a float64
// round-trip would misround amounts beyond 2^53.
func FormatAmount(amount decimal.Decimal) string {
	s := amount.Round(2).String()

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, fracPart, _ := strings.Cut(s, ".")
	fracPart = strings.TrimRight(fracPart, "0")

	// es-AR grouping starts at five digits: 9800 stays, 12500 groups.
	if len(intPart) >= 5 {
		var groups []string
		for len(intPart) > 3 {
			groups = append([]string{intPart[len(intPart)-3:]}, groups...)
			intPart = intPart[:len(intPart)-3]
		}
		groups = append([]string{intPart}, groups...)
		intPart = strings.Join(groups, ".")
	}

	out := intPart
	if fracPart != "" {
		out += "," + fracPart
	}
	if neg {
		out = "-" + out
	}
	return out
}

// escapeQuery escapes like encodeURIComponent: spaces become %20, not
// the form-encoded plus that url.QueryEscape produces.
func escapeQuery(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
