package checkout

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nvetto/magknives-tienda/internal/domain"
)

func messageCart() *domain.Cart {
	return &domain.Cart{
		OwnerID: "user-1",
		Items: []domain.LineItem{
			{ProductID: 1, Name: "Bowie-10", Price: decimal.NewFromInt(12500), Quantity: 2},
			{ProductID: 4, Name: "Verijero-12", Price: decimal.NewFromInt(9800), Quantity: 1},
		},
	}
}

func TestMessage_Format(t *testing.T) {
	msg, err := Message(messageCart())
	require.NoError(t, err)

	lines := strings.Split(msg, "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "Hola, quisiera finalizar mi compra con los siguientes artículos:", lines[0])
	assert.Equal(t, "", lines[1])
	assert.Equal(t, "- 2x Bowie-10 - $25.000", lines[2])
	assert.Equal(t, "- 1x Verijero-12 - $9800", lines[3])
	assert.Equal(t, "*Total del Carrito: $34.800*", lines[4])
}

func TestMessage_EmptyCart(t *testing.T) {
	_, err := Message(&domain.Cart{OwnerID: "user-1"})
	require.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestLink_Escaping(t *testing.T) {
	msg, err := Message(messageCart())
	require.NoError(t, err)

	link := Link("5493329577462", msg)
	assert.True(t, strings.HasPrefix(link, "https://wa.me/5493329577462?text="))
	assert.NotContains(t, link, " ")
	assert.NotContains(t, link, "+", "spaces must escape to %20, not +")
	assert.Contains(t, link, "Bowie-10")
	assert.Contains(t, link, "%20")
}

func TestFormatAmount_Grouping(t *testing.T) {
	assert.Equal(t, "25.000", FormatAmount(decimal.NewFromInt(25000)))
	assert.Equal(t, "1.250.000", FormatAmount(decimal.NewFromInt(1250000)))
	assert.Equal(t, "9800", FormatAmount(decimal.NewFromInt(9800)))
	assert.Equal(t, "0", FormatAmount(decimal.Zero))
}

func TestFormatAmount_Fractions(t *testing.T) {
	assert.Equal(t, "12.345,67", FormatAmount(decimal.RequireFromString("12345.67")))
	assert.Equal(t, "15.999,5", FormatAmount(decimal.RequireFromString("15999.50")))
	assert.Equal(t, "10,01", FormatAmount(decimal.RequireFromString("10.005")))
	assert.Equal(t, "-1234,5", FormatAmount(decimal.RequireFromString("-1234.50")))
}

func TestFormatAmount_BeyondFloat64Precision(t *testing.T) {
	// 2^53+1 is not representable as float64; a float round-trip
	// would render ...992 instead.
	assert.Equal(t, "9.007.199.254.740.993",
		FormatAmount(decimal.RequireFromString("9007199254740993")))
}
