// Package message renders customer-facing WhatsApp-style texts for orders:
// the confirmation message, the optional PIX payment instructions and the
// small formatting helpers they share.
package message

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/petrijr/orderdesk/pkg/api"
)

// DefaultCountryCode is prefixed to national numbers by NormalizePhone.
const DefaultCountryCode = "55"

// NormalizePhone reduces raw to digits and returns a number usable by the
// messaging gateway. Fewer than 10 digits is unusable. 10 or 11 digits are a
// national number and get countryCode prefixed. 12 to 15 digits are assumed to
// already carry a country code.
func NormalizePhone(raw, countryCode string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch n := len(digits); {
	case n < 10 || n > 15:
		return "", false
	case n <= 11:
		if countryCode == "" {
			countryCode = DefaultCountryCode
		}
		return countryCode + digits, true
	default:
		return digits, true
	}
}

// FormatMoney renders cents as Brazilian reais, e.g. "R$ 1.234,50".
func FormatMoney(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)

	var grouped strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, grouped.String(), cents%100)
}

// PaymentLabel is the customer-facing name of a payment method.
func PaymentLabel(m api.PaymentMethod) string {
	switch m {
	case api.PaymentCash:
		return "Dinheiro"
	case api.PaymentCard:
		return "Cartão"
	case api.PaymentPix:
		return "PIX"
	}
	return string(m)
}

// FulfillmentLabel is the customer-facing name of a fulfillment type.
func FulfillmentLabel(f api.FulfillmentType) string {
	switch f {
	case api.FulfillmentPickup:
		return "Retirada"
	case api.FulfillmentDelivery:
		return "Entrega"
	case api.FulfillmentDineIn:
		return "Consumo no local"
	}
	return string(f)
}

// ChangeLine describes the change due for cash orders paid with a larger
// note. It is empty otherwise.
func ChangeLine(o *api.Order) string {
	if o.PaymentMethod != api.PaymentCash || o.CashTenderedCents <= o.TotalCents {
		return ""
	}
	return fmt.Sprintf("Troco para %s: %s",
		FormatMoney(o.CashTenderedCents), FormatMoney(o.CashTenderedCents-o.TotalCents))
}

// ReceiptLine links the public receipt page, or is empty when the store has
// no receipt URL.
func ReceiptLine(baseURL, token string) string {
	if baseURL == "" || token == "" {
		return ""
	}
	return "Comprovante: " + strings.TrimRight(baseURL, "/") + "/" + token
}

// ItemsBlock lists the order lines, one per line, with chosen options
// indented beneath.
func ItemsBlock(items []api.LineItem) string {
	var b strings.Builder
	for i, li := range items {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%dx %s (%s)", li.Quantity, li.ProductName, FormatMoney(li.TotalCents()))
		for _, opt := range li.Options {
			fmt.Fprintf(&b, "\n  - %s", opt.Name)
		}
		if li.Notes != "" {
			fmt.Fprintf(&b, "\n  Obs: %s", li.Notes)
		}
	}
	return b.String()
}

// ConfirmationVars binds every slot for the confirmation of o.
func ConfirmationVars(o *api.Order, settings api.StoreSettings) Vars {
	return Vars{
		SlotOrderCode:       o.Code,
		SlotFulfillmentType: FulfillmentLabel(o.FulfillmentType),
		SlotItems:           ItemsBlock(o.Items),
		SlotTotal:           FormatMoney(o.TotalCents),
		SlotPaymentMethod:   PaymentLabel(o.PaymentMethod),
		SlotChangeLine:      ChangeLine(o),
		SlotReceiptLine:     ReceiptLine(settings.ReceiptBaseURL, o.ReceiptToken),
		SlotCustomerName:    o.CustomerName,
		SlotStoreName:       settings.Name,
	}
}

// Confirmation renders the order confirmation with the store template, or
// DefaultConfirmationTemplate when the store has none.
func Confirmation(o *api.Order, settings api.StoreSettings) string {
	tmpl := settings.ConfirmationTemplate
	if strings.TrimSpace(tmpl) == "" {
		tmpl = DefaultConfirmationTemplate
	}
	return Render(tmpl, ConfirmationVars(o, settings))
}

// PaymentInstructions renders the PIX follow-up message. ok is false when the
// order is not paid by PIX or the store has no PIX key.
func PaymentInstructions(o *api.Order, settings api.StoreSettings) (text string, ok bool) {
	if o.PaymentMethod != api.PaymentPix || settings.PixKey == "" {
		return "", false
	}
	lines := []string{
		fmt.Sprintf("Pagamento via PIX do pedido #%s", o.Code),
		"Valor: " + FormatMoney(o.TotalCents),
		"Chave PIX: " + settings.PixKey,
	}
	if settings.PixHolderName != "" {
		lines = append(lines, "Favorecido: "+settings.PixHolderName)
	}
	return strings.Join(lines, "\n"), true
}
