package message

import (
	"regexp"
	"strings"
)

// Slot is one named placeholder of the confirmation template vocabulary.
type Slot string

const (
	SlotOrderCode       Slot = "order_code"
	SlotFulfillmentType Slot = "fulfillment_type"
	SlotItems           Slot = "items"
	SlotTotal           Slot = "total"
	SlotPaymentMethod   Slot = "payment_method"
	SlotChangeLine      Slot = "change_line"
	SlotReceiptLine     Slot = "receipt_line"
	SlotCustomerName    Slot = "customer_name"
	SlotStoreName       Slot = "store_name"
)

// Vars binds slots to their rendered text. Slots missing from the map, and
// names outside the vocabulary, render as the empty string.
type Vars map[Slot]string

var slotPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// DefaultConfirmationTemplate is used when a store has not configured its own.
const DefaultConfirmationTemplate = `Olá {{customer_name}}! Seu pedido #{{order_code}} foi confirmado.

Tipo: {{fulfillment_type}}

{{items}}

Total: {{total}}
Pagamento: {{payment_method}}
{{change_line}}

{{receipt_line}}`

// Render substitutes slots in tmpl.
//
// A line that contained at least one slot and renders to whitespace is
// dropped, so optional lines disappear cleanly. Runs of blank lines collapse
// to one and the result carries no leading or trailing blank lines.
func Render(tmpl string, vars Vars) string {
	lines := strings.Split(strings.ReplaceAll(tmpl, "\r\n", "\n"), "\n")

	var out []string
	blank := true // suppresses leading blank lines
	for _, line := range lines {
		hadSlot := slotPattern.MatchString(line)
		rendered := slotPattern.ReplaceAllStringFunc(line, func(m string) string {
			name := slotPattern.FindStringSubmatch(m)[1]
			return vars[Slot(strings.ToLower(name))]
		})
		rendered = strings.TrimRight(rendered, " \t")

		if strings.TrimSpace(rendered) == "" {
			if hadSlot || blank {
				continue
			}
			out = append(out, "")
			blank = true
			continue
		}
		out = append(out, rendered)
		blank = false
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}
	return strings.Join(out, "\n")
}
