package notifier

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"food-delivery/models"
)

// Message is a rendered new-order notification.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

var orderHTML = template.Must(template.New("order").Parse(`<h2>New Order Received</h2>
<p><strong>Customer:</strong> {{.Name}}</p>
<p><strong>Phone:</strong> {{.Phone}}</p>
<p><strong>Delivery Address:</strong> {{.Address}}</p>
<p><strong>Total:</strong> ${{.Total.StringFixed 2}}</p>
<ul>
{{- range .Items}}
  <li>{{.Name}} ×{{.Qty}} = ${{.LineTotal.StringFixed 2}}</li>
{{- end}}
</ul>
<p><em>Order ID: {{.ID}}</em></p>
`))

// Compose renders the fixed-format order summary sent to the restaurant.
func Compose(order models.Order) (Message, error) {
	var html bytes.Buffer
	if err := orderHTML.Execute(&html, order); err != nil {
		return Message{}, fmt.Errorf("render order %d: %w", order.ID, err)
	}
	return Message{
		Subject: fmt.Sprintf("New Order #%d", order.ID),
		HTML:    html.String(),
		Text:    plainText(order),
	}, nil
}

func plainText(order models.Order) string {
	var b strings.Builder
	b.WriteString("New Order Received\n\n")
	fmt.Fprintf(&b, "Customer: %s\n", order.Name)
	fmt.Fprintf(&b, "Phone: %s\n", order.Phone)
	fmt.Fprintf(&b, "Delivery Address: %s\n", order.Address)
	fmt.Fprintf(&b, "Total: $%s\n\n", order.Total.StringFixed(2))
	for _, it := range order.Items {
		fmt.Fprintf(&b, "- %s ×%d = $%s\n", it.Name, it.Qty, it.LineTotal().StringFixed(2))
	}
	fmt.Fprintf(&b, "\nOrder ID: %d\n", order.ID)
	return b.String()
}
