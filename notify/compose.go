package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"

	"storefront/models"
)

const dateLayout = "02.01.2006 15:04"

var textTmpl = template.Must(template.New("order_confirmation.txt").Parse(`Hello {{.FullName}},

Your order has been received.

Serial number: {{.Serial}}
Date: {{.Date}}
Total: {{.Total}}
{{if .OrderURL}}
View your order:
{{.OrderURL}}

If the link does not open, copy the address into your browser.
{{end}}
Thank you for shopping with us!
`))

var htmlTmpl = htmltemplate.Must(htmltemplate.New("order_confirmation.html").Parse(`<p>Hello {{.FullName}},</p>
<p>Your order has been received.</p>
<table>
<tr><td>Serial number</td><td>{{.Serial}}</td></tr>
<tr><td>Date</td><td>{{.Date}}</td></tr>
<tr><td>Total</td><td>{{.Total}}</td></tr>
</table>
{{if .OrderURL}}<p><a href="{{.OrderURL}}">View your order</a></p>{{end}}
<p>Thank you for shopping with us!</p>
`))

type confirmationData struct {
	FullName string
	Serial   string
	Date     string
	Total    string
	OrderURL string
}

// OrderURL is the account page of an order.
func OrderURL(siteURL string, orderID uint) string {
	return fmt.Sprintf("%s/orders/%d", strings.TrimRight(siteURL, "/"), orderID)
}

// Compose builds the confirmation for o. Only account orders get a link,
// since guests cannot open the order page.
func Compose(o *models.Order, siteURL string) (Message, error) {
	data := confirmationData{
		FullName: o.FullName,
		Serial:   o.Serial(),
		Date:     o.CreatedAt.Format(dateLayout),
		Total:    o.Total().StringFixed(2),
	}
	if !o.IsGuest() {
		data.OrderURL = OrderURL(siteURL, o.ID)
	}

	var text, html bytes.Buffer
	if err := textTmpl.Execute(&text, data); err != nil {
		return Message{}, fmt.Errorf("render text: %w", err)
	}
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return Message{}, fmt.Errorf("render html: %w", err)
	}

	return Message{
		To:      o.Email(),
		Subject: "Order confirmation " + o.Serial(),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
