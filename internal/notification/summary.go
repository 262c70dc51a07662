package notification

import (
	"bytes"
	htmltemplate "html/template"
	"math/big"
	"strings"
	"text/template"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

const (
	// Subject — тема письма о созданном заказе.
	Subject = "Your Order Details"
	// TimeLayout — формат даты в письме (d/m/Y H:i).
	TimeLayout = "02/01/2006 15:04"
)

const textSummary = `Order Details

Hello, {{ .CustomerName }}!

Your order #{{ .OrderID }} has been successfully placed on {{ .PlacedAt }}.

Products:
{{ range .Lines }}
- {{ .Name }} | {{ .Quantity }} | {{ .UnitPrice }} | {{ .Total }}{{ end }}

Total Order Value: {{ .Total }}

Thank you for choosing our pastry shop!

{{ .AppName }}
`

const htmlSummary = `<h1>Order Details</h1>
<p>Hello, {{ .CustomerName }}!</p>
<p>Your order <strong>#{{ .OrderID }}</strong> has been successfully placed on <strong>{{ .PlacedAt }}</strong>.</p>
<h2>Products:</h2>
<table>
<tr><th>Product</th><th>Quantity</th><th>Unit Price</th><th>Total</th></tr>
{{- range .Lines }}
<tr><td>{{ .Name }}</td><td align="center">{{ .Quantity }}</td><td align="right">{{ .UnitPrice }}</td><td align="right">{{ .Total }}</td></tr>
{{- end }}
</table>
<p><strong>Total Order Value:</strong> {{ .Total }}</p>
<p>Thank you for choosing our pastry shop!</p>
<p>{{ .AppName }}</p>
`

var (
	textTemplate = template.Must(template.New("order_summary.txt").Parse(textSummary))
	htmlTemplate = htmltemplate.Must(htmltemplate.New("order_summary.html").Parse(htmlSummary))
)

type summaryLine struct {
	Name      string
	Quantity  int
	UnitPrice string
	Total     string
}

type summaryView struct {
	AppName      string
	CustomerName string
	OrderID      int64
	PlacedAt     string
	Lines        []summaryLine
	Total        string
}

// FormatMoney форматирует сумму как "$ 1,234.50".
func FormatMoney(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	whole, cents, _ := strings.Cut(rounded.Abs().StringFixed(2), ".")
	digits, _ := new(big.Int).SetString(whole, 10)
	formatted := humanize.BigComma(digits) + "." + cents
	if rounded.IsNegative() {
		return "$ -" + formatted
	}
	return "$ " + formatted
}

// RenderOrderSummary строит письмо по событию order.placed.
func RenderOrderSummary(appName string, event domain.OrderPlacedEvent) (Message, error) {
	view := summaryView{
		AppName:      appName,
		CustomerName: event.CustomerName,
		OrderID:      event.OrderID,
		PlacedAt:     event.CreatedAt.Format(TimeLayout),
		Lines:        make([]summaryLine, 0, len(event.Items)),
		Total:        FormatMoney(event.Total()),
	}
	for _, item := range event.Items {
		view.Lines = append(view.Lines, summaryLine{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: FormatMoney(item.UnitPrice),
			Total:     FormatMoney(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))),
		})
	}

	var text strings.Builder
	if err := textTemplate.Execute(&text, view); err != nil {
		return Message{}, err
	}
	var html bytes.Buffer
	if err := htmlTemplate.Execute(&html, view); err != nil {
		return Message{}, err
	}

	return Message{
		To:      event.CustomerEmail,
		ToName:  event.CustomerName,
		Subject: Subject,
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
