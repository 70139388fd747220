package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	financeapp "github.com/arflow/backend/internal/application/finance"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

const receiptTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>Payment received</h2>
  <p>Dear {{.CustomerName}},</p>
  <p>{{.OrganizationName}} received your payment of <strong>{{money .Amount .Currency}}</strong> on {{date .PaymentDate}}. Thank you.</p>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><td>Receipt number</td><td>{{.PaymentNumber}}</td></tr>
    <tr><td>Payment method</td><td>{{label .Method}}{{if .CardLast4}} ({{.CardBrand}} ending {{.CardLast4}}){{end}}</td></tr>
    {{- if .ReferenceNumber}}
    <tr><td>Reference</td><td>{{.ReferenceNumber}}</td></tr>
    {{- end}}
  </table>
  {{- if .Lines}}
  <h3>Applied to</h3>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><th align="left">Document</th><th align="left">Type</th><th align="right">Amount</th></tr>
    {{- range .Lines}}
    <tr><td>{{.DocumentNumber}}</td><td>{{label .DocumentType}}</td><td align="right">{{money .Amount $.Currency}}</td></tr>
    {{- end}}
  </table>
  {{- end}}
  {{- if .Unapplied.IsPositive}}
  <p>{{money .Unapplied .Currency}} remains on account as credit.</p>
  {{- end}}
</body>
</html>
`

// ReceiptRenderer renders payment receipt emails
type ReceiptRenderer struct {
	tmpl *template.Template
}

// NewReceiptRenderer parses the receipt template
func NewReceiptRenderer() *ReceiptRenderer {
	printer := message.NewPrinter(language.AmericanEnglish)
	caser := cases.Title(language.English)

	funcs := template.FuncMap{
		"money": func(amount decimal.Decimal, currency string) string {
			return formatMoney(printer, amount, currency)
		},
		"date": func(t time.Time) string {
			return t.Format("January 2, 2006")
		},
		"label": func(code string) string {
			return caser.String(strings.ToLower(strings.ReplaceAll(code, "_", " ")))
		},
	}
	return &ReceiptRenderer{
		tmpl: template.Must(template.New("receipt").Funcs(funcs).Parse(receiptTemplate)),
	}
}

// Subject returns the subject line of a receipt
func (r *ReceiptRenderer) Subject(receipt financeapp.PaymentReceipt) string {
	return fmt.Sprintf("Payment receipt %s from %s", receipt.PaymentNumber, receipt.OrganizationName)
}

// Render returns the HTML body. The payment date is shown in the
// organization's time zone.
func (r *ReceiptRenderer) Render(receipt financeapp.PaymentReceipt) (string, error) {
	if loc, err := time.LoadLocation(receipt.Timezone); err == nil && receipt.Timezone != "" {
		receipt.PaymentDate = receipt.PaymentDate.In(loc)
	}
	var body bytes.Buffer
	if err := r.tmpl.Execute(&body, receipt); err != nil {
		return "", fmt.Errorf("render receipt %s: %w", receipt.PaymentNumber, err)
	}
	return body.String(), nil
}

func formatMoney(p *message.Printer, amount decimal.Decimal, currency string) string {
	f, _ := amount.Round(2).Float64()
	return p.Sprintf("%s %v", currency, number.Decimal(f, number.Scale(2)))
}
