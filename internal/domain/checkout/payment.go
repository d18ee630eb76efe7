package checkout

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

// PaymentTarget is the fixed payee shown to shoppers. Payment happens out of
// band; the reference typed by the shopper is recorded, never verified.
type PaymentTarget struct {
	PayeeID   string
	PayeeName string
	Currency  string
	Note      string
}

// PayRequest is a scan-to-pay request for one amount.
type PayRequest struct {
	PayeeID   string
	PayeeName string
	Amount    decimal.Decimal
	Currency  string
	Note      string
	URI       string
}

// Request builds the pay request for amount, rounded to two places.
func (t PaymentTarget) Request(amount decimal.Decimal) PayRequest {
	amount = amount.Round(2)
	pr := PayRequest{
		PayeeID:   t.PayeeID,
		PayeeName: t.PayeeName,
		Amount:    amount,
		Currency:  t.Currency,
		Note:      t.Note,
	}
	pr.URI = payURI(pr)
	return pr
}

// payURI renders a UPI deep link with parameters in pa, pn, am, cu, tn order.
func payURI(pr PayRequest) string {
	var b strings.Builder
	b.WriteString("upi://pay?pa=")
	b.WriteString(escape(pr.PayeeID))
	b.WriteString("&pn=")
	b.WriteString(escape(pr.PayeeName))
	b.WriteString("&am=")
	b.WriteString(pr.Amount.StringFixed(2))
	b.WriteString("&cu=")
	b.WriteString(escape(pr.Currency))
	b.WriteString("&tn=")
	b.WriteString(escape(pr.Note))
	return b.String()
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
