package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPaymentTarget_Request(t *testing.T) {
	target := PaymentTarget{
		PayeeID:   "trolley@upi",
		PayeeName: "Smart Trolley",
		Currency:  "INR",
		Note:      "Payment for Order",
	}

	tests := []struct {
		name   string
		amount string
		want   string
		uri    string
	}{
		{
			name:   "two places",
			amount: "143.50",
			want:   "143.50",
			uri:    "upi://pay?pa=trolley%40upi&pn=Smart%20Trolley&am=143.50&cu=INR&tn=Payment%20for%20Order",
		},
		{
			name:   "integer amount",
			amount: "56",
			want:   "56.00",
			uri:    "upi://pay?pa=trolley%40upi&pn=Smart%20Trolley&am=56.00&cu=INR&tn=Payment%20for%20Order",
		},
		{
			name:   "rounded half away from zero",
			amount: "10.005",
			want:   "10.01",
			uri:    "upi://pay?pa=trolley%40upi&pn=Smart%20Trolley&am=10.01&cu=INR&tn=Payment%20for%20Order",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr := target.Request(decimal.RequireFromString(tt.amount))
			assert.Equal(t, tt.want, pr.Amount.StringFixed(2))
			assert.Equal(t, tt.uri, pr.URI)
			assert.Equal(t, "trolley@upi", pr.PayeeID)
			assert.Equal(t, "INR", pr.Currency)
		})
	}
}

func TestPayURI_Escaping(t *testing.T) {
	pr := PaymentTarget{PayeeID: "a&b@upi", PayeeName: "R&D Mart", Currency: "INR", Note: "x=y"}.
		Request(decimal.NewFromInt(1))
	assert.Equal(t, "upi://pay?pa=a%26b%40upi&pn=R%26D%20Mart&am=1.00&cu=INR&tn=x%3Dy", pr.URI)
}
