package services

import (
	razorpay "github.com/razorpay/razorpay-go"
)

// PaymentGateway creates payment orders at the external gateway. The raw
// response map is persisted verbatim into the ledger.
type PaymentGateway interface {
	CreateOrder(amountPaise int64, currency, receipt string) (map[string]interface{}, error)
}

type RazorpayGateway struct {
	client *razorpay.Client
}

func NewRazorpayGateway(keyID, keySecret string) *RazorpayGateway {
	return &RazorpayGateway{client: razorpay.NewClient(keyID, keySecret)}
}

func (g *RazorpayGateway) CreateOrder(amountPaise int64, currency, receipt string) (map[string]interface{}, error) {
	data := map[string]interface{}{
		"amount":          amountPaise,
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1, // auto-capture
	}
	return g.client.Order.Create(data, nil)
}
