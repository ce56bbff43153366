package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nmoretto/turnero/pkg/logging"
)

// PreferenceItem is one purchasable line in a checkout preference. UnitPrice
// is in whole currency units because that is what the provider expects.
type PreferenceItem struct {
	Title     string  `json:"title"`
	Quantity  int32   `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Preference is the created checkout preference; InitPoint is the link the
// client taps to pay.
type Preference struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

type preferenceRequest struct {
	Items               []PreferenceItem `json:"items"`
	ExternalReference   string           `json:"external_reference"`
	StatementDescriptor string           `json:"statement_descriptor"`
	BackURLs            backURLs         `json:"back_urls"`
}

type backURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

// MercadoPagoClient creates checkout preferences against the Mercado Pago
// REST API.
type MercadoPagoClient struct {
	http   *resty.Client
	logger *logging.Logger
}

// NewMercadoPagoClient wires a client against baseURL (production is
// https://api.mercadopago.com; tests point it at a local server).
func NewMercadoPagoClient(baseURL, accessToken string, logger *logging.Logger) *MercadoPagoClient {
	if logger == nil {
		logger = logging.Default()
	}
	http := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(accessToken).
		SetTimeout(15 * time.Second).
		SetHeader("Content-Type", "application/json")
	return &MercadoPagoClient{http: http, logger: logger}
}

// CreatePreference registers a checkout preference for one order and returns
// the payment link. orderID goes out as the external reference so payment
// notifications can be matched back to the order.
func (c *MercadoPagoClient) CreatePreference(ctx context.Context, orderID int64, items []PreferenceItem) (*Preference, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("payments: preference needs at least one item")
	}

	req := preferenceRequest{
		Items:               items,
		ExternalReference:   fmt.Sprintf("ORD-%d", orderID),
		StatementDescriptor: "TURNERO",
		BackURLs: backURLs{
			Success: "https://www.instagram.com",
			Failure: "https://www.instagram.com",
			Pending: "https://www.instagram.com",
		},
	}

	var pref Preference
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&pref).
		Post("/checkout/preferences")
	if err != nil {
		return nil, fmt.Errorf("payments: create preference: %w", err)
	}
	if resp.IsError() {
		c.logger.Error("mercadopago rejected preference",
			"status", resp.StatusCode(), "body", resp.String(), "order", orderID)
		return nil, fmt.Errorf("payments: mercadopago returned status %d", resp.StatusCode())
	}
	if pref.InitPoint == "" {
		return nil, fmt.Errorf("payments: preference response missing init_point")
	}

	c.logger.Info("payment preference created", "order", orderID, "preference", pref.ID)
	return &pref, nil
}

// Payment is the provider's view of one payment attempt.
type Payment struct {
	ID                int64  `json:"id"`
	Status            string `json:"status"`
	ExternalReference string `json:"external_reference"`
}

// PaymentApproved is the provider status for a completed payment.
const PaymentApproved = "approved"

// GetPayment loads a payment by the id carried in a webhook notification.
func (c *MercadoPagoClient) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var p Payment
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&p).
		Get("/v1/payments/" + paymentID)
	if err != nil {
		return nil, fmt.Errorf("payments: get payment %s: %w", paymentID, err)
	}
	if resp.IsError() {
		c.logger.Error("mercadopago rejected payment lookup",
			"status", resp.StatusCode(), "payment", paymentID)
		return nil, fmt.Errorf("payments: mercadopago returned status %d", resp.StatusCode())
	}
	return &p, nil
}

// CentsToPrice converts stored integer cents to the provider's unit price.
func CentsToPrice(cents int64) float64 {
	return float64(cents) / 100
}
