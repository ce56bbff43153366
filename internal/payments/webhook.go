package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nmoretto/turnero/pkg/logging"
)

// Notification is the body Mercado Pago posts when a payment changes state.
// The id references a payment, not an order; the order travels in the
// payment's external reference.
type Notification struct {
	Type string `json:"type"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type paymentFetcher interface {
	GetPayment(ctx context.Context, paymentID string) (*Payment, error)
}

type orderMarker interface {
	MarkPaid(ctx context.Context, orderID int64) error
}

// NotificationHandler processes Mercado Pago payment webhooks: look up the
// payment, and when it is approved flip the referenced order to paid. The
// provider retries on non-2xx, so transient failures return 500 and
// permanently unusable notifications return 200.
type NotificationHandler struct {
	payments paymentFetcher
	orders   orderMarker
	logger   *logging.Logger
}

// NewNotificationHandler wires the webhook.
func NewNotificationHandler(payments paymentFetcher, orders orderMarker, logger *logging.Logger) *NotificationHandler {
	if payments == nil || orders == nil {
		panic("payments: fetcher and order marker required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &NotificationHandler{payments: payments, orders: orders, logger: logger}
}

func (h *NotificationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var n Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		http.Error(w, "invalid notification", http.StatusBadRequest)
		return
	}
	if n.Type != "payment" || n.Data.ID == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	payment, err := h.payments.GetPayment(r.Context(), n.Data.ID)
	if err != nil {
		h.logger.Error("payment lookup failed", "payment", n.Data.ID, "error", err)
		http.Error(w, "payment lookup failed", http.StatusInternalServerError)
		return
	}
	if payment.Status != PaymentApproved {
		h.logger.Info("ignoring non-approved payment",
			"payment", n.Data.ID, "status", payment.Status)
		w.WriteHeader(http.StatusOK)
		return
	}

	orderID, ok := parseOrderReference(payment.ExternalReference)
	if !ok {
		h.logger.Warn("payment without usable order reference",
			"payment", n.Data.ID, "reference", payment.ExternalReference)
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.orders.MarkPaid(r.Context(), orderID); err != nil {
		h.logger.Error("marking order paid failed", "order", orderID, "error", err)
		http.Error(w, "order update failed", http.StatusInternalServerError)
		return
	}

	h.logger.Info("order paid", "order", orderID, "payment", n.Data.ID)
	w.WriteHeader(http.StatusOK)
}

// parseOrderReference extracts the order id from the ORD-<id> external
// reference set at preference creation.
func parseOrderReference(ref string) (int64, bool) {
	var id int64
	if _, err := fmt.Sscanf(ref, "ORD-%d", &id); err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
