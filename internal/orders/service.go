package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/nmoretto/turnero/internal/catalog"
	"github.com/nmoretto/turnero/internal/payments"
	"github.com/nmoretto/turnero/pkg/logging"
)

// ErrUnknownProduct carries the name the client asked for so the reply can
// quote it back.
var ErrUnknownProduct = errors.New("orders: no matching product")

// CartLine is one requested product, by name as the client typed it.
type CartLine struct {
	Query    string
	Quantity int32
}

// Checkout is a finished payment link for an order.
type Checkout struct {
	Order *Order
	Link  string
}

type orderStore interface {
	Create(ctx context.Context, clientID int64) (*Order, error)
	AddItem(ctx context.Context, orderID int64, productID *int64, title string, quantity int32, unitPriceCents int64) error
	SetPaymentLink(ctx context.Context, orderID int64, link, preferenceID string) error
	SetStatus(ctx context.Context, orderID int64, status string) error
	GetByID(ctx context.Context, id int64) (*Order, error)
}

type productSource interface {
	SearchFuzzy(ctx context.Context, query string) ([]catalog.Product, error)
}

type preferenceCreator interface {
	CreatePreference(ctx context.Context, orderID int64, items []payments.PreferenceItem) (*payments.Preference, error)
}

// Service turns a list of requested products into a pending order with a
// payment link. The order and its items are persisted before the provider
// call, so a provider outage leaves a retriable order rather than nothing.
type Service struct {
	store    orderStore
	products productSource
	payments preferenceCreator
	logger   *logging.Logger
}

// NewService wires the checkout flow.
func NewService(store orderStore, products productSource, pay preferenceCreator, logger *logging.Logger) *Service {
	if store == nil || products == nil || pay == nil {
		panic("orders: store, products and payments required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, products: products, payments: pay, logger: logger}
}

// CreateCheckout resolves each line against the catalog (first fuzzy match
// wins), opens an order and returns the payment link. An unknown product
// fails the whole checkout before anything is written.
func (s *Service) CreateCheckout(ctx context.Context, clientID int64, lines []CartLine) (*Checkout, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("orders: empty cart")
	}

	resolved := make([]catalog.Product, 0, len(lines))
	for _, line := range lines {
		matches, err := s.products.SearchFuzzy(ctx, line.Query)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProduct, line.Query)
		}
		resolved = append(resolved, matches[0])
	}

	order, err := s.store.Create(ctx, clientID)
	if err != nil {
		return nil, err
	}

	items := make([]payments.PreferenceItem, 0, len(lines))
	for i, line := range lines {
		p := resolved[i]
		qty := line.Quantity
		if qty < 1 {
			qty = 1
		}
		if err := s.store.AddItem(ctx, order.ID, &p.ID, p.Name, qty, p.PriceCents); err != nil {
			return nil, err
		}
		items = append(items, payments.PreferenceItem{
			Title:     p.Name,
			Quantity:  qty,
			UnitPrice: payments.CentsToPrice(p.PriceCents),
		})
	}

	pref, err := s.payments.CreatePreference(ctx, order.ID, items)
	if err != nil {
		return nil, fmt.Errorf("orders: payment link for order %d: %w", order.ID, err)
	}
	if err := s.store.SetPaymentLink(ctx, order.ID, pref.InitPoint, pref.ID); err != nil {
		return nil, err
	}

	order, err = s.store.GetByID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("checkout created",
		"order", order.ID, "client", clientID, "total_cents", order.TotalCents)
	return &Checkout{Order: order, Link: pref.InitPoint}, nil
}

// MarkPaid flips an order after a payment notification. Unused by the chat
// flow itself; exposed for the payment webhook.
func (s *Service) MarkPaid(ctx context.Context, orderID int64) error {
	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status == StatusPaid {
		return nil
	}
	return s.store.SetStatus(ctx, orderID, StatusPaid)
}
