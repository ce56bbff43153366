package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubFetcher struct {
	payment *Payment
	err     error
	calls   int
}

func (s *stubFetcher) GetPayment(_ context.Context, _ string) (*Payment, error) {
	s.calls++
	return s.payment, s.err
}

type stubMarker struct {
	paid []int64
	err  error
}

func (s *stubMarker) MarkPaid(_ context.Context, orderID int64) error {
	if s.err != nil {
		return s.err
	}
	s.paid = append(s.paid, orderID)
	return nil
}

func postNotification(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/mercadopago", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNotificationMarksOrderPaid(t *testing.T) {
	fetcher := &stubFetcher{payment: &Payment{
		ID: 555, Status: PaymentApproved, ExternalReference: "ORD-42",
	}}
	marker := &stubMarker{}
	h := NewNotificationHandler(fetcher, marker, nil)

	rec := postNotification(t, h, `{"type":"payment","data":{"id":"555"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int64{42}, marker.paid)
}

func TestNotificationIgnoresOtherTopics(t *testing.T) {
	fetcher := &stubFetcher{}
	marker := &stubMarker{}
	h := NewNotificationHandler(fetcher, marker, nil)

	rec := postNotification(t, h, `{"type":"merchant_order","data":{"id":"9"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, fetcher.calls, "non-payment topics never hit the provider")
	assert.Empty(t, marker.paid)
}

func TestNotificationIgnoresNonApprovedPayment(t *testing.T) {
	fetcher := &stubFetcher{payment: &Payment{
		ID: 555, Status: "pending", ExternalReference: "ORD-42",
	}}
	marker := &stubMarker{}
	h := NewNotificationHandler(fetcher, marker, nil)

	rec := postNotification(t, h, `{"type":"payment","data":{"id":"555"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, marker.paid)
}

func TestNotificationWithForeignReferenceIsAcked(t *testing.T) {
	fetcher := &stubFetcher{payment: &Payment{
		ID: 555, Status: PaymentApproved, ExternalReference: "something-else",
	}}
	marker := &stubMarker{}
	h := NewNotificationHandler(fetcher, marker, nil)

	// 200 so the provider stops retrying a notification we can never use.
	rec := postNotification(t, h, `{"type":"payment","data":{"id":"555"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, marker.paid)
}

func TestNotificationRetriesOnLookupFailure(t *testing.T) {
	fetcher := &stubFetcher{err: assert.AnError}
	h := NewNotificationHandler(fetcher, &stubMarker{}, nil)

	rec := postNotification(t, h, `{"type":"payment","data":{"id":"555"}}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestNotificationRejectsMalformedBody(t *testing.T) {
	h := NewNotificationHandler(&stubFetcher{}, &stubMarker{}, nil)

	rec := postNotification(t, h, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseOrderReference(t *testing.T) {
	id, ok := parseOrderReference("ORD-42")
	require.True(t, ok)
	assert.Equal(t, int64(42), id)

	_, ok = parseOrderReference("ORD-0")
	assert.False(t, ok)
	_, ok = parseOrderReference("42")
	assert.False(t, ok)
	_, ok = parseOrderReference("")
	assert.False(t, ok)
}

func TestGetPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/payments/555", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":555,"status":"approved","external_reference":"ORD-42"}`))
	}))
	defer srv.Close()

	c := NewMercadoPagoClient(srv.URL, "test-token", nil)
	p, err := c.GetPayment(context.Background(), "555")
	require.NoError(t, err)
	assert.Equal(t, PaymentApproved, p.Status)
	assert.Equal(t, "ORD-42", p.ExternalReference)
}
