package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePreference(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/checkout/preferences", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":         "pref-123",
			"init_point": "https://mp.example/checkout/pref-123",
		})
	}))
	defer srv.Close()

	c := NewMercadoPagoClient(srv.URL, "test-token", nil)
	pref, err := c.CreatePreference(context.Background(), 42, []PreferenceItem{
		{Title: "Lentes de contacto", Quantity: 2, UnitPrice: 1500.50},
	})
	require.NoError(t, err)

	assert.Equal(t, "pref-123", pref.ID)
	assert.Equal(t, "https://mp.example/checkout/pref-123", pref.InitPoint)

	assert.Equal(t, "ORD-42", got["external_reference"])
	assert.Equal(t, "TURNERO", got["statement_descriptor"])
	items := got["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "Lentes de contacto", item["title"])
	assert.Equal(t, 1500.50, item["unit_price"])
	back := got["back_urls"].(map[string]any)
	assert.Equal(t, "https://www.instagram.com", back["success"])
}

func TestCreatePreferenceProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewMercadoPagoClient(srv.URL, "bad-token", nil)
	_, err := c.CreatePreference(context.Background(), 42, []PreferenceItem{
		{Title: "x", Quantity: 1, UnitPrice: 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestCreatePreferenceRequiresItems(t *testing.T) {
	c := NewMercadoPagoClient("http://unused", "t", nil)
	_, err := c.CreatePreference(context.Background(), 1, nil)
	require.Error(t, err)
}

func TestCentsToPrice(t *testing.T) {
	assert.Equal(t, 1500.50, CentsToPrice(150050))
	assert.Equal(t, 0.0, CentsToPrice(0))
}
