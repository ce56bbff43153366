package instagram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendText(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/acc_1/messages", r.URL.Path)
		require.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(sendResponse{RecipientID: "user_1", MessageID: "m1"})
	}))
	defer srv.Close()

	c := NewClient("token-123", "acc_1")
	c.SetGraphAPIBase(srv.URL)

	require.NoError(t, c.SendText(context.Background(), "user_1", "hola"))
	assert.Equal(t, "user_1", got.Recipient.ID)
	assert.Equal(t, "hola", got.Message.Text)
	assert.Nil(t, got.Message.Attachment)
}

func TestSendImage(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(sendResponse{MessageID: "m2"})
	}))
	defer srv.Close()

	c := NewClient("token-123", "acc_1")
	c.SetGraphAPIBase(srv.URL)

	require.NoError(t, c.SendImage(context.Background(), "user_1", "https://cdn.example/menu.jpg"))
	require.NotNil(t, got.Message.Attachment)
	assert.Equal(t, "image", got.Message.Attachment.Type)
	assert.Equal(t, "https://cdn.example/menu.jpg", got.Message.Attachment.Payload.URL)
}

func TestSendTextAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(sendResponse{
			Error: &sendError{Message: "Invalid user", Code: 100},
		})
	}))
	defer srv.Close()

	c := NewClient("token-123", "acc_1")
	c.SetGraphAPIBase(srv.URL)

	err := c.SendText(context.Background(), "ghost", "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid user")
}
