package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultGraphAPIBase = "https://graph.instagram.com/v21.0"
	defaultHTTPTimeout  = 10 * time.Second
)

// Client sends direct messages via the Instagram Graph API.
type Client struct {
	accessToken  string
	accountID    string
	graphAPIBase string
	httpClient   *http.Client
}

// NewClient creates a Graph API client for one Instagram business account.
func NewClient(accessToken, accountID string) *Client {
	return &Client{
		accessToken:  accessToken,
		accountID:    accountID,
		graphAPIBase: defaultGraphAPIBase,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// SetGraphAPIBase overrides the Graph API base URL (useful for testing).
func (c *Client) SetGraphAPIBase(base string) {
	c.graphAPIBase = base
}

// SendText delivers a plain text direct message.
func (c *Client) SendText(ctx context.Context, recipientID, text string) error {
	return c.send(ctx, sendRequest{
		Recipient: sendRecipient{ID: recipientID},
		Message:   sendMessage{Text: text},
	})
}

// SendImage delivers an image attachment by URL (the price menu).
func (c *Client) SendImage(ctx context.Context, recipientID, imageURL string) error {
	return c.send(ctx, sendRequest{
		Recipient: sendRecipient{ID: recipientID},
		Message: sendMessage{
			Attachment: &sendAttachment{
				Type:    "image",
				Payload: attachmentPayload{URL: imageURL},
			},
		},
	})
}

func (c *Client) send(ctx context.Context, req sendRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("instagram: marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.graphAPIBase, c.accountID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("instagram: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("instagram: send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("instagram: read response: %w", err)
	}

	var sendResp sendResponse
	if err := json.Unmarshal(respBody, &sendResp); err != nil {
		return fmt.Errorf("instagram: unmarshal response: %w", err)
	}
	if sendResp.Error != nil {
		return fmt.Errorf("instagram: API error %d: %s", sendResp.Error.Code, sendResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("instagram: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
