package conversation

import (
	"context"

	"github.com/nmoretto/turnero/pkg/logging"
)

// FallbackClient wraps a primary LLM client with a second provider that is
// tried when the primary errors. A nil fallback degrades to primary-only.
type FallbackClient struct {
	primary  LLMClient
	fallback LLMClient
	logger   *logging.Logger
}

// NewFallbackClient wires the provider chain.
func NewFallbackClient(primary, fallback LLMClient, logger *logging.Logger) *FallbackClient {
	if logger == nil {
		logger = logging.Default()
	}
	return &FallbackClient{primary: primary, fallback: fallback, logger: logger}
}

// Chat tries the primary, then the fallback. The fallback's error wins when
// both fail because it was the last attempt.
func (c *FallbackClient) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	resp, err := c.primary.Chat(ctx, req)
	if err == nil {
		return resp, nil
	}

	c.logger.Warn("primary LLM failed",
		"error", err, "fallback_available", c.fallback != nil)
	if c.fallback == nil {
		return ChatResponse{}, err
	}

	resp, fbErr := c.fallback.Chat(ctx, req)
	if fbErr != nil {
		c.logger.Error("fallback LLM also failed",
			"primary_error", err, "fallback_error", fbErr)
		return ChatResponse{}, fbErr
	}
	c.logger.Info("fallback LLM succeeded after primary failure")
	return resp, nil
}
