package conversation

import (
	"context"
	"fmt"

	"github.com/nmoretto/turnero/internal/observability/metrics"
	"github.com/nmoretto/turnero/pkg/logging"
)

type dispatcher interface {
	Dispatch(ctx context.Context, sess *Session, call ToolCall) string
}

// apologyReply is sent when the loop cannot produce a grounded answer.
const apologyReply = "Disculpá, estoy teniendo un problema técnico. Probá de nuevo en unos minutos."

// Engine runs the tool-calling loop: ask the model, execute the tools it
// requests, feed results back, repeat until it answers in plain text or the
// round cap trips.
type Engine struct {
	llm         LLMClient
	tools       dispatcher
	metrics     *metrics.ConversationMetrics
	logger      *logging.Logger
	maxRounds   int
	maxTokens   int32
	temperature float32
}

// NewEngine wires the loop. maxRounds <= 0 defaults to 8; m may be nil.
func NewEngine(llm LLMClient, tools dispatcher, maxRounds int, m *metrics.ConversationMetrics, logger *logging.Logger) *Engine {
	if llm == nil || tools == nil {
		panic("conversation: llm and dispatcher required")
	}
	if maxRounds <= 0 {
		maxRounds = 8
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		llm:         llm,
		tools:       tools,
		metrics:     m,
		logger:      logger,
		maxRounds:   maxRounds,
		maxTokens:   1024,
		temperature: 0.7,
	}
}

// Respond drives one exchange to completion. It returns the reply text and
// the extended turn list (including tool traffic) for history storage. The
// reply always exists; provider errors surface as the error return so the
// caller decides what to tell the client.
func (e *Engine) Respond(ctx context.Context, sess *Session, system string, turns []Turn) (string, []Turn, error) {
	for round := 0; round < e.maxRounds; round++ {
		resp, err := e.llm.Chat(ctx, ChatRequest{
			System:      system,
			Turns:       turns,
			Tools:       ToolSpecs(),
			MaxTokens:   e.maxTokens,
			Temperature: e.temperature,
		})
		if err != nil {
			return "", turns, fmt.Errorf("conversation: llm round %d: %w", round+1, err)
		}

		if len(resp.ToolCalls) == 0 {
			reply, suppressed := GateReply(resp.Text, sess.Effects)
			if suppressed {
				e.logger.Warn("suppressed unearned claim in reply",
					"client", sess.Client.ID, "original", resp.Text)
			}
			turns = append(turns, Turn{Role: RoleAssistant, Content: reply})
			return reply, turns, nil
		}

		turns = append(turns, Turn{
			Role:      RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})

		results := make([]ToolResult, 0, len(resp.ToolCalls))
		for _, call := range resp.ToolCalls {
			e.metrics.ObserveToolCall(call.Name)
			out := e.tools.Dispatch(ctx, sess, call)
			results = append(results, ToolResult{ID: call.ID, Name: call.Name, Output: out})
		}
		turns = append(turns, Turn{Role: RoleTool, ToolResults: results})
	}

	// The model kept asking for tools without ever answering. Cut it off
	// rather than loop forever.
	e.logger.Warn("tool round cap reached", "client", sess.Client.ID, "rounds", e.maxRounds)
	turns = append(turns, Turn{Role: RoleAssistant, Content: apologyReply})
	return apologyReply, turns, nil
}
