package conversation

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Turn is one provider-neutral conversation entry. Assistant turns may carry
// tool calls; tool turns carry the matching results.
type Turn struct {
	Role        string       `json:"role"`
	Content     string       `json:"content,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// ToolCall is a function invocation requested by the model. ID is the
// provider's correlation id when it has one; Name doubles as the id for
// providers without.
type ToolCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResult is the outcome handed back to the model. Output is always a
// string, including for failures: the model reads the error and rephrases it
// for the client.
type ToolResult struct {
	ID     string `json:"id,omitempty"`
	Name   string `json:"name"`
	Output string `json:"output"`
}

// Property describes one parameter of a tool.
type Property struct {
	Type        string // "string", "integer", "number", "array"
	Description string
	Enum        []string
	Items       *Property // for arrays
	Properties  map[string]Property
	Required    []string
}

// ToolSpec declares one callable tool to the model.
type ToolSpec struct {
	Name        string
	Description string
	Properties  map[string]Property
	Required    []string
}

// TokenUsage mirrors provider accounting.
type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

// ChatRequest is one round of the tool-calling loop.
type ChatRequest struct {
	Model       string
	System      string
	Turns       []Turn
	Tools       []ToolSpec
	MaxTokens   int32
	Temperature float32
}

// ChatResponse carries either final text, tool calls to dispatch, or both.
type ChatResponse struct {
	Text       string
	ToolCalls  []ToolCall
	Usage      TokenUsage
	StopReason string
}

// LLMClient is implemented per provider.
type LLMClient interface {
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}
