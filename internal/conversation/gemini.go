package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient implements LLMClient over Google's Gemini API with function
// calling enabled.
type GeminiClient struct {
	client  *genai.Client
	modelID string
}

// NewGeminiClient creates the primary LLM client.
func NewGeminiClient(ctx context.Context, apiKey, modelID string) (*GeminiClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("conversation: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("conversation: create gemini client: %w", err)
	}
	return &GeminiClient{client: client, modelID: modelID}, nil
}

// Chat sends one round of the loop. Earlier turns, including previous tool
// calls and their results, are replayed as chat history; the final turn is
// sent as the message.
func (c *GeminiClient) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if len(req.Turns) == 0 {
		return ChatResponse{}, errors.New("conversation: gemini requires at least one turn")
	}

	model := c.client.GenerativeModel(c.modelID)
	if req.Temperature >= 0 {
		model.SetTemperature(req.Temperature)
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(req.MaxTokens)
	}
	if strings.TrimSpace(req.System) != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	if len(req.Tools) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: geminiDeclarations(req.Tools)}}
	}

	cs := model.StartChat()
	for _, turn := range req.Turns[:len(req.Turns)-1] {
		if content := geminiContent(turn); content != nil {
			cs.History = append(cs.History, content)
		}
	}

	last := geminiContent(req.Turns[len(req.Turns)-1])
	if last == nil {
		return ChatResponse{}, errors.New("conversation: final turn is empty")
	}
	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("conversation: gemini chat: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return ChatResponse{}, errors.New("conversation: gemini returned no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return ChatResponse{}, errors.New("conversation: gemini returned empty content")
	}

	out := ChatResponse{StopReason: candidate.FinishReason.String()}
	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			text.WriteString(string(p))
		case genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, ToolCall{
				ID:   p.Name, // gemini correlates by function name
				Name: p.Name,
				Args: p.Args,
			})
		}
	}
	out.Text = strings.TrimSpace(text.String())

	if resp.UsageMetadata != nil {
		out.Usage = TokenUsage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		}
	}
	return out, nil
}

// Close releases the underlying API client.
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func geminiContent(turn Turn) *genai.Content {
	switch turn.Role {
	case RoleUser:
		if strings.TrimSpace(turn.Content) == "" {
			return nil
		}
		return &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(turn.Content)}}

	case RoleAssistant:
		var parts []genai.Part
		if strings.TrimSpace(turn.Content) != "" {
			parts = append(parts, genai.Text(turn.Content))
		}
		for _, call := range turn.ToolCalls {
			parts = append(parts, genai.FunctionCall{Name: call.Name, Args: call.Args})
		}
		if len(parts) == 0 {
			return nil
		}
		return &genai.Content{Role: "model", Parts: parts}

	case RoleTool:
		var parts []genai.Part
		for _, res := range turn.ToolResults {
			parts = append(parts, genai.FunctionResponse{
				Name:     res.Name,
				Response: map[string]any{"result": res.Output},
			})
		}
		if len(parts) == 0 {
			return nil
		}
		return &genai.Content{Role: "function", Parts: parts}
	}
	return nil
}

func geminiDeclarations(tools []ToolSpec) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: geminiProperties(t.Properties),
				Required:   t.Required,
			},
		})
	}
	return decls
}

func geminiProperties(props map[string]Property) map[string]*genai.Schema {
	out := make(map[string]*genai.Schema, len(props))
	for name, p := range props {
		out[name] = geminiSchema(p)
	}
	return out
}

func geminiSchema(p Property) *genai.Schema {
	s := &genai.Schema{Description: p.Description, Enum: p.Enum}
	switch p.Type {
	case "integer":
		s.Type = genai.TypeInteger
	case "number":
		s.Type = genai.TypeNumber
	case "array":
		s.Type = genai.TypeArray
		if p.Items != nil {
			s.Items = geminiSchema(*p.Items)
		}
	case "object":
		s.Type = genai.TypeObject
		s.Properties = geminiProperties(p.Properties)
		s.Required = p.Required
	default:
		s.Type = genai.TypeString
	}
	return s
}
