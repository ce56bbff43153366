package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

type bedrockConverseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClient implements LLMClient over the Bedrock Converse API. It is
// the fallback provider, used when Gemini is down.
type BedrockClient struct {
	api     bedrockConverseAPI
	modelID string
}

// NewBedrockClient wraps a bedrockruntime client.
func NewBedrockClient(api bedrockConverseAPI, modelID string) *BedrockClient {
	if api == nil {
		panic("conversation: bedrock converse client cannot be nil")
	}
	return &BedrockClient{api: api, modelID: modelID}
}

// Chat sends one round of the loop through Converse.
func (c *BedrockClient) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	modelID := req.Model
	if strings.TrimSpace(modelID) == "" {
		modelID = c.modelID
	}
	if strings.TrimSpace(modelID) == "" {
		return ChatResponse{}, errors.New("conversation: bedrock model id is required")
	}

	input := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(modelID),
		Messages: bedrockMessages(req.Turns),
	}
	if strings.TrimSpace(req.System) != "" {
		input.System = []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: req.System},
		}
	}
	if len(req.Tools) > 0 {
		input.ToolConfig = bedrockToolConfig(req.Tools)
	}

	inference := &brtypes.InferenceConfiguration{}
	if req.MaxTokens > 0 {
		inference.MaxTokens = aws.Int32(req.MaxTokens)
	}
	if req.Temperature >= 0 {
		inference.Temperature = aws.Float32(req.Temperature)
	}
	if inference.MaxTokens != nil || inference.Temperature != nil {
		input.InferenceConfig = inference
	}

	out, err := c.api.Converse(ctx, input)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("conversation: bedrock converse: %w", err)
	}

	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return ChatResponse{}, errors.New("conversation: bedrock returned no message output")
	}

	resp := ChatResponse{StopReason: string(out.StopReason)}
	var text strings.Builder
	for _, block := range msg.Value.Content {
		switch b := block.(type) {
		case *brtypes.ContentBlockMemberText:
			text.WriteString(b.Value)
		case *brtypes.ContentBlockMemberToolUse:
			call := ToolCall{
				ID:   aws.ToString(b.Value.ToolUseId),
				Name: aws.ToString(b.Value.Name),
				Args: map[string]any{},
			}
			if b.Value.Input != nil {
				if err := b.Value.Input.UnmarshalSmithyDocument(&call.Args); err != nil {
					return ChatResponse{}, fmt.Errorf("conversation: decode tool input: %w", err)
				}
			}
			resp.ToolCalls = append(resp.ToolCalls, call)
		}
	}
	resp.Text = strings.TrimSpace(text.String())

	if out.Usage != nil {
		resp.Usage = TokenUsage{
			InputTokens:  aws.ToInt32(out.Usage.InputTokens),
			OutputTokens: aws.ToInt32(out.Usage.OutputTokens),
			TotalTokens:  aws.ToInt32(out.Usage.TotalTokens),
		}
	}
	return resp, nil
}

func bedrockMessages(turns []Turn) []brtypes.Message {
	msgs := make([]brtypes.Message, 0, len(turns))
	for _, turn := range turns {
		switch turn.Role {
		case RoleUser:
			if strings.TrimSpace(turn.Content) == "" {
				continue
			}
			msgs = append(msgs, brtypes.Message{
				Role:    brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: turn.Content}},
			})

		case RoleAssistant:
			var blocks []brtypes.ContentBlock
			if strings.TrimSpace(turn.Content) != "" {
				blocks = append(blocks, &brtypes.ContentBlockMemberText{Value: turn.Content})
			}
			for _, call := range turn.ToolCalls {
				blocks = append(blocks, &brtypes.ContentBlockMemberToolUse{
					Value: brtypes.ToolUseBlock{
						ToolUseId: aws.String(call.ID),
						Name:      aws.String(call.Name),
						Input:     document.NewLazyDocument(call.Args),
					},
				})
			}
			if len(blocks) == 0 {
				continue
			}
			msgs = append(msgs, brtypes.Message{Role: brtypes.ConversationRoleAssistant, Content: blocks})

		case RoleTool:
			// Converse carries tool results inside a user message.
			var blocks []brtypes.ContentBlock
			for _, res := range turn.ToolResults {
				blocks = append(blocks, &brtypes.ContentBlockMemberToolResult{
					Value: brtypes.ToolResultBlock{
						ToolUseId: aws.String(res.ID),
						Content: []brtypes.ToolResultContentBlock{
							&brtypes.ToolResultContentBlockMemberText{Value: res.Output},
						},
					},
				})
			}
			if len(blocks) == 0 {
				continue
			}
			msgs = append(msgs, brtypes.Message{Role: brtypes.ConversationRoleUser, Content: blocks})
		}
	}
	return msgs
}

func bedrockToolConfig(tools []ToolSpec) *brtypes.ToolConfiguration {
	out := make([]brtypes.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, &brtypes.ToolMemberToolSpec{
			Value: brtypes.ToolSpecification{
				Name:        aws.String(t.Name),
				Description: aws.String(t.Description),
				InputSchema: &brtypes.ToolInputSchemaMemberJson{
					Value: document.NewLazyDocument(jsonSchema(t)),
				},
			},
		})
	}
	return &brtypes.ToolConfiguration{Tools: out}
}

func jsonSchema(t ToolSpec) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": jsonProperties(t.Properties),
		"required":   t.Required,
	}
}

func jsonProperties(props map[string]Property) map[string]any {
	out := make(map[string]any, len(props))
	for name, p := range props {
		out[name] = jsonProperty(p)
	}
	return out
}

func jsonProperty(p Property) map[string]any {
	typ := p.Type
	if typ == "" {
		typ = "string"
	}
	m := map[string]any{"type": typ, "description": p.Description}
	if len(p.Enum) > 0 {
		m["enum"] = p.Enum
	}
	if p.Items != nil {
		m["items"] = jsonProperty(*p.Items)
	}
	if len(p.Properties) > 0 {
		m["properties"] = jsonProperties(p.Properties)
		m["required"] = p.Required
	}
	return m
}
