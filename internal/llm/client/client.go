package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"

	"ragdesk/internal/config"
)

// ChatClient sends chat completions to the inference server's
// OpenAI-compatible endpoint, carrying the sampling parameters of the
// user's configuration record.
type ChatClient struct {
	chatModel *openai.ChatModel
}

// NewChatClient builds a client against baseURL/v1. Model may be empty when
// the server runs a single model. MaxTokens below zero means unlimited and
// is not forwarded.
func NewChatClient(ctx context.Context, baseURL, model string, cfg config.Config) (*ChatClient, error) {
	temperature := float32(cfg.Temperature)
	topP := float32(cfg.TopP)

	modelCfg := &openai.ChatModelConfig{
		BaseURL:     strings.TrimRight(baseURL, "/") + "/v1",
		APIKey:      cfg.APIKey,
		Model:       model,
		Temperature: &temperature,
		TopP:        &topP,
	}
	if cfg.MaxTokens > 0 {
		maxTokens := int(cfg.MaxTokens)
		modelCfg.MaxTokens = &maxTokens
	}

	chatModel, err := openai.NewChatModel(ctx, modelCfg)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}
	return &ChatClient{chatModel: chatModel}, nil
}

// ChatTurn is one prior exchange entry fed back as context.
type ChatTurn struct {
	Role    string
	Content string
}

// Send runs one exchange: the configured system message (when non-empty),
// the prior history, then the prompt. Returns the assistant reply.
func (c *ChatClient) Send(ctx context.Context, systemMessage string, history []ChatTurn, prompt string) (string, error) {
	messages := buildMessages(systemMessage, history, prompt)

	reply, err := c.chatModel.Generate(ctx, messages)
	if err != nil {
		return "", err
	}
	return reply.Content, nil
}

func buildMessages(systemMessage string, history []ChatTurn, prompt string) []*schema.Message {
	messages := make([]*schema.Message, 0, len(history)+2)
	if strings.TrimSpace(systemMessage) != "" {
		messages = append(messages, schema.SystemMessage(systemMessage))
	}
	for _, turn := range history {
		switch turn.Role {
		case "assistant":
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		default:
			messages = append(messages, schema.UserMessage(turn.Content))
		}
	}
	return append(messages, schema.UserMessage(prompt))
}
