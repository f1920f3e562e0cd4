package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/invoice-reimbursement/internal/application/port"
	"github.com/garyjia/invoice-reimbursement/internal/domain/entity"
	"go.uber.org/zap"
)

// ChatSource is one retrieved decision handed to the chat model as context
type ChatSource struct {
	ID           string
	DocumentText string
}

type chatPromptData struct {
	Query   string
	History []entity.ChatTurn
	Hits    []ChatSource
}

// Chatbot answers free-text questions about stored decisions
type Chatbot struct {
	client  port.CompletionClient
	prompts *PromptConfig
	logger  *zap.Logger
}

// NewChatbot creates a new Chatbot
func NewChatbot(client port.CompletionClient, prompts *PromptConfig, logger *zap.Logger) *Chatbot {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chatbot{client: client, prompts: prompts, logger: logger}
}

// Answer asks the model to answer query using only the given sources
func (c *Chatbot) Answer(ctx context.Context, query string, history []entity.ChatTurn, sources []ChatSource) (string, error) {
	prompt := c.prompts.Chat
	userPrompt, err := renderTemplate(prompt.UserTemplate, chatPromptData{
		Query:   query,
		History: history,
		Hits:    sources,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render chat prompt: %w", err)
	}

	answer, err := c.client.Complete(ctx, port.CompletionRequest{
		System:      prompt.System,
		User:        userPrompt,
		Temperature: prompt.Temperature,
		MaxTokens:   prompt.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if strings.TrimSpace(answer) == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("Chat answer generated",
		zap.Int("sources", len(sources)),
		zap.Int("answer_length", len(answer)))

	return answer, nil
}
