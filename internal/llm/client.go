// Package llm wraps the OpenAI chat-completions API behind the small
// interface the digest pipeline consumes.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type Client struct {
	client openai.Client
	model  string
	logger *slog.Logger
}

// NewClient builds a chat-completions client. baseURL is optional and exists
// for test servers and compatible proxies.
func NewClient(apiKey, model, baseURL string, logger *slog.Logger) *Client {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{
		client: openai.NewClient(opts...),
		model:  model,
		logger: logger,
	}
}

// Complete sends one system+user exchange and returns the trimmed text reply.
func (c *Client) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		MaxTokens: openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in completion response")
	}

	choice := resp.Choices[0]
	c.logger.Info("completion finished",
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"finish_reason", choice.FinishReason,
	)
	if choice.FinishReason == "length" {
		c.logger.Warn("completion truncated by max_tokens", "max_tokens", maxTokens)
	}

	text := strings.TrimSpace(choice.Message.Content)
	if text == "" {
		return "", fmt.Errorf("no content in completion response")
	}
	return text, nil
}

var codeFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// CompleteJSON completes and strips a surrounding markdown code fence, since
// models wrap JSON in fences regardless of instructions. The result is not
// validated here; callers unmarshal and decide how to degrade.
func (c *Client) CompleteJSON(ctx context.Context, system, user string, maxTokens int) (string, error) {
	text, err := c.Complete(ctx, system, user, maxTokens)
	if err != nil {
		return "", err
	}
	if m := codeFence.FindStringSubmatch(text); m != nil {
		return m[1], nil
	}
	return text, nil
}
