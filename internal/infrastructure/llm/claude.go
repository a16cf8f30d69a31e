package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"ReviewPublisher/internal/domain"
	"ReviewPublisher/internal/ports"
)

const (
	defaultClaudeModel = "claude-sonnet-4-20250514"
	defaultMaxTokens   = 4096
)

// Config configures one generation provider.
type Config struct {
	APIKey    string
	Model     string
	MaxTokens int
	BaseURL   string
}

// ClaudeGenerator drafts posts through the Anthropic Messages API.
type ClaudeGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int
	apiKey    string
	logger    *slog.Logger
}

var _ ports.ContentGenerator = (*ClaudeGenerator)(nil)

// NewClaudeGenerator builds a generator from provider configuration. Extra
// request options are appended after the key and base URL.
func NewClaudeGenerator(cfg Config, logger *slog.Logger, opts ...option.RequestOption) *ClaudeGenerator {
	model := cfg.Model
	if model == "" {
		model = defaultClaudeModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	reqOpts = append(reqOpts, opts...)

	return &ClaudeGenerator{
		client:    anthropic.NewClient(reqOpts...),
		model:     model,
		maxTokens: maxTokens,
		apiKey:    cfg.APIKey,
		logger:    logger,
	}
}

// Generate drafts a post for the request.
func (g *ClaudeGenerator) Generate(ctx context.Context, req ports.GenerateRequest) (domain.BlogPost, error) {
	if g.apiKey == "" {
		return domain.BlogPost{}, &domain.APIError{Provider: "claude", Message: "api key is not configured"}
	}

	prompt := BuildPrompt(req)
	g.debug("requesting draft", "keyword", req.Keyword, "model", g.model, "products", len(req.Products))

	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(g.model),
		MaxTokens: int64(g.maxTokens),
		System:    []anthropic.TextBlockParam{{Text: SystemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return domain.BlogPost{}, &domain.APIError{Provider: "claude", Status: apiErr.StatusCode, Message: apiErr.Error()}
		}
		return domain.BlogPost{}, fmt.Errorf("claude messages: %w", err)
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return domain.BlogPost{}, &domain.APIError{Provider: "claude", Message: "response contained no text"}
	}

	post := ParseResponse(text.String(), req.Keyword, len(req.Products))
	return finalize(post, req), nil
}

func (g *ClaudeGenerator) debug(msg string, args ...any) {
	if g.logger == nil {
		return
	}
	g.logger.Debug(msg, args...)
}
