package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ReviewPublisher/internal/domain"
	"ReviewPublisher/internal/ports"
)

const (
	defaultGeminiModel   = "gemini-2.5-flash"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	Temperature     float32 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
}

type geminiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GeminiGenerator drafts posts through the Gemini generateContent REST API.
type GeminiGenerator struct {
	baseURL    string
	model      string
	apiKey     string
	maxTokens  int
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.ContentGenerator = (*GeminiGenerator)(nil)

// NewGeminiGenerator builds a generator from provider configuration.
func NewGeminiGenerator(cfg Config, httpClient *http.Client, logger *slog.Logger) *GeminiGenerator {
	g := &GeminiGenerator{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		apiKey:     cfg.APIKey,
		maxTokens:  cfg.MaxTokens,
		httpClient: httpClient,
		logger:     logger,
	}
	if g.baseURL == "" {
		g.baseURL = defaultGeminiBaseURL
	}
	if g.model == "" {
		g.model = defaultGeminiModel
	}
	if g.maxTokens <= 0 {
		g.maxTokens = defaultMaxTokens
	}
	if g.httpClient == nil {
		g.httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	return g
}

// Generate drafts a post for the request.
func (g *GeminiGenerator) Generate(ctx context.Context, req ports.GenerateRequest) (domain.BlogPost, error) {
	if g.apiKey == "" {
		return domain.BlogPost{}, &domain.APIError{Provider: "gemini", Message: "api key is not configured"}
	}

	body, err := json.Marshal(geminiRequest{
		Contents:          []geminiContent{{Role: "user", Parts: []geminiPart{{Text: BuildPrompt(req)}}}},
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: SystemPrompt}}},
		GenerationConfig:  &geminiGenerationConfig{Temperature: 0.7, MaxOutputTokens: g.maxTokens},
	})
	if err != nil {
		return domain.BlogPost{}, fmt.Errorf("marshal gemini payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, url.PathEscape(g.model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.BlogPost{}, fmt.Errorf("new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	g.debug("requesting draft", "keyword", req.Keyword, "model", g.model, "products", len(req.Products))

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return domain.BlogPost{}, fmt.Errorf("gemini generate: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return domain.BlogPost{}, fmt.Errorf("read gemini response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr geminiError
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return domain.BlogPost{}, &domain.APIError{Provider: "gemini", Status: resp.StatusCode, Message: msg}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return domain.BlogPost{}, fmt.Errorf("decode gemini response: %w", err)
	}

	var text strings.Builder
	for _, c := range parsed.Candidates {
		for _, p := range c.Content.Parts {
			text.WriteString(p.Text)
		}
		if text.Len() > 0 {
			break
		}
	}
	if text.Len() == 0 {
		return domain.BlogPost{}, &domain.APIError{Provider: "gemini", Status: resp.StatusCode, Message: "response contained no text"}
	}

	post := ParseResponse(text.String(), req.Keyword, len(req.Products))
	return finalize(post, req), nil
}

func (g *GeminiGenerator) debug(msg string, args ...any) {
	if g.logger == nil {
		return
	}
	g.logger.Debug(msg, args...)
}
