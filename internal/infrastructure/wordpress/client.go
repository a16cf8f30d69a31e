package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ReviewPublisher/internal/domain"
)

const (
	providerName      = "wordpress"
	apiPrefix         = "/wp-json/wp/v2"
	defaultPerMinute  = 60
	maxErrorBodyBytes = 2048
)

// Config holds CMS credentials and upload pacing.
type Config struct {
	URL                string
	Username           string
	AppPassword        string
	RequestsPerMinute  float64
	UploadDelay        time.Duration
	ImageFetchTimeout  time.Duration
	ImageFetchAttempts int
	RetryInitial       time.Duration
}

// Client is the authenticated REST client shared by the publisher and the
// media uploader.
type Client struct {
	cfg     Config
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	now     func() time.Time
}

// NewClient builds a rate-limited client for the site at cfg.URL.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = defaultPerMinute
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: time.Minute}
	}
	return &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Every(time.Duration(float64(time.Minute)/perMinute)), 5),
		logger:  logger,
		now:     time.Now,
	}
}

func (c *Client) configured() error {
	if c.baseURL == "" || c.cfg.Username == "" || c.cfg.AppPassword == "" {
		return &domain.APIError{Provider: providerName, Message: "site url, username and application password are required"}
	}
	return nil
}

// do sends an authenticated request and decodes a JSON response into out.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, headers map[string]string, out any) error {
	if err := c.configured(); err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.AppPassword)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return apiError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", path, err)
	}
	return c.do(ctx, http.MethodPost, path, "application/json", bytes.NewReader(raw), nil, out)
}

func apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	var payload struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &payload) == nil && payload.Message != "" {
		msg = payload.Message
		if payload.Code != "" {
			msg = payload.Code + ": " + msg
		}
	}
	if msg == "" {
		msg = resp.Status
	}
	return &domain.APIError{Provider: providerName, Status: resp.StatusCode, Message: msg}
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(msg, args...)
}

func (c *Client) warn(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(msg, args...)
}
