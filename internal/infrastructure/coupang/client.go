package coupang

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"ReviewPublisher/internal/domain"
	"ReviewPublisher/internal/ports"
)

const (
	providerName     = "coupang"
	defaultBaseURL   = "https://api-gateway.coupang.com"
	searchPath       = "/v2/providers/affiliate_open_api/apis/openapi/v1/products/search"
	signedDateFmt    = "060102T150405Z"
	maxSearchLimit   = 10
	defaultPerMinute = 50
)

// Config carries the affiliate API credentials.
type Config struct {
	BaseURL           string
	AccessKey         string
	SecretKey         string
	PartnerID         string
	RequestsPerMinute float64
}

// Client searches the affiliate product catalogue.
type Client struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
	now     func() time.Time
}

var _ ports.ProductSearcher = (*Client)(nil)

// NewClient builds a rate-limited search client.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	perMinute := cfg.RequestsPerMinute
	if perMinute <= 0 {
		perMinute = defaultPerMinute
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		cfg:     cfg,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Every(time.Duration(float64(time.Minute)/perMinute)), 1),
		logger:  logger,
		now:     time.Now,
	}
}

type searchResponse struct {
	RCode    string `json:"rCode"`
	RMessage string `json:"rMessage"`
	Data     struct {
		ProductData []rawProduct `json:"productData"`
	} `json:"data"`
}

type rawProduct struct {
	ProductID    any    `json:"productId"`
	ProductName  string `json:"productName"`
	ProductPrice any    `json:"productPrice"`
	ProductImage string `json:"productImage"`
	ProductURL   string `json:"productUrl"`
	Rating       any    `json:"rating"`
	ReviewCount  any    `json:"reviewCount"`
	IsRocket     bool   `json:"isRocket"`
	CategoryName string `json:"categoryName"`
}

// Search returns up to limit products for keyword.
func (c *Client) Search(ctx context.Context, keyword string, limit int) ([]domain.Product, error) {
	if c.cfg.AccessKey == "" || c.cfg.SecretKey == "" {
		return nil, &domain.APIError{Provider: providerName, Message: "access and secret keys are not configured"}
	}
	if limit <= 0 || limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	query := url.Values{}
	query.Set("keyword", keyword)
	query.Set("limit", strconv.Itoa(limit))
	if c.cfg.PartnerID != "" {
		query.Set("subId", c.cfg.PartnerID)
	}
	rawQuery := query.Encode()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.cfg.BaseURL, "/")+searchPath+"?"+rawQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", Authorization(http.MethodGet, searchPath, rawQuery, c.cfg.AccessKey, c.cfg.SecretKey, c.now()))
	req.Header.Set("Content-Type", "application/json")

	c.debug("searching products", "keyword", keyword, "limit", limit)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	var payload searchResponse
	decodeErr := json.Unmarshal(body, &payload)

	if resp.StatusCode >= http.StatusBadRequest {
		msg := strings.TrimSpace(payload.RMessage)
		if msg == "" {
			msg = strings.TrimSpace(string(body))
		}
		return nil, &domain.APIError{Provider: providerName, Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode search response: %w", decodeErr)
	}
	if payload.RCode != "0" {
		return nil, &domain.APIError{Provider: providerName, Status: resp.StatusCode, Message: fmt.Sprintf("rCode %s: %s", payload.RCode, payload.RMessage)}
	}

	products := make([]domain.Product, 0, len(payload.Data.ProductData))
	for _, raw := range payload.Data.ProductData {
		products = append(products, raw.normalize())
	}
	c.debug("products received", "keyword", keyword, "count", len(products))
	return products, nil
}

// Authorization builds the CEA HMAC header: the signature covers
// signed-date + method + path + query.
func Authorization(method, path, query, accessKey, secretKey string, at time.Time) string {
	signedDate := at.UTC().Format(signedDateFmt)
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(signedDate + method + path + query))
	signature := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("CEA algorithm=HmacSHA256, access-key=%s, signed-date=%s, signature=%s", accessKey, signedDate, signature)
}

func (r rawProduct) normalize() domain.Product {
	return domain.Product{
		ID:           asString(r.ProductID),
		Name:         r.ProductName,
		Price:        int(asFloat(r.ProductPrice)),
		ImageURL:     r.ProductImage,
		URL:          r.ProductURL,
		Rating:       asFloat(r.Rating),
		ReviewCount:  int(asFloat(r.ReviewCount)),
		IsRocket:     r.IsRocket,
		CategoryName: r.CategoryName,
	}
}

func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger == nil {
		return
	}
	c.logger.Debug(msg, args...)
}
