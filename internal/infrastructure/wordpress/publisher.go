package wordpress

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"ReviewPublisher/internal/domain"
	"ReviewPublisher/internal/ports"
)

const (
	statusFuture  = "future"
	statusPublish = "publish"
	wpDateLayout  = "2006-01-02T15:04:05"
)

// Publisher creates posts through the WordPress REST API.
type Publisher struct {
	client *Client
}

var _ ports.Publisher = (*Publisher)(nil)

// NewPublisher wraps a REST client.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

type postPayload struct {
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	Status        string   `json:"status"`
	Date          string   `json:"date"`
	FeaturedMedia int64    `json:"featured_media,omitempty"`
	Meta          postMeta `json:"meta"`
}

type postMeta struct {
	FocusKeyword string `json:"rank_math_focus_keyword"`
	Description  string `json:"rank_math_description"`
}

type postResponse struct {
	ID      int64  `json:"id"`
	Link    string `json:"link"`
	Status  string `json:"status"`
	Date    string `json:"date"`
	DateGMT string `json:"date_gmt"`
	Title   struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
}

// Publish creates the post, scheduled when its date lies in the future.
func (p *Publisher) Publish(ctx context.Context, req ports.PublishRequest) (domain.PublishResponse, error) {
	status := statusPublish
	if req.Date.After(p.client.now()) {
		status = statusFuture
	}

	payload := postPayload{
		Title:         req.Post.Title,
		Content:       req.Post.Content,
		Status:        status,
		Date:          req.Date.Format(time.RFC3339),
		FeaturedMedia: req.FeaturedMediaID,
		Meta: postMeta{
			FocusKeyword: req.Post.FocusKeyword,
			Description:  req.Post.MetaDescription,
		},
	}

	var resp postResponse
	if err := p.client.postJSON(ctx, "/posts", payload, &resp); err != nil {
		return domain.PublishResponse{}, fmt.Errorf("create post: %w", err)
	}
	p.client.debug("post created", "post_id", resp.ID, "status", resp.Status, "link", resp.Link)

	title := resp.Title.Rendered
	if title == "" {
		title = req.Post.Title
	}
	return domain.PublishResponse{
		ID:     resp.ID,
		Link:   resp.Link,
		Date:   resp.date(req.Date),
		Status: resp.Status,
		Title:  title,
	}, nil
}

// TestConnection checks the credentials against the current-user endpoint.
func (p *Publisher) TestConnection(ctx context.Context) error {
	var me struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	}
	if err := p.client.do(ctx, http.MethodGet, "/users/me", "", nil, nil, &me); err != nil {
		return fmt.Errorf("wordpress connection test: %w", err)
	}
	p.client.debug("wordpress connection ok", "user", me.Name)
	return nil
}

func (r postResponse) date(fallback time.Time) time.Time {
	if t, err := time.ParseInLocation(wpDateLayout, r.DateGMT, time.UTC); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, r.Date); err == nil {
		return t
	}
	return fallback
}
