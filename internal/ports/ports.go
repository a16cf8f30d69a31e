package ports

import (
	"context"
	"time"

	"ReviewPublisher/internal/domain"
)

// ProductSearcher pulls products for a keyword from the affiliate marketplace.
type ProductSearcher interface {
	Search(ctx context.Context, keyword string, limit int) ([]domain.Product, error)
}

// GenerateRequest carries everything a generation provider needs to draft a post.
type GenerateRequest struct {
	Keyword     string
	Products    []domain.Product
	PriceRanges *domain.PriceRangeInfo
}

// ContentGenerator drafts a review article through an LLM provider.
type ContentGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (domain.BlogPost, error)
}

// UploadRequest carries the products whose images should be hosted by the CMS.
type UploadRequest struct {
	Products []domain.Product
	Content  string
}

// ImageUploader moves product images into the CMS media library. Per-image
// failures are reported in the result; an error means the call itself failed.
type ImageUploader interface {
	UploadImages(ctx context.Context, req UploadRequest) (domain.UploadResult, error)
}

// PublishRequest is the final post handed to the CMS.
type PublishRequest struct {
	Post            domain.BlogPost
	Date            time.Time
	FeaturedMediaID int64
}

// Publisher creates (or schedules) a post in the CMS.
type Publisher interface {
	Publish(ctx context.Context, req PublishRequest) (domain.PublishResponse, error)
}

// HistoryRepository persists executed keywords for duplicate detection.
type HistoryRepository interface {
	Record(ctx context.Context, entry domain.HistoryEntry) error
	List(ctx context.Context, query string, limit int) ([]domain.HistoryEntry, error)
	FindDuplicates(ctx context.Context, keywords []string) ([]domain.DuplicateKeyword, error)
	Delete(ctx context.Context, id string) (bool, error)
	Clear(ctx context.Context) error
}

// ResultSink receives every keyword that reaches a terminal state.
type ResultSink interface {
	KeywordFinished(ctx context.Context, model domain.AIModel, result domain.KeywordResult) error
}

// Notifier streams batch digests to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when batches execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
