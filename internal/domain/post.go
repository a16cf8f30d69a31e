package domain

import "time"

// AIModel selects the generation provider.
type AIModel string

const (
	ModelClaude AIModel = "claude"
	ModelGemini AIModel = "gemini"
)

// Valid reports whether m names a known provider.
func (m AIModel) Valid() bool {
	return m == ModelClaude || m == ModelGemini
}

// DisplayName is the provider name used in progress messages.
func (m AIModel) DisplayName() string {
	switch m {
	case ModelClaude:
		return "Claude"
	case ModelGemini:
		return "Gemini"
	default:
		return string(m)
	}
}

// BlogPost is the drafted article returned by a generation provider.
type BlogPost struct {
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	FocusKeyword    string    `json:"focusKeyword"`
	MetaDescription string    `json:"metaDescription"`
	Keyword         string    `json:"keyword"`
	Products        []Product `json:"products,omitempty"`
}

// ImageFailureCode classifies a per-image upload failure.
type ImageFailureCode string

const (
	ImageFetchFailed  ImageFailureCode = "FETCH_FAILED"
	ImageInvalid      ImageFailureCode = "INVALID_IMAGE"
	ImageUploadFailed ImageFailureCode = "UPLOAD_FAILED"
	ImageTimeout      ImageFailureCode = "TIMEOUT"
	ImageNetworkError ImageFailureCode = "NETWORK_ERROR"
)

// UploadedImage links a product to the media item created for it.
type UploadedImage struct {
	ProductID string `json:"productId"`
	MediaID   int64  `json:"mediaId"`
	SourceURL string `json:"sourceUrl"`
}

// ImageFailure describes one image that could not be uploaded.
type ImageFailure struct {
	ProductID string           `json:"productId"`
	ImageURL  string           `json:"imageUrl"`
	Code      ImageFailureCode `json:"errorCode"`
	Message   string           `json:"errorMessage"`
}

// UploadStats counts per-image outcomes of an upload call.
type UploadStats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
}

// UploadResult is the partial-success outcome of an image upload call.
type UploadResult struct {
	FeaturedMediaID int64           `json:"featuredMediaId,omitempty"`
	UpdatedContent  string          `json:"updatedContent,omitempty"`
	Uploaded        []UploadedImage `json:"uploadedImages,omitempty"`
	Failures        []ImageFailure  `json:"failedImages,omitempty"`
	Stats           UploadStats     `json:"stats"`
}

// PublishResponse is what the CMS reports for a created post.
type PublishResponse struct {
	ID     int64     `json:"id"`
	Link   string    `json:"link"`
	Date   time.Time `json:"date"`
	Status string    `json:"status"`
	Title  string    `json:"title,omitempty"`
}
