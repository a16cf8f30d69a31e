package wordpress

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gabriel-vasile/mimetype"

	"ReviewPublisher/internal/content"
	"ReviewPublisher/internal/domain"
	"ReviewPublisher/internal/ports"
)

const (
	defaultFetchTimeout  = 30 * time.Second
	defaultFetchAttempts = 3
	defaultRetryInitial  = time.Second
	maxImageBytes        = 20 << 20
	maxSafeNameLength    = 20
)

var (
	allowedImageTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}
	unsafeNameChars   = regexp.MustCompile(`[^a-zA-Z0-9]`)

	// Coupang's CDN rejects requests that do not look like a browser.
	imageRequestHeaders = map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		"Accept":          "image/webp,image/apng,image/*,*/*;q=0.8",
		"Accept-Language": "ko-KR,ko;q=0.9,en-US;q=0.8,en;q=0.7",
		"Referer":         "https://www.coupang.com/",
	}
)

// imageError carries the failure code reported for one product image.
type imageError struct {
	code domain.ImageFailureCode
	err  error
}

func (e *imageError) Error() string { return string(e.code) + ": " + e.err.Error() }
func (e *imageError) Unwrap() error { return e.err }

// MediaUploader copies product images into the WordPress media library.
type MediaUploader struct {
	client *Client
	fetch  *http.Client
	sleep  func(ctx context.Context, d time.Duration) error
}

var _ ports.ImageUploader = (*MediaUploader)(nil)

// NewMediaUploader wraps a REST client. fetchClient downloads the source
// images; nil uses a default client.
func NewMediaUploader(client *Client, fetchClient *http.Client) *MediaUploader {
	if fetchClient == nil {
		fetchClient = &http.Client{}
	}
	return &MediaUploader{client: client, fetch: fetchClient, sleep: sleepCtx}
}

type mediaResponse struct {
	ID        int64  `json:"id"`
	SourceURL string `json:"source_url"`
}

type fetchedImage struct {
	data []byte
	mime *mimetype.MIME
}

// UploadImages uploads every product image in order. Per-image failures are
// collected; the first uploaded image becomes the featured media.
func (u *MediaUploader) UploadImages(ctx context.Context, req ports.UploadRequest) (domain.UploadResult, error) {
	if err := u.client.configured(); err != nil {
		return domain.UploadResult{}, err
	}

	result := domain.UploadResult{Stats: domain.UploadStats{Total: len(req.Products)}}
	replacements := make(map[string]string, len(req.Products))
	var failed []string

	for i, p := range req.Products {
		if err := ctx.Err(); err != nil {
			return domain.UploadResult{}, err
		}
		if i > 0 && u.client.cfg.UploadDelay > 0 {
			if err := u.sleep(ctx, u.client.cfg.UploadDelay); err != nil {
				return domain.UploadResult{}, err
			}
		}

		uploaded, err := u.uploadOne(ctx, i, p)
		if err != nil {
			code := domain.ImageUploadFailed
			var ie *imageError
			if errors.As(err, &ie) {
				code = ie.code
			}
			u.client.warn("image upload failed", "product_id", p.ID, "code", code, "error", err)
			result.Failures = append(result.Failures, domain.ImageFailure{
				ProductID: p.ID,
				ImageURL:  p.ImageURL,
				Code:      code,
				Message:   err.Error(),
			})
			result.Stats.Failed++
			if p.ImageURL != "" {
				failed = append(failed, p.ImageURL)
			}
			continue
		}

		if result.FeaturedMediaID == 0 {
			result.FeaturedMediaID = uploaded.MediaID
		}
		result.Uploaded = append(result.Uploaded, uploaded)
		result.Stats.Success++
		replacements[p.ImageURL] = uploaded.SourceURL
	}

	updated, err := content.ReplaceImageURLs(req.Content, replacements)
	if err != nil {
		return domain.UploadResult{}, fmt.Errorf("rewrite image urls: %w", err)
	}
	if len(failed) > 0 {
		if updated, err = content.RemoveImages(updated, failed); err != nil {
			return domain.UploadResult{}, fmt.Errorf("remove failed images: %w", err)
		}
	}
	result.UpdatedContent = updated

	u.client.debug("images uploaded", "success", result.Stats.Success, "failed", result.Stats.Failed)
	return result, nil
}

func (u *MediaUploader) uploadOne(ctx context.Context, index int, p domain.Product) (domain.UploadedImage, error) {
	if p.ImageURL == "" {
		return domain.UploadedImage{}, &imageError{code: domain.ImageFetchFailed, err: errors.New("product has no image url")}
	}

	img, err := u.fetchWithRetry(ctx, p.ImageURL)
	if err != nil {
		return domain.UploadedImage{}, err
	}

	filename := ImageFilename(p.Name, index, img.mime.Extension(), u.client.now())
	var media mediaResponse
	err = u.client.do(ctx, http.MethodPost, "/media", img.mime.String(), bytes.NewReader(img.data),
		map[string]string{"Content-Disposition": fmt.Sprintf(`attachment; filename="%s"`, filename)}, &media)
	if err != nil {
		return domain.UploadedImage{}, &imageError{code: domain.ImageUploadFailed, err: err}
	}

	if p.Name != "" {
		path := "/media/" + strconv.FormatInt(media.ID, 10)
		if err := u.client.postJSON(ctx, path, map[string]string{"alt_text": p.Name}, nil); err != nil {
			u.client.warn("could not set image alt text", "media_id", media.ID, "error", err)
		}
	}

	return domain.UploadedImage{ProductID: p.ID, MediaID: media.ID, SourceURL: media.SourceURL}, nil
}

func (u *MediaUploader) fetchWithRetry(ctx context.Context, imageURL string) (fetchedImage, error) {
	attempts := u.client.cfg.ImageFetchAttempts
	if attempts <= 0 {
		attempts = defaultFetchAttempts
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = u.client.cfg.RetryInitial
	if policy.InitialInterval <= 0 {
		policy.InitialInterval = defaultRetryInitial
	}
	policy.Multiplier = 2
	policy.RandomizationFactor = 0

	operation := func() (fetchedImage, error) {
		img, err := u.fetchImage(ctx, imageURL)
		if err != nil {
			var ie *imageError
			if errors.As(err, &ie) && ie.code == domain.ImageInvalid {
				return fetchedImage{}, backoff.Permanent(err)
			}
			u.client.debug("image fetch failed, retrying", "url", imageURL, "error", err)
		}
		return img, err
	}

	// One initial attempt plus the configured retries.
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(attempts+1)),
	)
}

func (u *MediaUploader) fetchImage(ctx context.Context, imageURL string) (fetchedImage, error) {
	timeout := u.client.cfg.ImageFetchTimeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return fetchedImage{}, &imageError{code: domain.ImageFetchFailed, err: err}
	}
	for k, v := range imageRequestHeaders {
		req.Header.Set(k, v)
	}

	resp, err := u.fetch.Do(req)
	if err != nil {
		return fetchedImage{}, &imageError{code: classifyFetchError(err), err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fetchedImage{}, &imageError{code: domain.ImageFetchFailed, err: fmt.Errorf("image source returned %s", resp.Status)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return fetchedImage{}, &imageError{code: classifyFetchError(err), err: err}
	}

	mime := mimetype.Detect(data)
	if !mimetype.EqualsAny(mime.String(), allowedImageTypes...) {
		return fetchedImage{}, &imageError{code: domain.ImageInvalid, err: fmt.Errorf("unsupported image data (%s)", mime.String())}
	}
	return fetchedImage{data: data, mime: mime}, nil
}

func classifyFetchError(err error) domain.ImageFailureCode {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ImageTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return domain.ImageTimeout
		}
		return domain.ImageNetworkError
	}
	return domain.ImageFetchFailed
}

// ImageFilename builds the ASCII media filename <safeName>-<n>-<unixMillis><ext>.
func ImageFilename(productName string, index int, ext string, at time.Time) string {
	safe := unsafeNameChars.ReplaceAllString(productName, "")
	if len(safe) > maxSafeNameLength {
		safe = safe[:maxSafeNameLength]
	}
	if safe == "" {
		safe = "product"
	}
	if ext == "" || ext == ".jpeg" {
		ext = ".jpg"
	}
	return fmt.Sprintf("%s-%d-%d%s", safe, index+1, at.UnixMilli(), ext)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
