package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ReviewPublisher/internal/content"
	"ReviewPublisher/internal/domain"
	"ReviewPublisher/internal/ports"
	"ReviewPublisher/internal/schedule"
	"ReviewPublisher/internal/selector"
)

// MaxSearchLimit is the largest page the affiliate search returns.
const MaxSearchLimit = 10

// ProgressFunc observes workflow snapshots. It is called synchronously on the
// run's goroutine, so it must return quickly and must not mutate the snapshot.
type ProgressFunc func(domain.WorkflowState)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Searcher   ports.ProductSearcher
	Generators map[domain.AIModel]ports.ContentGenerator
	Uploader   ports.ImageUploader
	Publisher  ports.Publisher
	Logger     *slog.Logger
	Now        func() time.Time
}

// WorkflowRequest configures one keyword pipeline.
type WorkflowRequest struct {
	Keyword      string
	ProductCount int
	SearchLimit  int
	Model        domain.AIModel
	Selection    selector.Options
	Settings     domain.PublishSettings
	OnProgress   ProgressFunc
}

// Pipeline runs search, selection, generation, image upload and publish for
// one keyword.
type Pipeline struct {
	searcher   ports.ProductSearcher
	generators map[domain.AIModel]ports.ContentGenerator
	uploader   ports.ImageUploader
	publisher  ports.Publisher
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		searcher:   deps.Searcher,
		generators: deps.Generators,
		uploader:   deps.Uploader,
		publisher:  deps.Publisher,
		logger:     deps.Logger,
		now:        now,
	}
}

type run struct {
	state    domain.WorkflowState
	progress ProgressFunc
}

func (r *run) notify(fn func(*domain.WorkflowState)) {
	r.state = r.state.With(fn)
	if r.progress != nil {
		r.progress(r.state)
	}
}

// Execute runs the five pipeline steps in order. Search, generation and
// publish failures end the run; selection and image upload never do. The
// progress callback receives one snapshot per step and one on failure; the
// terminal snapshot is returned in the result.
func (p *Pipeline) Execute(ctx context.Context, req WorkflowRequest) domain.WorkflowResult {
	r := &run{state: domain.InitialState(), progress: req.OnProgress}
	keyword := strings.TrimSpace(req.Keyword)
	log := p.log().With("keyword", keyword)

	fail := func(err *domain.Error) domain.WorkflowResult {
		log.Error("workflow failed", "step", r.state.CurrentStep, "kind", err.Kind, "error", err.Message)
		r.notify(func(s *domain.WorkflowState) {
			s.Status = domain.StatusError
			s.Message = err.Message
			s.Error = err.Message
			s.ErrorKind = err.Kind
		})
		return domain.WorkflowResult{
			Success:  false,
			Keyword:  keyword,
			Products: r.state.Products,
			Post:     r.state.Post,
			Error:    err.Message,
			Err:      err,
			State:    r.state,
		}
	}

	if keyword == "" {
		return fail(domain.NewError(domain.KindValidationFailed, "keyword is required", nil))
	}
	model := req.Model
	if model == "" {
		model = domain.ModelClaude
	}
	generator := p.generators[model]
	if p.searcher == nil || generator == nil || p.publisher == nil {
		return fail(domain.NewError(domain.KindValidationFailed, fmt.Sprintf("pipeline is missing collaborators for model %q", model), nil))
	}

	cancelled := func() (domain.WorkflowResult, bool) {
		if err := ctx.Err(); err != nil {
			return fail(domain.NewError(domain.KindCancelled, "cancelled", err)), true
		}
		return domain.WorkflowResult{}, false
	}
	if res, stop := cancelled(); stop {
		return res
	}

	// Step 1: search.
	r.notify(func(s *domain.WorkflowState) {
		s.Status = domain.StatusRunning
		s.CurrentStep = domain.StepSearch
		s.Message = fmt.Sprintf("Searching products for %q...", keyword)
	})
	found, err := p.searcher.Search(ctx, keyword, searchLimit(req.SearchLimit))
	if err != nil {
		return fail(stepError(ctx, domain.KindSearchFailed, "product search failed", err))
	}
	if len(found) == 0 {
		e := domain.NewError(domain.KindSearchFailed, "no products found", nil)
		e.Code = domain.CodeSearchEmpty
		return fail(e)
	}
	log.Info("products found", "count", len(found))

	// Step 2: selection.
	opts := req.Selection
	if req.ProductCount > 0 {
		opts.TargetCount = req.ProductCount
	}
	selected := selector.SelectProducts(found, opts)
	ranges := selector.CalculatePriceRanges(selected)
	r.notify(func(s *domain.WorkflowState) {
		s.CurrentStep = domain.StepSelect
		s.Message = fmt.Sprintf("Selected %d of %d products.", len(selected), len(found))
		s.Products = selected
	})

	if res, stop := cancelled(); stop {
		return res
	}

	// Step 3: generation.
	r.notify(func(s *domain.WorkflowState) {
		s.CurrentStep = domain.StepGenerate
		s.Message = fmt.Sprintf("Drafting the post with %s...", model.DisplayName())
	})
	post, err := generator.Generate(ctx, ports.GenerateRequest{
		Keyword:     keyword,
		Products:    selected,
		PriceRanges: ranges,
	})
	if err != nil {
		return fail(stepError(ctx, domain.KindGenerationFailed, "content generation failed", err))
	}
	post.Keyword = keyword
	post.Products = selected
	post.Content = content.AppendComparisonTable(post.Content, selected)
	log.Info("post drafted", "title", post.Title, "model", model)

	if res, stop := cancelled(); stop {
		return res
	}

	// Step 4: image upload.
	r.notify(func(s *domain.WorkflowState) {
		s.CurrentStep = domain.StepUpload
		s.Message = "Uploading product images..."
		s.Post = snapshotPost(post)
	})
	var (
		featured int64
		stats    *domain.UploadStats
		warning  string
	)
	post.Content, featured, stats, warning = p.uploadImages(ctx, log, selected, post.Content)

	if res, stop := cancelled(); stop {
		return res
	}

	// Step 5: publish.
	slots := schedule.GenerateSlots(1, req.Settings, p.now())
	scheduled := slots[0].Date
	r.notify(func(s *domain.WorkflowState) {
		s.CurrentStep = domain.StepPublish
		s.Message = fmt.Sprintf("Publishing for %s...", scheduled.Format("2006-01-02 15:04"))
		s.Post = snapshotPost(post)
		s.Warning = warning
	})
	resp, err := p.publisher.Publish(ctx, ports.PublishRequest{
		Post:            post,
		Date:            scheduled,
		FeaturedMediaID: featured,
	})
	if err != nil {
		return fail(stepError(ctx, domain.KindPublishFailed, "publish failed", err))
	}
	log.Info("post published", "post_id", resp.ID, "link", resp.Link, "scheduled", scheduled)

	r.state = r.state.With(func(s *domain.WorkflowState) {
		s.Status = domain.StatusCompleted
		s.Message = "Workflow completed."
	})

	return domain.WorkflowResult{
		Success:         true,
		Keyword:         keyword,
		Products:        selected,
		Post:            snapshotPost(post),
		PublishResponse: &resp,
		ScheduledDate:   scheduled,
		Upload:          stats,
		Warning:         warning,
		State:           r.state,
	}
}

// uploadImages never fails the run: a failed call strips every external image
// and per-image failures are removed from the content.
func (p *Pipeline) uploadImages(ctx context.Context, log *slog.Logger, products []domain.Product, body string) (string, int64, *domain.UploadStats, string) {
	if p.uploader == nil {
		return stripOrKeep(log, body), 0, nil, "image upload is not configured; external images were removed"
	}

	result, err := p.uploader.UploadImages(ctx, ports.UploadRequest{Products: products, Content: body})
	if err != nil {
		degraded := domain.NewError(domain.KindUploadDegraded, "image upload unavailable: "+err.Error(), err)
		log.Warn("image upload failed, stripping external images", "error", degraded)
		return stripOrKeep(log, body), 0, nil, degraded.Message
	}

	updated := body
	if result.UpdatedContent != "" {
		updated = result.UpdatedContent
	}

	if len(result.Failures) > 0 {
		failed := make([]string, 0, len(result.Failures))
		for _, f := range result.Failures {
			failed = append(failed, f.ImageURL)
		}
		if cleaned, rmErr := content.RemoveImages(updated, failed); rmErr != nil {
			log.Warn("could not remove failed images", "error", rmErr)
		} else {
			updated = cleaned
		}
	}

	stats := result.Stats
	var warning string
	if stats.Failed > 0 {
		warning = fmt.Sprintf("%d of %d images failed to upload and were removed", stats.Failed, stats.Total)
		log.Warn("image upload degraded", "success", stats.Success, "failed", stats.Failed)
	}
	return updated, result.FeaturedMediaID, &stats, warning
}

func (p *Pipeline) log() *slog.Logger {
	if p.logger != nil {
		return p.logger
	}
	return slog.New(slog.DiscardHandler)
}

func stripOrKeep(log *slog.Logger, body string) string {
	stripped, err := content.StripExternalImages(body)
	if err != nil {
		log.Warn("could not strip external images", "error", err)
		return body
	}
	return stripped
}

func stepError(ctx context.Context, kind domain.ErrorKind, message string, cause error) *domain.Error {
	if ctx.Err() != nil || errors.Is(cause, context.Canceled) {
		return domain.NewError(domain.KindCancelled, "cancelled", cause)
	}
	return domain.NewError(kind, message+": "+cause.Error(), cause)
}

func searchLimit(limit int) int {
	if limit <= 0 || limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}

func snapshotPost(post domain.BlogPost) *domain.BlogPost {
	cp := post
	return &cp
}

// IsCancelled reports whether err is a cooperative cancellation.
func IsCancelled(err error) bool {
	return domain.IsKind(err, domain.KindCancelled) || errors.Is(err, context.Canceled)
}
