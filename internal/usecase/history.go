package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ReviewPublisher/internal/domain"
	"ReviewPublisher/internal/ports"
)

// HistoryRecorder stores every finished keyword in the history repository.
type HistoryRecorder struct {
	repo ports.HistoryRepository
	now  func() time.Time
}

var _ ports.ResultSink = (*HistoryRecorder)(nil)

// NewHistoryRecorder wraps a repository as a runner result sink.
func NewHistoryRecorder(repo ports.HistoryRepository, now func() time.Time) *HistoryRecorder {
	if now == nil {
		now = time.Now
	}
	return &HistoryRecorder{repo: repo, now: now}
}

// KeywordFinished records the keyword outcome.
func (h *HistoryRecorder) KeywordFinished(ctx context.Context, model domain.AIModel, result domain.KeywordResult) error {
	if h.repo == nil || !result.Status.Terminal() {
		return nil
	}

	executedAt := h.now()
	if result.FinishedAt != nil {
		executedAt = *result.FinishedAt
	}

	entry := domain.HistoryEntry{
		ID:         uuid.NewString(),
		Keyword:    result.Keyword,
		ExecutedAt: executedAt,
		AIModel:    model,
	}
	if result.Status == domain.KeywordCompleted {
		entry.Status = domain.HistorySuccess
		if result.Result != nil && result.Result.PublishResponse != nil {
			entry.PostURL = result.Result.PublishResponse.Link
		}
	} else {
		entry.Status = domain.HistoryError
		entry.ErrorMessage = result.Error
	}

	if err := h.repo.Record(ctx, entry); err != nil {
		return fmt.Errorf("record history for %q: %w", result.Keyword, err)
	}
	return nil
}
