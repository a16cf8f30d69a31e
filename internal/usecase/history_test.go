package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ReviewPublisher/internal/domain"
)

type memoryHistory struct {
	entries []domain.HistoryEntry
}

func (m *memoryHistory) Record(_ context.Context, e domain.HistoryEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func (m *memoryHistory) List(context.Context, string, int) ([]domain.HistoryEntry, error) {
	return m.entries, nil
}

func (m *memoryHistory) FindDuplicates(context.Context, []string) ([]domain.DuplicateKeyword, error) {
	return nil, nil
}

func (m *memoryHistory) Delete(context.Context, string) (bool, error) { return false, nil }

func (m *memoryHistory) Clear(context.Context) error { return nil }

func TestHistoryRecorder(t *testing.T) {
	t.Parallel()

	repo := &memoryHistory{}
	finished := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	recorder := NewHistoryRecorder(repo, nil)

	require.NoError(t, recorder.KeywordFinished(context.Background(), domain.ModelGemini, domain.KeywordResult{
		Keyword:    "a",
		Status:     domain.KeywordCompleted,
		FinishedAt: &finished,
		Result:     &domain.WorkflowResult{PublishResponse: &domain.PublishResponse{Link: "https://blog.example.com/a"}},
	}))
	require.NoError(t, recorder.KeywordFinished(context.Background(), domain.ModelClaude, domain.KeywordResult{
		Keyword: "b",
		Status:  domain.KeywordError,
		Error:   "no products found",
	}))
	require.NoError(t, recorder.KeywordFinished(context.Background(), domain.ModelClaude, domain.KeywordResult{
		Keyword: "c",
		Status:  domain.KeywordPending,
	}))

	require.Len(t, repo.entries, 2)
	ok, failed := repo.entries[0], repo.entries[1]

	assert.NotEmpty(t, ok.ID)
	assert.NotEqual(t, ok.ID, failed.ID)
	assert.Equal(t, domain.HistorySuccess, ok.Status)
	assert.Equal(t, domain.ModelGemini, ok.AIModel)
	assert.Equal(t, "https://blog.example.com/a", ok.PostURL)
	assert.Equal(t, finished, ok.ExecutedAt)

	assert.Equal(t, domain.HistoryError, failed.Status)
	assert.Equal(t, "no products found", failed.ErrorMessage)
	assert.Empty(t, failed.PostURL)
}
