package domain

import "time"

// HistoryStatus is the recorded outcome of an executed keyword.
type HistoryStatus string

const (
	HistorySuccess HistoryStatus = "success"
	HistoryError   HistoryStatus = "error"
)

// HistoryEntry records one executed keyword.
type HistoryEntry struct {
	ID           string        `json:"id"`
	Keyword      string        `json:"keyword"`
	ExecutedAt   time.Time     `json:"executedAt"`
	Status       HistoryStatus `json:"status"`
	AIModel      AIModel       `json:"aiModel"`
	PostURL      string        `json:"postUrl,omitempty"`
	ErrorMessage string        `json:"errorMessage,omitempty"`
}

// DuplicateKeyword reports a keyword that was already published.
type DuplicateKeyword struct {
	Keyword        string    `json:"keyword"`
	LastExecutedAt time.Time `json:"lastExecutedAt"`
	PostURL        string    `json:"postUrl,omitempty"`
}
