package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"ReviewPublisher/internal/domain"
	"ReviewPublisher/internal/ports"
)

const (
	historyTable     = "keyword_history"
	defaultListLimit = 100
)

const schemaDDL = `CREATE TABLE IF NOT EXISTS keyword_history (
    id            TEXT PRIMARY KEY,
    keyword       TEXT NOT NULL,
    executed_at   TIMESTAMPTZ NOT NULL,
    status        TEXT NOT NULL,
    ai_model      TEXT NOT NULL,
    post_url      TEXT NOT NULL DEFAULT '',
    error_message TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS keyword_history_keyword_idx ON keyword_history (keyword, executed_at DESC)`

var historyColumns = []string{"id", "keyword", "executed_at", "status", "ai_model", "post_url", "error_message"}

// HistoryRepository stores executed keywords in Postgres.
type HistoryRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.HistoryRepository = (*HistoryRepository)(nil)

// NewHistoryRepository wires a sql.DB implementation.
func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// EnsureSchema creates the history table when it is missing.
func (r *HistoryRepository) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("create history schema: %w", err)
	}
	return nil
}

// Record inserts one history entry.
func (r *HistoryRepository) Record(ctx context.Context, entry domain.HistoryEntry) error {
	if r.db == nil {
		return nil
	}

	query, args, err := r.sb.Insert(historyTable).
		Columns(historyColumns...).
		Values(entry.ID, entry.Keyword, entry.ExecutedAt, string(entry.Status), string(entry.AIModel), entry.PostURL, entry.ErrorMessage).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// List returns entries newest first. A non-empty query filters keywords by
// case-insensitive substring.
func (r *HistoryRepository) List(ctx context.Context, query string, limit int) ([]domain.HistoryEntry, error) {
	if r.db == nil {
		return []domain.HistoryEntry{}, nil
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	builder := r.sb.Select(historyColumns...).
		From(historyTable).
		OrderBy("executed_at DESC").
		Limit(uint64(limit))
	if q := strings.TrimSpace(query); q != "" {
		builder = builder.Where(sq.ILike{"keyword": "%" + escapeLike(q) + "%"})
	}

	sqlText, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	entries := make([]domain.HistoryEntry, 0)
	for rows.Next() {
		var (
			e      domain.HistoryEntry
			status string
			model  string
		)
		if err := rows.Scan(&e.ID, &e.Keyword, &e.ExecutedAt, &status, &model, &e.PostURL, &e.ErrorMessage); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Status = domain.HistoryStatus(status)
		e.AIModel = domain.AIModel(model)
		entries = append(entries, e)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}
	return entries, nil
}

// FindDuplicates reports which of keywords were already published
// successfully, with the most recent execution for each.
func (r *HistoryRepository) FindDuplicates(ctx context.Context, keywords []string) ([]domain.DuplicateKeyword, error) {
	cleaned := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			cleaned = append(cleaned, kw)
		}
	}
	if r.db == nil || len(cleaned) == 0 {
		return []domain.DuplicateKeyword{}, nil
	}

	sqlText, args, err := r.sb.Select("keyword", "executed_at", "post_url").
		Options("DISTINCT ON (keyword)").
		From(historyTable).
		Where(sq.Eq{"status": string(domain.HistorySuccess)}).
		Where(sq.Expr("keyword = ANY(?)", pq.StringArray(cleaned))).
		OrderBy("keyword", "executed_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build duplicates: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query duplicates: %w", err)
	}

	found := make([]domain.DuplicateKeyword, 0)
	for rows.Next() {
		var d domain.DuplicateKeyword
		if err := rows.Scan(&d.Keyword, &d.LastExecutedAt, &d.PostURL); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan duplicate: %w", err)
		}
		found = append(found, d)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}
	return found, nil
}

// Delete removes one entry and reports whether it existed.
func (r *HistoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	if r.db == nil {
		return false, nil
	}

	sqlText, args, err := r.sb.Delete(historyTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete: %w", err)
	}

	res, err := r.db.ExecContext(ctx, sqlText, args...)
	if err != nil {
		return false, fmt.Errorf("delete history: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Clear removes every entry.
func (r *HistoryRepository) Clear(ctx context.Context) error {
	if r.db == nil {
		return nil
	}

	sqlText, args, err := r.sb.Delete(historyTable).ToSql()
	if err != nil {
		return fmt.Errorf("build clear: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, sqlText, args...); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
