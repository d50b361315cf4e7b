package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"newspaper-pipeline/internal/observability"
	"newspaper-pipeline/internal/storage"
)

const schema = `
	CREATE TABLE IF NOT EXISTS articles (
		id             TEXT PRIMARY KEY,
		body           TEXT NOT NULL,
		host           TEXT NOT NULL,
		title          TEXT NOT NULL,
		newspaper_uid  TEXT NOT NULL,
		n_tokens_body  INTEGER NOT NULL,
		n_tokens_title INTEGER NOT NULL,
		url            TEXT NOT NULL UNIQUE
	)
`

const insertArticle = `
	INSERT OR IGNORE INTO articles
		(id, body, host, title, newspaper_uid, n_tokens_body, n_tokens_title, url)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	batchSize      int
	logger         *observability.Logger
}

// NewRepository открывает (или создаёт) файл БД и таблицу articles
func NewRepository(dsn string, commandTimeout time.Duration, batchSize int, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// один писатель, иначе SQLITE_BUSY
	db.SetMaxOpenConns(1)

	repo := &Repository{
		db:             db,
		commandTimeout: commandTimeout,
		batchSize:      batchSize,
		logger:         logger,
	}

	if err := repo.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return repo, nil
}

func (r *Repository) ensureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveArticles вставляет статьи пачками, каждая пачка в своей транзакции.
// Уже существующие id пропускаются.
func (r *Repository) SaveArticles(ctx context.Context, articles []storage.Article) (int, error) {
	inserted := 0
	for i, batch := range storage.Batches(articles, r.batchSize) {
		n, err := r.saveBatch(ctx, batch)
		if err != nil {
			return inserted, fmt.Errorf("batch %d: %w", i, err)
		}
		inserted += n

		r.logger.Debug("Batch saved",
			"batch", i,
			"size", len(batch),
			"inserted", n,
		)
	}
	return inserted, nil
}

func (r *Repository) saveBatch(ctx context.Context, batch []storage.Article) (inserted int, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Error("Failed to rollback", "error", rbErr.Error())
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertArticle)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("Failed to close statement", "error", err.Error())
		}
	}()

	for _, a := range batch {
		result, err := stmt.ExecContext(ctx,
			a.ID, a.Body, a.Host, a.Title, a.NewspaperUID,
			a.NTokensBody, a.NTokensTitle, a.URL,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert %s: %w", a.URL, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		inserted += int(rowsAffected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return inserted, nil
}

// CountArticles возвращает количество статей газеты (пустой uid = все)
func (r *Repository) CountArticles(ctx context.Context, newspaperUID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `SELECT COUNT(*) FROM articles WHERE ? = '' OR newspaper_uid = ?`

	var count int
	if err := r.db.QueryRowContext(ctx, query, newspaperUID, newspaperUID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to query database: %w", err)
	}
	return count, nil
}

// Close закрывает соединение с БД
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
