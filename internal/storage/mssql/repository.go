package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"newspaper-pipeline/internal/observability"
	"newspaper-pipeline/internal/storage"
)

const createSchema = `
	IF OBJECT_ID(N'dbo.articles', N'U') IS NULL
	CREATE TABLE dbo.articles (
		[id]             CHAR(32)      NOT NULL PRIMARY KEY,
		[body]           NVARCHAR(MAX) NOT NULL,
		[host]           NVARCHAR(255) NOT NULL,
		[title]          NVARCHAR(MAX) NOT NULL,
		[newspaper_uid]  NVARCHAR(64)  NOT NULL,
		[n_tokens_body]  INT           NOT NULL,
		[n_tokens_title] INT           NOT NULL,
		[url]            NVARCHAR(850) NOT NULL UNIQUE
	);
`

// MERGE statement для MS SQL: вставка только новых id
const mergeArticle = `
	MERGE INTO dbo.articles WITH (HOLDLOCK) AS target
	USING (SELECT @ID AS id) AS source
	ON target.[id] = source.id
	WHEN NOT MATCHED THEN
		INSERT ([id], [body], [host], [title], [newspaper_uid], [n_tokens_body], [n_tokens_title], [url])
		VALUES (@ID, @Body, @Host, @Title, @NewspaperUID, @NTokensBody, @NTokensTitle, @URL);
`

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	batchSize      int
	logger         *observability.Logger
}

func NewRepository(dsn string, commandTimeout time.Duration, batchSize int, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Тестируем соединение
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repo := newRepository(db, commandTimeout, batchSize, logger)
	if err := repo.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func newRepository(db *sql.DB, commandTimeout time.Duration, batchSize int, logger *observability.Logger) *Repository {
	return &Repository{
		db:             db,
		commandTimeout: commandTimeout,
		batchSize:      batchSize,
		logger:         logger,
	}
}

func (r *Repository) ensureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, createSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveArticles сохраняет статьи пачками, возвращает число новых строк
func (r *Repository) SaveArticles(ctx context.Context, articles []storage.Article) (int, error) {
	inserted := 0
	for i, batch := range storage.Batches(articles, r.batchSize) {
		n, err := r.mergeBatch(ctx, batch)
		if err != nil {
			r.logger.Error("Failed to save batch",
				"batch", i,
				"size", len(batch),
				"error", err.Error(),
			)
			return inserted, fmt.Errorf("batch %d: %w", i, err)
		}
		inserted += n
	}
	return inserted, nil
}

func (r *Repository) mergeBatch(ctx context.Context, batch []storage.Article) (inserted int, err error) {
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

	stmt, err := tx.PrepareContext(ctx, mergeArticle)
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
			sql.Named("ID", a.ID),
			sql.Named("Body", a.Body),
			sql.Named("Host", a.Host),
			sql.Named("Title", a.Title),
			sql.Named("NewspaperUID", a.NewspaperUID),
			sql.Named("NTokensBody", a.NTokensBody),
			sql.Named("NTokensTitle", a.NTokensTitle),
			sql.Named("URL", a.URL),
		)
		if err != nil {
			return 0, fmt.Errorf("failed to execute merge: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		// 0 строк: статья с таким id уже есть
		inserted += int(rowsAffected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return inserted, nil
}

// CountArticles получает количество статей газеты (пустой uid = все)
func (r *Repository) CountArticles(ctx context.Context, newspaperUID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `SELECT COUNT(*) FROM dbo.articles WHERE @UID = '' OR [newspaper_uid] = @UID`

	var count int
	err := r.db.QueryRowContext(ctx, query, sql.Named("UID", newspaperUID)).Scan(&count)
	if err != nil {
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
