package app

import (
	"fmt"

	"newspaper-pipeline/internal/config"
	"newspaper-pipeline/internal/normalize"
	"newspaper-pipeline/internal/observability"
	"newspaper-pipeline/internal/storage"
	"newspaper-pipeline/internal/storage/mssql"
	"newspaper-pipeline/internal/storage/sqlite"
)

// RepositoryOpener открывает хранилище по конфигу; вызывается только командой load
type RepositoryOpener func() (storage.Repository, error)

// OpenRepository выбирает драйвер по storage.driver
func OpenRepository(cfg *config.Config, logger *observability.Logger) RepositoryOpener {
	return func() (storage.Repository, error) {
		s := cfg.Storage
		switch s.Driver {
		case "sqlite":
			return sqlite.NewRepository(s.DSN, cfg.GetCommandTimeout(), s.BatchSize, logger)
		case "mssql":
			return mssql.NewRepository(s.DSN, cfg.GetCommandTimeout(), s.BatchSize, logger)
		default:
			return nil, fmt.Errorf("unknown storage driver: %s", s.Driver)
		}
	}
}

// ArticleFromRow converts a clean table row. Rows with a missing cell give
// storage.ErrIncompleteArticle.
func ArticleFromRow(row normalize.Row) (storage.Article, error) {
	if !row.Complete() {
		return storage.Article{}, storage.ErrIncompleteArticle
	}
	return storage.Article{
		ID:           row.ID.String,
		Body:         row.Body.String,
		Host:         row.Host.String,
		Title:        row.Title.String,
		NewspaperUID: row.NewspaperUID.String,
		NTokensBody:  int(row.NTokensBody.Int64),
		NTokensTitle: int(row.NTokensTitle.Int64),
		URL:          row.URL.String,
	}, nil
}
