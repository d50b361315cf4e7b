package storage

import (
	"context"
	"errors"
)

// ErrIncompleteArticle возвращается, когда строку таблицы нельзя сохранить
var ErrIncompleteArticle = errors.New("article has missing fields")

// Article представляет очищенную статью для сохранения в БД
type Article struct {
	ID           string // md5(url) в hex
	Body         string
	Host         string
	Title        string
	NewspaperUID string
	NTokensBody  int
	NTokensTitle int
	URL          string
}

// Repository интерфейс для работы с хранилищем статей
type Repository interface {
	// SaveArticles вставляет статьи, которых ещё нет (по id), возвращает число вставленных
	SaveArticles(ctx context.Context, articles []Article) (inserted int, err error)

	// CountArticles возвращает количество статей газеты (пустой uid = все)
	CountArticles(ctx context.Context, newspaperUID string) (int, error)

	Close() error
}

// Batches режет статьи на пачки по size штук
func Batches(articles []Article, size int) [][]Article {
	if size <= 0 {
		size = len(articles)
	}

	var batches [][]Article
	for start := 0; start < len(articles); start += size {
		end := min(start+size, len(articles))
		batches = append(batches, articles[start:end])
	}
	return batches
}
