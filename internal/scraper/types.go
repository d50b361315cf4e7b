package scraper

import (
	"context"
	"errors"

	"newspaper-pipeline/internal/fetcher"
)

// ErrDiscardedArticle marks a page where neither title nor body matched.
var ErrDiscardedArticle = errors.New("article has neither title nor body")

// RawArticle is one successfully extracted page. Title and Body may be empty
// but are never absent.
type RawArticle struct {
	Body  string
	Title string
	URL   string
}

// PageSource is satisfied by fetcher.Fetcher and fetcher.Renderer.
type PageSource interface {
	Fetch(ctx context.Context, urlStr string, lang string) (*fetcher.FetchResponse, error)
}

type CrawlStats struct {
	Links     int
	Fetched   int
	Skipped   int
	Discarded int
}
