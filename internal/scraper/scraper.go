package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/go-shiori/go-readability"

	"newspaper-pipeline/internal/config"
	"newspaper-pipeline/internal/document"
	"newspaper-pipeline/internal/fetcher"
	"newspaper-pipeline/internal/observability"
)

type Scraper struct {
	site   config.SiteDescriptor
	source PageSource
	logger *observability.Logger
}

func NewScraper(site config.SiteDescriptor, source PageSource, logger *observability.Logger) *Scraper {
	return &Scraper{
		site:   site,
		source: source,
		logger: logger.With("site", site.UID),
	}
}

func (s *Scraper) fetchDocument(ctx context.Context, link string) (*document.HTMLDocument, error) {
	resp, err := s.source.Fetch(ctx, link, s.site.Language)
	if err != nil {
		return nil, err
	}

	doc, err := document.Parse(resp.Body)
	if err != nil {
		return nil, &fetcher.FetchError{URL: link, StatusCode: resp.StatusCode, Err: err}
	}
	return doc, nil
}

// ArticleLinks fetches the listing page once and returns the resolved set of
// article URLs. A failed listing fetch is fatal for the crawl.
func (s *Scraper) ArticleLinks(ctx context.Context) ([]string, error) {
	doc, err := s.fetchDocument(ctx, s.site.URL)
	if err != nil {
		return nil, fmt.Errorf("home page: %w", err)
	}

	var hrefs []string
	for _, node := range doc.Select(s.site.Queries.HomepageArticleLinks) {
		if href, ok := node.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	}

	links := ResolveLinks(s.site.URL, hrefs)
	s.logger.Info("Home page parsed", "url", s.site.URL, "anchors", len(hrefs), "links", len(links))

	return links, nil
}

// ExtractArticle fetches one article and applies the title/body selectors.
// It returns a *fetcher.FetchError when the page could not be fetched and
// ErrDiscardedArticle when both fields came back empty.
func (s *Scraper) ExtractArticle(ctx context.Context, link string) (*RawArticle, error) {
	doc, err := s.fetchDocument(ctx, link)
	if err != nil {
		return nil, err
	}

	article := &RawArticle{
		URL:   link,
		Title: document.FirstText(doc, s.site.Queries.ArticleTitle),
		Body:  document.FirstText(doc, s.site.Queries.ArticleBody),
	}

	if article.Body == "" && s.site.ReadabilityFallback {
		article.Body = s.readabilityBody(doc, link)
	}

	if article.Title == "" && article.Body == "" {
		return nil, ErrDiscardedArticle
	}

	return article, nil
}

func (s *Scraper) readabilityBody(doc *document.HTMLDocument, link string) string {
	pageURL, err := url.Parse(link)
	if err != nil {
		return ""
	}

	parsed, err := readability.FromReader(bytes.NewReader(doc.Source()), pageURL)
	if err != nil {
		s.logger.Debug("Readability fallback failed", "url", link, "error", err)
		return ""
	}
	return strings.TrimSpace(parsed.TextContent)
}

type crawlResult struct {
	article *RawArticle
	err     error
	link    string
}

// Crawl runs the whole site: home page first, then every article through a
// pool of workers. Per-article failures are logged and skipped. When ctx is
// cancelled no new articles are started and whatever finished is returned.
func (s *Scraper) Crawl(ctx context.Context, workers int) ([]RawArticle, CrawlStats, error) {
	stats := CrawlStats{}

	links, err := s.ArticleLinks(ctx)
	if err != nil {
		return nil, stats, err
	}
	stats.Links = len(links)

	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)
	results := make(chan crawlResult, len(links))
	var wg sync.WaitGroup

	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for link := range jobs {
				s.logger.Debug("Start fetching article", "worker_id", id, "url", link)
				article, err := s.ExtractArticle(ctx, link)
				results <- crawlResult{article: article, err: err, link: link}
			}
		}(w)
	}

dispatch:
	for _, link := range links {
		select {
		case jobs <- link:
		case <-ctx.Done():
			s.logger.Warn("Crawl cancelled, not starting remaining articles", "reason", ctx.Err())
			break dispatch
		}
	}
	close(jobs)

	wg.Wait()
	close(results)

	var articles []RawArticle
	for res := range results {
		switch {
		case res.err == nil:
			stats.Fetched++
			articles = append(articles, *res.article)
		case errors.Is(res.err, ErrDiscardedArticle):
			stats.Discarded++
			s.logger.Warn("Invalid article, there is no title or body", "url", res.link)
		default:
			stats.Skipped++
			s.logger.Warn("Error while fetching the article", "url", res.link, "error", res.err)
		}
	}

	sort.Slice(articles, func(i, j int) bool { return articles[i].URL < articles[j].URL })

	s.logger.Info("Crawl finished",
		"links", stats.Links,
		"articles", stats.Fetched,
		"skipped", stats.Skipped,
		"discarded", stats.Discarded,
	)

	return articles, stats, nil
}
