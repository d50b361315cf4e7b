package config

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrUnknownSite     = errors.New("unknown news site")
	ErrMissingSelector = errors.New("missing selector")
)

// ConfigurationError is fatal and is raised before any network I/O.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s: %v", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// SiteDescriptor описывает один новостной сайт: базовый URL и селекторы
type SiteDescriptor struct {
	UID                 string  `yaml:"-"`
	URL                 string  `yaml:"url"`
	Language            string  `yaml:"language"`
	Queries             Queries `yaml:"queries"`
	ReadabilityFallback bool    `yaml:"readability_fallback"`
	Render              bool    `yaml:"render"`
}

// Queries are opaque CSS selectors; only the document layer interprets them.
type Queries struct {
	HomepageArticleLinks string `yaml:"homepage_article_links"`
	ArticleTitle         string `yaml:"article_title"`
	ArticleBody          string `yaml:"article_body"`
}

// Site возвращает описание сайта по его идентификатору
func (c *Config) Site(uid string) (SiteDescriptor, error) {
	site, ok := c.Sites[uid]
	if !ok {
		return SiteDescriptor{}, &ConfigurationError{Key: "news_sites." + uid, Err: ErrUnknownSite}
	}

	if err := validateSelectors(uid, site.Queries); err != nil {
		return SiteDescriptor{}, err
	}

	return site, nil
}

// SiteUIDs returns the configured site identifiers in sorted order.
func (c *Config) SiteUIDs() []string {
	uids := make([]string, 0, len(c.Sites))
	for uid := range c.Sites {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	return uids
}

// validateSelectors проверяет минимальный набор селекторов
func validateSelectors(uid string, q Queries) error {
	prefix := "news_sites." + uid + ".queries."
	if q.HomepageArticleLinks == "" {
		return &ConfigurationError{Key: prefix + "homepage_article_links", Err: ErrMissingSelector}
	}
	if q.ArticleTitle == "" {
		return &ConfigurationError{Key: prefix + "article_title", Err: ErrMissingSelector}
	}
	if q.ArticleBody == "" {
		return &ConfigurationError{Key: prefix + "article_body", Err: ErrMissingSelector}
	}

	return nil
}
