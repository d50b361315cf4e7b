package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"newspaper-pipeline/internal/config"
	"newspaper-pipeline/internal/normalize"
	"newspaper-pipeline/internal/observability"
	"newspaper-pipeline/internal/scraper"
	"newspaper-pipeline/internal/storage"
	"newspaper-pipeline/internal/storage/csvfile"
)

type Orchestrator struct {
	cfg        *config.Config
	logger     *observability.Logger
	pages      scraper.PageSource
	rendered   scraper.PageSource
	normalizer *normalize.Normalizer
	openRepo   RepositoryOpener
	now        func() time.Time
}

// NewOrchestrator собирает пайплайн. rendered может быть nil, тогда
// сайты с render: true качаются обычным HTTP.
func NewOrchestrator(
	cfg *config.Config,
	logger *observability.Logger,
	pages scraper.PageSource,
	rendered scraper.PageSource,
	openRepo RepositoryOpener,
) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		logger:     logger,
		pages:      pages,
		rendered:   rendered,
		normalizer: normalize.NewNormalizer(cfg, logger),
		openRepo:   openRepo,
		now:        time.Now,
	}
}

type ExtractResult struct {
	Site   string
	Output string
	Stats  scraper.CrawlStats
}

type TransformResult struct {
	Input        string
	Output       string
	NewspaperUID string
	Rows         []normalize.Row
	Report       normalize.Report
}

type LoadResult struct {
	Input    string
	Rows     int
	Skipped  int
	Inserted int
}

type PipelineResult struct {
	Extract   *ExtractResult
	Transform *TransformResult
	Load      *LoadResult
}

// Extract краулит один сайт и пишет сырую таблицу в output_dir.
// Отмена ctx не ошибка: сохраняется то, что успели скачать.
func (o *Orchestrator) Extract(ctx context.Context, uid string) (*ExtractResult, error) {
	site, err := o.cfg.Site(uid)
	if err != nil {
		return nil, err
	}

	logger := o.logger.With("site", uid)
	source := o.pages
	if site.Render && o.rendered != nil {
		source = o.rendered
		logger.Debug("Using headless renderer")
	}

	if deadline := o.cfg.GetCrawlDeadline(); deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}

	logger.Info("Beginning scraper", "url", site.URL)

	articles, stats, err := scraper.NewScraper(site, source, o.logger).Crawl(ctx, o.cfg.Crawl.Workers)
	if err != nil {
		logger.Error("Crawl failed", "error", err.Error())
		return nil, fmt.Errorf("crawl %s: %w", uid, err)
	}

	if err := os.MkdirAll(o.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("output dir: %w", err)
	}
	output := filepath.Join(o.cfg.OutputDir, rawFileName(uid, o.now()))
	if err := csvfile.WriteRaw(output, articles); err != nil {
		return nil, fmt.Errorf("save %s: %w", uid, err)
	}

	logger.Info("Articles saved",
		"file", output,
		"articles", len(articles),
		"links", stats.Links,
		"skipped", stats.Skipped,
		"discarded", stats.Discarded,
	)

	return &ExtractResult{Site: uid, Output: output, Stats: stats}, nil
}

// rawFileName: <uid>_<YYYY_MM_DD>_articles.csv
func rawFileName(uid string, now time.Time) string {
	return fmt.Sprintf("%s_%s_articles.csv", uid, now.Format("2006_01_02"))
}

// CleanedFileName: x/ex_2024_10_18_articles.csv → x/ex_2024_10_18_articles_cleaned.csv
func CleanedFileName(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "_cleaned.csv"
}

// Transform нормализует сырую таблицу. Пустой newspaperUID берётся из имени файла.
func (o *Orchestrator) Transform(path, newspaperUID string) (*TransformResult, error) {
	if newspaperUID == "" {
		newspaperUID = normalize.NewspaperUIDFromFilename(path)
	}

	rows, err := csvfile.ReadTable(path, o.cfg.Normalize.InputCharset)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cleaned, report := o.normalizer.Normalize(rows, newspaperUID, o.languageFor(newspaperUID))

	output := CleanedFileName(path)
	if err := csvfile.WriteTable(output, cleaned); err != nil {
		return nil, fmt.Errorf("save %s: %w", output, err)
	}

	o.logger.Info("Clean table saved",
		"newspaper_uid", newspaperUID,
		"file", output,
		"rows", len(cleaned),
	)

	return &TransformResult{
		Input:        path,
		Output:       output,
		NewspaperUID: newspaperUID,
		Rows:         cleaned,
		Report:       report,
	}, nil
}

// languageFor: язык сайта, если газета есть в конфиге, иначе normalize.language
func (o *Orchestrator) languageFor(newspaperUID string) string {
	if site, ok := o.cfg.Sites[newspaperUID]; ok && site.Language != "" {
		return site.Language
	}
	return o.cfg.Normalize.Language
}

// Load сохраняет чистую таблицу в БД. Неполные строки пропускаются.
func (o *Orchestrator) Load(ctx context.Context, path string) (*LoadResult, error) {
	rows, err := csvfile.ReadTable(path, "utf-8")
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	result := &LoadResult{Input: path, Rows: len(rows)}

	articles := make([]storage.Article, 0, len(rows))
	for _, row := range rows {
		article, err := ArticleFromRow(row)
		if err != nil {
			result.Skipped++
			o.logger.Warn("Skipping row", "url", row.URL.String, "error", err.Error())
			continue
		}
		articles = append(articles, article)
	}

	repo, err := o.openRepo()
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			o.logger.Error("Failed to close storage", "error", err.Error())
		}
	}()

	inserted, err := repo.SaveArticles(ctx, articles)
	result.Inserted = inserted
	if err != nil {
		return result, fmt.Errorf("load %s: %w", path, err)
	}

	o.logger.Info("Articles loaded",
		"file", path,
		"rows", result.Rows,
		"skipped", result.Skipped,
		"inserted", result.Inserted,
		"already_stored", len(articles)-inserted,
	)

	return result, nil
}

// Pipeline прогоняет extract → transform → load по сайтам. Пустой список =
// все сайты из конфига. Ошибка одного сайта не останавливает остальные.
func (o *Orchestrator) Pipeline(ctx context.Context, uids []string) ([]PipelineResult, error) {
	if len(uids) == 0 {
		uids = o.cfg.SiteUIDs()
	}

	// конфигурацию проверяем до любых запросов в сеть
	for _, uid := range uids {
		if _, err := o.cfg.Site(uid); err != nil {
			return nil, err
		}
	}

	var (
		results []PipelineResult
		errs    []error
	)
	for _, uid := range uids {
		if ctx.Err() != nil {
			o.logger.Warn("Pipeline cancelled, skipping remaining sites", "site", uid)
			errs = append(errs, ctx.Err())
			break
		}

		res, err := o.runSite(ctx, uid)
		results = append(results, res)
		if err != nil {
			o.logger.Error("Pipeline failed for site", "site", uid, "error", err.Error())
			errs = append(errs, err)
		}
	}

	return results, errors.Join(errs...)
}

func (o *Orchestrator) runSite(ctx context.Context, uid string) (PipelineResult, error) {
	var res PipelineResult
	var err error

	if res.Extract, err = o.Extract(ctx, uid); err != nil {
		return res, err
	}
	if res.Transform, err = o.Transform(res.Extract.Output, uid); err != nil {
		return res, err
	}
	if res.Load, err = o.Load(ctx, res.Transform.Output); err != nil {
		return res, err
	}
	return res, nil
}
