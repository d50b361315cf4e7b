// Package normalize turns the raw article table into the clean table the
// loader expects. The passes run in a fixed order because later ones read
// columns written by earlier ones.
package normalize

import (
	"newspaper-pipeline/internal/config"
	"newspaper-pipeline/internal/observability"
)

type Normalizer struct {
	cfg    config.NormalizeConfig
	logger *observability.Logger
}

func NewNormalizer(cfg *config.Config, logger *observability.Logger) *Normalizer {
	return &Normalizer{cfg: cfg.Normalize, logger: logger}
}

// Report counts what happened to the table.
type Report struct {
	Language   string
	InputRows  int
	Backfilled int
	Duplicates int
	Incomplete int
	OutputRows int
}

// Normalize runs every pass over rows. lang is an ISO 639-1 code or
// LanguageAuto.
func (n *Normalizer) Normalize(rows []Row, newspaperUID string, lang string) ([]Row, Report) {
	report := Report{InputRows: len(rows)}
	logger := n.logger.With("newspaper_uid", newspaperUID)

	logger.Info("Starting cleaning process", "rows", len(rows))

	if lang == LanguageAuto {
		detector := NewLanguageDetector(DetectableLanguages(n.cfg.StopWords), n.fallbackLanguage())
		lang = detector.Detect(rows)
		logger.Info("Language detected", "language", lang)
	}
	report.Language = lang
	if !HasStopWords(lang, n.cfg.StopWords) {
		logger.Warn("No stop words for language, nothing will be filtered", "language", lang)
	}

	logger.Debug("Filling newspaper_uid column")
	rows = AddNewspaperUID(rows, newspaperUID)

	logger.Debug("Extracting host from urls")
	rows = ExtractHost(rows)

	logger.Debug("Filling missing bodies from url slugs")
	for _, row := range rows {
		if !row.Body.Valid && row.URL.Valid {
			report.Backfilled++
		}
	}
	rows = BackfillBody(rows)

	logger.Debug("Generating ids for each row")
	rows = AssignIDs(rows)

	logger.Debug("Removing line breaks from body")
	rows = SanitizeBody(rows)

	tok := NewTokenizer(lang, StopWords(lang, n.cfg.StopWords))
	logger.Debug("Calculating token count", "column", ColumnTitle)
	rows = CountTokens(rows, ColumnTitle, tok)
	logger.Debug("Calculating token count", "column", ColumnBody)
	rows = CountTokens(rows, ColumnBody, tok)

	logger.Debug("Removing duplicate titles")
	before := len(rows)
	rows = DropDuplicateTitles(rows)
	report.Duplicates = before - len(rows)

	logger.Debug("Removing rows with missing values")
	before = len(rows)
	rows = DropIncomplete(rows)
	report.Incomplete = before - len(rows)

	report.OutputRows = len(rows)
	logger.Info("Cleaning finished",
		"language", report.Language,
		"input_rows", report.InputRows,
		"backfilled", report.Backfilled,
		"duplicates", report.Duplicates,
		"incomplete", report.Incomplete,
		"output_rows", report.OutputRows,
	)

	return rows, report
}

func (n *Normalizer) fallbackLanguage() string {
	if n.cfg.Language == "" || n.cfg.Language == LanguageAuto {
		return "es"
	}
	return n.cfg.Language
}
