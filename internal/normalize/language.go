package normalize

import (
	"sort"
	"strings"

	"github.com/pemistahl/lingua-go"
)

// LanguageAuto asks the normalizer to detect the table language.
const LanguageAuto = "auto"

var linguaLanguages = map[string]lingua.Language{
	"es": lingua.Spanish,
	"en": lingua.English,
	"pt": lingua.Portuguese,
	"fr": lingua.French,
	"it": lingua.Italian,
	"de": lingua.German,
}

// maxDetectionSample bounds how much text is fed to the detector.
const maxDetectionSample = 20000

// LanguageDetector picks one of a fixed set of languages for a table.
type LanguageDetector struct {
	detector lingua.LanguageDetector
	codes    map[lingua.Language]string
	fallback string
}

// NewLanguageDetector builds a detector over the given ISO 639-1 codes.
// Codes lingua does not know are ignored; with fewer than two usable codes
// Detect always returns fallback.
func NewLanguageDetector(codes []string, fallback string) *LanguageDetector {
	d := &LanguageDetector{
		codes:    make(map[lingua.Language]string),
		fallback: fallback,
	}

	var languages []lingua.Language
	for _, code := range codes {
		if lang, ok := linguaLanguages[code]; ok {
			languages = append(languages, lang)
			d.codes[lang] = code
		}
	}

	if len(languages) >= 2 {
		d.detector = lingua.NewLanguageDetectorBuilder().FromLanguages(languages...).Build()
	}
	return d
}

// Detect returns the ISO code of the dominant language of rows.
func (d *LanguageDetector) Detect(rows []Row) string {
	if d.detector == nil {
		return d.fallback
	}

	var sample strings.Builder
	for _, row := range rows {
		if sample.Len() >= maxDetectionSample {
			break
		}
		if row.Title.Valid {
			sample.WriteString(row.Title.String)
			sample.WriteString(". ")
		}
		if row.Body.Valid {
			sample.WriteString(row.Body.String)
			sample.WriteString(" ")
		}
	}

	if sample.Len() == 0 {
		return d.fallback
	}

	lang, ok := d.detector.DetectLanguageOf(sample.String())
	if !ok {
		return d.fallback
	}
	return d.codes[lang]
}

// DetectableLanguages lists the codes that have stop words and that lingua
// can tell apart, in sorted order.
func DetectableLanguages(overrides map[string][]string) []string {
	var codes []string
	for code := range linguaLanguages {
		if HasStopWords(code, overrides) {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	return codes
}
