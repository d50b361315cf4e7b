// Package csvfile reads and writes the intermediate article tables.
package csvfile

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"newspaper-pipeline/internal/normalize"
	"newspaper-pipeline/internal/scraper"
)

// RawHeader is the column order of crawler output.
var RawHeader = []string{"body", "title", "url"}

// CleanHeader is the column order of normalizer output.
var CleanHeader = []string{"id", "body", "host", "title", "newspaper_uid", "n_tokens_body", "n_tokens_title", "url"}

var ErrMissingColumn = errors.New("missing column")

// WriteRaw writes crawled articles with header body,title,url.
func WriteRaw(path string, articles []scraper.RawArticle) error {
	records := make([][]string, 0, len(articles))
	for _, a := range articles {
		records = append(records, []string{a.Body, a.Title, a.URL})
	}
	return writeFile(path, RawHeader, records)
}

// WriteTable writes the clean table. Missing cells become empty fields.
func WriteTable(path string, rows []normalize.Row) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			cell(r.ID),
			cell(r.Body),
			cell(r.Host),
			cell(r.Title),
			cell(r.NewspaperUID),
			intCell(r.NTokensBody.Int64, r.NTokensBody.Valid),
			intCell(r.NTokensTitle.Int64, r.NTokensTitle.Valid),
			cell(r.URL),
		})
	}
	return writeFile(path, CleanHeader, records)
}

func writeFile(path string, header []string, records [][]string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadTable reads a CSV with a header row into table rows. Columns are
// matched by name, unknown columns are ignored and an empty field is a
// missing value. charset is a WHATWG encoding label, "" means utf-8.
func ReadTable(path string, charset string) ([]normalize.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r, err := decoder(f, charset)
	if err != nil {
		return nil, err
	}
	return readTable(r)
}

func decoder(r io.Reader, charset string) (io.Reader, error) {
	if charset == "" {
		charset = "utf-8"
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unknown charset %q: %w", charset, err)
	}
	// BOM, если есть, важнее указанной кодировки
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

func readTable(r io.Reader) ([]normalize.Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"url"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, required)
		}
	}

	var rows []normalize.Row
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		get := func(column string) sql.NullString {
			i, ok := index[column]
			if !ok || i >= len(record) || record[i] == "" {
				return normalize.Null
			}
			return normalize.Str(record[i])
		}

		row := normalize.Row{
			ID:           get("id"),
			Body:         get("body"),
			Host:         get("host"),
			Title:        get("title"),
			NewspaperUID: get("newspaper_uid"),
			URL:          get("url"),
		}
		if row.NTokensBody, err = parseCount(get("n_tokens_body")); err != nil {
			return nil, fmt.Errorf("line %d: n_tokens_body: %w", line, err)
		}
		if row.NTokensTitle, err = parseCount(get("n_tokens_title")); err != nil {
			return nil, fmt.Errorf("line %d: n_tokens_title: %w", line, err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// parseCount accepts "3" and the float form "3.0".
func parseCount(s sql.NullString) (sql.NullInt64, error) {
	if !s.Valid {
		return sql.NullInt64{}, nil
	}
	if n, err := strconv.ParseInt(s.String, 10, 64); err == nil {
		return sql.NullInt64{Int64: n, Valid: true}, nil
	}
	f, err := strconv.ParseFloat(s.String, 64)
	if err != nil || f != float64(int64(f)) {
		return sql.NullInt64{}, fmt.Errorf("not an integer: %q", s.String)
	}
	return sql.NullInt64{Int64: int64(f), Valid: true}, nil
}

func cell(s sql.NullString) string {
	if !s.Valid {
		return ""
	}
	return s.String
}

func intCell(n int64, valid bool) string {
	if !valid {
		return ""
	}
	return strconv.FormatInt(n, 10)
}
