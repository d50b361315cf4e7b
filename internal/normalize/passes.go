package normalize

import (
	"net/url"
	"path/filepath"
	"strings"

	"newspaper-pipeline/internal/checksum"
)

// Every pass takes the table and returns a new one; the input is not touched.

// NewspaperUIDFromFilename извлекает uid газеты из имени файла:
// всё, что стоит до первого "_" (eluniversal_2024_10_18_articles.csv → eluniversal)
func NewspaperUIDFromFilename(path string) string {
	name := filepath.Base(path)
	uid, _, _ := strings.Cut(name, "_")
	return uid
}

// AddNewspaperUID fills newspaper_uid on every row.
func AddNewspaperUID(rows []Row, uid string) []Row {
	out := cloneRows(rows)
	for i := range out {
		out[i].NewspaperUID = Str(uid)
	}
	return out
}

// ExtractHost sets host to the authority of url (no userinfo, port kept).
func ExtractHost(rows []Row) []Row {
	out := cloneRows(rows)
	for i := range out {
		out[i].Host = Null
		if !out[i].URL.Valid {
			continue
		}
		u, err := url.Parse(out[i].URL.String)
		if err != nil {
			continue
		}
		out[i].Host = Str(u.Host)
	}
	return out
}

// BackfillBody gives rows without a body a synthetic one built from the URL
// slug: the text after the last "/" with hyphens turned into spaces.
func BackfillBody(rows []Row) []Row {
	out := cloneRows(rows)
	for i := range out {
		if out[i].Body.Valid || !out[i].URL.Valid {
			continue
		}
		out[i].Body = Str(slugText(out[i].URL.String))
	}
	return out
}

func slugText(rawURL string) string {
	slug := rawURL
	if idx := strings.LastIndex(rawURL, "/"); idx >= 0 {
		slug = rawURL[idx+1:]
	}
	return strings.Join(strings.Split(slug, "-"), " ")
}

// AssignIDs sets id = hex(md5(url)).
func AssignIDs(rows []Row) []Row {
	out := cloneRows(rows)
	for i := range out {
		out[i].ID = Null
		if out[i].URL.Valid {
			out[i].ID = Str(checksum.ArticleID(out[i].URL.String))
		}
	}
	return out
}

var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ")

// SanitizeBody replaces each CR and LF in body with one space.
func SanitizeBody(rows []Row) []Row {
	out := cloneRows(rows)
	for i := range out {
		if out[i].Body.Valid {
			out[i].Body.String = lineBreaks.Replace(out[i].Body.String)
		}
	}
	return out
}

// DropDuplicateTitles keeps the first row for every distinct raw title.
// Two missing titles count as equal.
func DropDuplicateTitles(rows []Row) []Row {
	seen := make(map[string]struct{}, len(rows))
	nullSeen := false

	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if !row.Title.Valid {
			if nullSeen {
				continue
			}
			nullSeen = true
			out = append(out, row)
			continue
		}
		if _, dup := seen[row.Title.String]; dup {
			continue
		}
		seen[row.Title.String] = struct{}{}
		out = append(out, row)
	}
	return out
}

// DropIncomplete removes every row that has a missing cell.
func DropIncomplete(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if row.Complete() {
			out = append(out, row)
		}
	}
	return out
}

// TruncatePreview обрезает текст до maxChars символов (по рунам)
func TruncatePreview(text string, maxChars int) string {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	if maxChars < 2 {
		return string(runes[:max(maxChars, 0)])
	}

	// Находим последний пробел перед лимитом
	truncated := string(runes[:maxChars-1])
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > 0 {
		truncated = truncated[:lastSpace]
	}

	return truncated + "…"
}
