package normalize

import (
	"database/sql"
)

// Row is one article in the normalized table. Every cell is nullable: an
// empty CSV cell or a value a pass could not derive is a missing value.
type Row struct {
	ID           sql.NullString
	Body         sql.NullString
	Host         sql.NullString
	Title        sql.NullString
	NewspaperUID sql.NullString
	NTokensBody  sql.NullInt64
	NTokensTitle sql.NullInt64
	URL          sql.NullString
}

// Column names a text column the tokenizer can score.
type Column string

const (
	ColumnTitle Column = "title"
	ColumnBody  Column = "body"
)

func (r *Row) text(c Column) sql.NullString {
	if c == ColumnTitle {
		return r.Title
	}
	return r.Body
}

func (r *Row) setTokens(c Column, n int) {
	v := sql.NullInt64{Int64: int64(n), Valid: true}
	if c == ColumnTitle {
		r.NTokensTitle = v
		return
	}
	r.NTokensBody = v
}

// Complete reports whether no cell is missing.
func (r Row) Complete() bool {
	return r.ID.Valid && r.Body.Valid && r.Host.Valid && r.Title.Valid &&
		r.NewspaperUID.Valid && r.NTokensBody.Valid && r.NTokensTitle.Valid && r.URL.Valid
}

// Str builds a present cell.
func Str(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

// Null is a missing cell.
var Null = sql.NullString{}

func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	return out
}
