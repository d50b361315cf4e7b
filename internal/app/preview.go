package app

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"newspaper-pipeline/internal/normalize"
)

// RenderPreview печатает первые maxRows строк чистой таблицы,
// длинные тексты обрезаются до maxChars
func RenderPreview(w io.Writer, rows []normalize.Row, maxRows, maxChars int) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"ID", "Newspaper", "Host", "Title", "Body", "Tokens (title)", "Tokens (body)"})

	for i, row := range rows {
		if i >= maxRows {
			break
		}
		t.AppendRow(table.Row{
			row.ID.String,
			row.NewspaperUID.String,
			row.Host.String,
			normalize.TruncatePreview(row.Title.String, maxChars),
			normalize.TruncatePreview(row.Body.String, maxChars),
			row.NTokensTitle.Int64,
			row.NTokensBody.Int64,
		})
	}

	t.AppendFooter(table.Row{"", "", "", "", "rows", len(rows), ""})
	t.Render()
}
