package csvfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newspaper-pipeline/internal/normalize"
	"newspaper-pipeline/internal/scraper"
)

func TestWriteRawThenReadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ex_2024_10_18_articles.csv")

	err := WriteRaw(path, []scraper.RawArticle{
		{Body: "Cuerpo, con coma\ny salto", Title: "Hola", URL: "https://ex.com/a"},
		{Body: "", Title: "Sin cuerpo", URL: "https://ex.com/b"},
	})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, len(content) > 0)
	assert.Equal(t, "body,title,url\n", string(content[:len("body,title,url\n")]))

	rows, err := ReadTable(path, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, normalize.Str("Cuerpo, con coma\ny salto"), rows[0].Body)
	assert.Equal(t, normalize.Str("Hola"), rows[0].Title)
	assert.Equal(t, normalize.Str("https://ex.com/a"), rows[0].URL)
	assert.False(t, rows[0].ID.Valid)
	assert.False(t, rows[0].NTokensBody.Valid)

	// empty cell reads as missing
	assert.False(t, rows[1].Body.Valid)
}

func TestWriteTableRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ex_cleaned.csv")

	in := []normalize.Row{{
		ID:           normalize.Str("0cc175b9c0f1b6a831c399e269772661"),
		Body:         normalize.Str("Mundo bonito"),
		Host:         normalize.Str("ex.com"),
		Title:        normalize.Str("Hola"),
		NewspaperUID: normalize.Str("ex"),
		URL:          normalize.Str("https://ex.com/a"),
	}}
	in[0].NTokensBody.Int64, in[0].NTokensBody.Valid = 2, true
	in[0].NTokensTitle.Int64, in[0].NTokensTitle.Valid = 1, true

	require.NoError(t, WriteTable(path, in))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "id,body,host,title,newspaper_uid,n_tokens_body,n_tokens_title,url\n")

	out, err := ReadTable(path, "utf-8")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestReadTableLatin1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "latin1.csv")
	// "Año" in ISO-8859-1
	data := []byte("title,url\nA\xf1o,https://ex.com/a\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	rows, err := ReadTable(path, "iso-8859-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Año", rows[0].Title.String)
}

func TestReadTableStripsBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bom.csv")
	data := []byte("\xef\xbb\xbfurl,title\nhttps://ex.com/a,Hola\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	rows, err := ReadTable(path, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "https://ex.com/a", rows[0].URL.String)
}

func TestReadTableFloatCounts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "floats.csv")
	data := []byte("url,n_tokens_body,n_tokens_title\nhttps://ex.com/a,3.0,\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	rows, err := ReadTable(path, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 3, rows[0].NTokensBody.Int64)
	assert.False(t, rows[0].NTokensTitle.Valid)
}

func TestReadTableErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadTable(filepath.Join(dir, "missing.csv"), "")
	assert.Error(t, err)

	noURL := filepath.Join(dir, "nourl.csv")
	require.NoError(t, os.WriteFile(noURL, []byte("title\nHola\n"), 0o644))
	_, err = ReadTable(noURL, "")
	assert.ErrorIs(t, err, ErrMissingColumn)

	badCount := filepath.Join(dir, "bad.csv")
	require.NoError(t, os.WriteFile(badCount, []byte("url,n_tokens_body\nu,tres\n"), 0o644))
	_, err = ReadTable(badCount, "")
	assert.ErrorContains(t, err, "n_tokens_body")

	_, err = ReadTable(noURL, "klingon")
	assert.ErrorContains(t, err, "unknown charset")

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	rows, err := ReadTable(empty, "")
	assert.NoError(t, err)
	assert.Empty(t, rows)
}
