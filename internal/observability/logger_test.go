package observability

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, "warn")

	logger.Info("hidden")
	logger.Warn("Article skipped", "url", "https://ex.com/a")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "Article skipped")
	assert.Contains(t, out, "url=https://ex.com/a")
}

func TestWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, "debug").With("site", "elpais")

	logger.Debug("Crawling")

	assert.Contains(t, buf.String(), "site=elpais")
}

func TestFileLoggerWritesToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.log")
	logger := NewLogger(Options{LogPath: path, LogLevel: "info", MaxSizeMB: 1})

	logger.Info("Rows produced", "count", 3)
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "count=3")
}
