package io_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williampepple1/coze-template-scraper/internal/config"
	scraperio "github.com/williampepple1/coze-template-scraper/internal/io"
	"github.com/williampepple1/coze-template-scraper/pkg/models"
)

func TestResultWriter_SaveToFile(t *testing.T) {
	records := []models.Record{{Title: models.String("Helper Bot"), CopyCount: models.Int(42)}}

	tests := []struct {
		name        string
		format      string
		outputFile  string
		wantName    string
		wantType    string
		wantContent func(t *testing.T, data []byte)
	}{
		{
			name:       "csv default name",
			format:     config.FormatCSV,
			outputFile: config.DefaultOutputFile,
			wantName:   "coze_data.csv",
			wantType:   "text/csv;charset=utf-8",
			wantContent: func(t *testing.T, data []byte) {
				assert.Equal(t, scraperio.EncodeCSV(records, config.DefaultHeaders), data)
			},
		},
		{
			name:       "json swaps the extension",
			format:     config.FormatJSON,
			outputFile: config.DefaultOutputFile,
			wantName:   "coze_data.json",
			wantType:   "application/json;charset=utf-8",
			wantContent: func(t *testing.T, data []byte) {
				var got []map[string]any
				require.NoError(t, json.Unmarshal(data, &got))
				require.Len(t, got, 1)
				assert.Equal(t, "Helper Bot", got[0]["title"])
				assert.Equal(t, float64(42), got[0]["copyCount"])
				assert.Contains(t, got[0], "author")
				assert.Nil(t, got[0]["author"])
			},
		},
		{
			name:       "custom name",
			format:     config.FormatCSV,
			outputFile: "templates.csv",
			wantName:   "templates.csv",
			wantType:   "text/csv;charset=utf-8",
			wantContent: func(t *testing.T, data []byte) {
				assert.True(t, strings.HasPrefix(string(data), "\uFEFF"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			writer := scraperio.NewResultWriter(&config.IOConfig{
				OutputDir:    dir,
				OutputFile:   tt.outputFile,
				OutputFormat: tt.format,
				Headers:      config.DefaultHeaders,
			})

			path, err := writer.SaveToFile(records)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, tt.wantName), path)
			assert.Equal(t, tt.wantName, writer.Filename())
			assert.Equal(t, tt.wantType, writer.ContentType())

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			tt.wantContent(t, data)
		})
	}
}

func TestResultWriter_UnsupportedFormat(t *testing.T) {
	writer := scraperio.NewResultWriter(&config.IOConfig{OutputDir: t.TempDir(), OutputFile: "x.xlsx", OutputFormat: "xlsx"})
	_, err := writer.SaveToFile(nil)
	assert.Error(t, err)
}

func TestDocumentReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(path, []byte("<html><body><article>a</article><article>b</article></body></html>"), 0644))

	reader := scraperio.NewDocumentReader(&config.IOConfig{InputFile: path})
	doc, err := reader.GetDocument()
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Find("article").Length())

	reader.Stdin = strings.NewReader("<article>c</article>")
	doc, err = reader.ReadFromFile("-")
	require.NoError(t, err)
	assert.Equal(t, "c", doc.Find("article").Text())

	_, err = reader.ReadFromFile(filepath.Join(t.TempDir(), "missing.html"))
	assert.Error(t, err)

	_, err = scraperio.NewDocumentReader(&config.IOConfig{}).GetDocument()
	assert.Error(t, err)
}
