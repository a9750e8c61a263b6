package io

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/williampepple1/coze-template-scraper/internal/config"
	"github.com/williampepple1/coze-template-scraper/pkg/models"
)

// ResultWriter writes records to various outputs
type ResultWriter struct {
	Config *config.IOConfig
}

// NewResultWriter creates a new result writer
func NewResultWriter(config *config.IOConfig) *ResultWriter {
	return &ResultWriter{
		Config: config,
	}
}

// Encode renders the records in the configured format
func (w *ResultWriter) Encode(records []models.Record) ([]byte, error) {
	switch w.Config.OutputFormat {
	case config.FormatCSV, "":
		return EncodeCSV(records, w.headers()), nil

	case config.FormatJSON:
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return data, nil

	default:
		return nil, fmt.Errorf("unsupported output format: %s", w.Config.OutputFormat)
	}
}

// ContentType returns the MIME type for the configured format
func (w *ResultWriter) ContentType() string {
	if w.Config.OutputFormat == config.FormatJSON {
		return ContentTypeJSON
	}
	return ContentTypeCSV
}

// Filename returns the base name of the exported file. A ".csv" name gets a
// ".json" extension when exporting JSON.
func (w *ResultWriter) Filename() string {
	name := w.Config.OutputFile
	if name == "" {
		name = config.DefaultOutputFile
	}
	if w.Config.OutputFormat == config.FormatJSON && strings.EqualFold(filepath.Ext(name), ".csv") {
		name = strings.TrimSuffix(name, filepath.Ext(name)) + ".json"
	}
	return filepath.Base(name)
}

// Path returns where SaveToFile writes
func (w *ResultWriter) Path() string {
	dir := w.Config.OutputDir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, w.Filename())
}

// SaveToFile saves the records to the output directory and returns the path
func (w *ResultWriter) SaveToFile(records []models.Record) (string, error) {
	data, err := w.Encode(records)
	if err != nil {
		return "", err
	}

	path := w.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func (w *ResultWriter) headers() []string {
	if len(w.Config.Headers) == len(config.DefaultHeaders) {
		return w.Config.Headers
	}
	return config.DefaultHeaders
}
