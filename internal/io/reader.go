package io

import (
	"fmt"
	stdio "io"
	"os"

	"github.com/PuerkitoBio/goquery"

	"github.com/williampepple1/coze-template-scraper/internal/config"
)

// DocumentReader loads saved listing pages from disk
type DocumentReader struct {
	Config *config.IOConfig
	Stdin  stdio.Reader
}

// NewDocumentReader creates a new document reader
func NewDocumentReader(config *config.IOConfig) *DocumentReader {
	return &DocumentReader{
		Config: config,
		Stdin:  os.Stdin,
	}
}

// ReadFromFile parses an HTML file. "-" reads from standard input.
func (r *DocumentReader) ReadFromFile(filename string) (*goquery.Document, error) {
	if filename == "-" {
		doc, err := goquery.NewDocumentFromReader(r.Stdin)
		if err != nil {
			return nil, fmt.Errorf("parse stdin: %w", err)
		}
		return doc, nil
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	doc, err := goquery.NewDocumentFromReader(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return doc, nil
}

// GetDocument reads the configured input file
func (r *DocumentReader) GetDocument() (*goquery.Document, error) {
	if r.Config.InputFile == "" {
		return nil, fmt.Errorf("no input file configured")
	}
	return r.ReadFromFile(r.Config.InputFile)
}
