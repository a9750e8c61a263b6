package io

import (
	"bytes"
	"fmt"
	stdio "io"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/williampepple1/coze-template-scraper/pkg/models"
)

// ContentTypeCSV is the MIME type of an exported file
const ContentTypeCSV = "text/csv;charset=utf-8"

// ContentTypeJSON is the MIME type of a JSON export
const ContentTypeJSON = "application/json;charset=utf-8"

// EncodeCSV renders records as CSV text prefixed with a UTF-8 byte-order mark
// so spreadsheet tools pick the right character set.
func EncodeCSV(records []models.Record, headers []string) []byte {
	var buf bytes.Buffer
	// writes to a bytes.Buffer cannot fail
	_ = WriteCSV(&buf, records, headers)
	return buf.Bytes()
}

// WriteCSV writes the header row and one row per record to w. Text cells are
// always quoted, the copy count never is. Rows are separated by "\n" with no
// trailing newline.
func WriteCSV(w stdio.Writer, records []models.Record, headers []string) error {
	bw := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())

	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = headerCell(h)
	}
	if _, err := stdio.WriteString(bw, strings.Join(cells, ",")); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, record := range records {
		if _, err := stdio.WriteString(bw, "\n"+Row(record)); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}

	return bw.Close()
}

// Row formats one record as a CSV line without the line terminator
func Row(r models.Record) string {
	return strings.Join([]string{
		quoted(r.Title),
		quoted(r.Author),
		quoted(r.Description),
		quoted(r.ApplicationType),
		quoted(r.Price),
		count(r.CopyCount),
		quoted(r.BackgroundImage),
	}, ",")
}

func quoted(s *string) string {
	if s == nil {
		return `""`
	}
	return `"` + strings.ReplaceAll(*s, `"`, `""`) + `"`
}

func count(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func headerCell(h string) string {
	if strings.ContainsAny(h, ",\"\r\n") {
		return `"` + strings.ReplaceAll(h, `"`, `""`) + `"`
	}
	return h
}
