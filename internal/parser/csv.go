package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

const (
	csvRowsPerPage = 100
	csvMaxRows     = 10000
)

// ParseCSV parses a header-row CSV into "Header: value | Header: value"
// lines, 100 rows per logical page, hard-capped at 10000 rows.
func ParseCSV(data []byte) (*Result, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1 // tolerate ragged rows instead of aborting
	r.LazyQuotes = true

	header, err := r.Read()
	if err == io.EOF {
		return &Result{
			Pages:      []Page{},
			Metadata:   map[string]interface{}{},
			ParserName: "csv",
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	var warnings []string
	var lines []string
	truncated := false

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			warnings = append(warnings, err.Error())
			continue
		}

		if len(lines) >= csvMaxRows {
			truncated = true
			continue
		}

		lines = append(lines, formatRow(header, record))
	}

	var pages []Page
	pageNum := 1
	for start := 0; start < len(lines); start += csvRowsPerPage {
		end := start + csvRowsPerPage
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, Page{
			PageNumber: pageNum,
			Text:       strings.Join(lines[start:end], "\n"),
		})
		pageNum++
	}

	pageCount, charCount, wordCount := summarize(pages)
	meta := map[string]interface{}{
		"truncated": truncated,
		"row_count": len(lines),
	}
	if len(warnings) > 0 {
		meta["warnings"] = warnings
	}

	return &Result{
		Pages:      pages,
		PageCount:  pageCount,
		CharCount:  charCount,
		WordCount:  wordCount,
		Metadata:   meta,
		ParserName: "csv",
	}, nil
}

// formatRow renders one data row as "Header: value | Header: value",
// omitting empty fields.
func formatRow(header, record []string) string {
	var parts []string
	for i, value := range record {
		if value == "" {
			continue
		}
		name := fmt.Sprintf("col%d", i+1)
		if i < len(header) && header[i] != "" {
			name = header[i]
		}
		parts = append(parts, fmt.Sprintf("%s: %s", name, value))
	}
	return strings.Join(parts, " | ")
}
