package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

const xlsxMaxRowsPerSheet = 5000

// ParseXLSX renders each worksheet as one logical page, header-pivoted
// like the CSV extractor, capped at 5000 data rows per sheet. Empty or
// header-only sheets are skipped.
func ParseXLSX(data []byte) (*Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open XLSX: %w", err)
	}
	defer f.Close()

	sheetCaps := map[string]bool{}
	var pages []Page
	pageNum := 1

	sheetList := f.GetSheetList()
	for _, sheet := range sheetList {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}
		if len(rows) < 2 {
			continue // empty or header-only
		}

		header := rows[0]
		dataRows := rows[1:]
		truncated := false
		if len(dataRows) > xlsxMaxRowsPerSheet {
			dataRows = dataRows[:xlsxMaxRowsPerSheet]
			truncated = true
		}
		sheetCaps[sheet] = truncated

		var lines []string
		for _, record := range dataRows {
			lines = append(lines, formatRow(header, record))
		}
		if len(lines) == 0 {
			continue
		}

		text := fmt.Sprintf("[Sheet: %s]\n%s", sheet, strings.Join(lines, "\n"))
		pages = append(pages, Page{PageNumber: pageNum, Text: text})
		pageNum++
	}

	pageCount, charCount, wordCount := summarize(pages)
	meta := map[string]interface{}{
		"sheet_truncated":  sheetCaps,
		"sheet_count":      len(sheetList),
		"processed_sheets": len(pages),
	}

	return &Result{
		Pages:      pages,
		PageCount:  pageCount,
		CharCount:  charCount,
		WordCount:  wordCount,
		Metadata:   meta,
		ParserName: "xlsx",
	}, nil
}
