package parser

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ParsePDF extracts text page-by-page. The primary extractor uses
// structural text extraction; if it yields zero total characters, a
// layout-based fallback is used instead. A document that fails to
// open is returned as an error, with no fallback. Individual page
// failures inside either extractor degrade to empty pages rather than
// aborting the document.
func ParsePDF(data []byte) (*Result, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	pages := extractPlainText(reader)
	variant := "structural"

	if totalChars(pages) == 0 {
		pages = extractLayout(reader)
		variant = "layout_fallback"
	}

	pageCount, charCount, wordCount := summarize(pages)
	return &Result{
		Pages:      pages,
		PageCount:  pageCount,
		CharCount:  charCount,
		WordCount:  wordCount,
		Metadata:   map[string]interface{}{"extractor": variant},
		ParserName: "pdf",
	}, nil
}

// extractPlainText is the primary extractor: structural text
// extraction preserving page boundaries. A page that fails to extract
// degrades to an empty page rather than aborting the document.
func extractPlainText(r *pdf.Reader) []Page {
	n := r.NumPage()
	pages := make([]Page, 0, n)
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, Page{PageNumber: i, Text: ""})
			continue
		}

		text, err := safeGetPlainText(page)
		if err != nil {
			pages = append(pages, Page{PageNumber: i, Text: ""})
			continue
		}
		pages = append(pages, Page{PageNumber: i, Text: strings.TrimSpace(text)})
	}
	return pages
}

// safeGetPlainText recovers from panics raised deep in the PDF
// content-stream decoder on malformed pages.
func safeGetPlainText(page pdf.Page) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic extracting page text: %v", rec)
		}
	}()
	return page.GetPlainText(nil)
}

// extractLayout is the fallback extractor: it reconstructs text from
// raw content-stream rows by sorting glyph positions into reading
// order, used when the primary extractor returns no text at all.
func extractLayout(r *pdf.Reader) []Page {
	n := r.NumPage()
	pages := make([]Page, 0, n)
	for i := 1; i <= n; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			pages = append(pages, Page{PageNumber: i, Text: ""})
			continue
		}

		text, err := safeExtractRows(page)
		if err != nil {
			pages = append(pages, Page{PageNumber: i, Text: ""})
			continue
		}
		pages = append(pages, Page{PageNumber: i, Text: text})
	}
	return pages
}

func safeExtractRows(page pdf.Page) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic extracting page rows: %v", rec)
		}
	}()

	rows, rowErr := page.GetTextByRow()
	if rowErr != nil {
		return "", rowErr
	}

	sort.SliceStable(rows, func(a, b int) bool { return rows[a].Position > rows[b].Position })

	var sb strings.Builder
	for _, row := range rows {
		var words []string
		for _, word := range row.Content {
			if word.S != "" {
				words = append(words, word.S)
			}
		}
		sb.WriteString(strings.Join(words, " "))
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}

func totalChars(pages []Page) int {
	total := 0
	for _, p := range pages {
		total += len(p.Text)
	}
	return total
}
