package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
)

const docxParagraphsPerPage = 50

// ParseDOCX extracts paragraph and table text from a DOCX document and
// synthesizes logical pages of 50 paragraphs each, since DOCX carries
// no native page boundaries. Short documents collapse to
// a single page.
func ParseDOCX(data []byte) (*Result, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open DOCX: %w", err)
	}

	var warnings []string
	paragraphs := extractDocxParagraphs(doc, &warnings)

	if len(paragraphs) == 0 {
		meta := map[string]interface{}{}
		if len(warnings) > 0 {
			meta["warnings"] = warnings
		}
		return &Result{Pages: []Page{}, Metadata: meta, ParserName: "docx"}, nil
	}

	pages := paginateLines(paragraphs, docxParagraphsPerPage)
	pageCount, charCount, wordCount := summarize(pages)

	meta := map[string]interface{}{}
	if len(warnings) > 0 {
		meta["warnings"] = warnings
	}

	return &Result{
		Pages:      pages,
		PageCount:  pageCount,
		CharCount:  charCount,
		WordCount:  wordCount,
		Metadata:   meta,
		ParserName: "docx",
	}, nil
}

// extractDocxParagraphs walks the document body, rendering paragraphs
// and flattened table cells in document order. Items that fail to
// render are skipped and recorded as warnings rather than aborting.
func extractDocxParagraphs(doc *docx.Docx, warnings *[]string) []string {
	var out []string
	for _, item := range doc.Document.Body.Items {
		switch v := item.(type) {
		case *docx.Paragraph:
			text := safeDocxString(v, warnings)
			if strings.TrimSpace(text) != "" {
				out = append(out, strings.TrimSpace(text))
			}
		case *docx.Table:
			for _, row := range v.TableRows {
				var cells []string
				for _, cell := range row.TableCells {
					for _, p := range cell.Paragraphs {
						text := safeDocxString(p, warnings)
						if strings.TrimSpace(text) != "" {
							cells = append(cells, strings.TrimSpace(text))
						}
					}
				}
				if len(cells) > 0 {
					out = append(out, strings.Join(cells, " | "))
				}
			}
		}
	}
	return out
}

type stringer interface {
	String() string
}

func safeDocxString(v stringer, warnings *[]string) (text string) {
	defer func() {
		if rec := recover(); rec != nil {
			*warnings = append(*warnings, fmt.Sprintf("render error: %v", rec))
			text = ""
		}
	}()
	return v.String()
}

// paginateLines groups lines into pages of at most perPage entries.
func paginateLines(lines []string, perPage int) []Page {
	var pages []Page
	pageNum := 1
	for start := 0; start < len(lines); start += perPage {
		end := start + perPage
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, Page{
			PageNumber: pageNum,
			Text:       strings.Join(lines[start:end], "\n\n"),
		})
		pageNum++
	}
	return pages
}
