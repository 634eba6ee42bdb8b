package parser

import "strings"

const txtLinesPerPage = 100

// ParseTXT decodes UTF-8 text, normalizes CRLF/CR to LF, and paginates
// into logical pages of 100 lines.
func ParseTXT(data []byte) (*Result, error) {
	text := normalizeLineEndings(string(data))
	if strings.TrimSpace(text) == "" {
		return &Result{
			Pages:      []Page{},
			Metadata:   map[string]interface{}{},
			ParserName: "txt",
		}, nil
	}

	lines := strings.Split(text, "\n")
	// A trailing empty element from a final newline is not a line.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	var pages []Page
	pageNum := 1
	for start := 0; start < len(lines); start += txtLinesPerPage {
		end := start + txtLinesPerPage
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
	return &Result{
		Pages:      pages,
		PageCount:  pageCount,
		CharCount:  charCount,
		WordCount:  wordCount,
		Metadata:   map[string]interface{}{},
		ParserName: "txt",
	}, nil
}

func normalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return s
}
