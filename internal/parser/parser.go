// Package parser implements the MIME/extension → parser dispatch
// table and the format-specific extractors.
package parser

import "fmt"

// Page is one normalized page of extracted text.
type Page struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// Result is the normalized output contract every parser returns.
type Result struct {
	Pages      []Page                 `json:"pages"`
	PageCount  int                    `json:"page_count"`
	CharCount  int                    `json:"char_count"`
	WordCount  int                    `json:"word_count"`
	Metadata   map[string]interface{} `json:"metadata"`
	ParserName string                 `json:"parser_name"`
}

// Parser extracts normalized pages from raw document bytes.
type Parser interface {
	Parse(data []byte) (*Result, error)
}

// ParserFunc adapts a plain function to the Parser interface.
type ParserFunc func(data []byte) (*Result, error)

func (f ParserFunc) Parse(data []byte) (*Result, error) { return f(data) }

// ErrUnsupportedFormat is returned by Route when no parser matches.
var ErrUnsupportedFormat = fmt.Errorf("unsupported_format")

// byMIME is the primary dispatch table: canonical MIME type -> parser.
var byMIME = map[string]Parser{
	"application/pdf": ParserFunc(ParsePDF),

	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ParserFunc(ParseDOCX),
	"application/msword": ParserFunc(ParseDOCX),

	"text/plain": ParserFunc(ParseTXT),

	"text/csv": ParserFunc(ParseCSV),

	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": ParserFunc(ParseXLSX),
	"application/vnd.ms-excel":                                          ParserFunc(ParseXLSX),

	"text/html": ParserFunc(ParseHTML),
}

// bySourceType is the secondary dispatch table: source type -> canonical MIME.
var bySourceType = map[string]string{
	"pdf":  "application/pdf",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"doc":  "application/msword",
	"txt":  "text/plain",
	"csv":  "text/csv",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"xls":  "application/vnd.ms-excel",
	"html": "text/html",
}

// Route looks up a parser by MIME type, falling back to source type.
func Route(mimeType, sourceType string) (Parser, error) {
	if p, ok := byMIME[mimeType]; ok {
		return p, nil
	}
	if canonical, ok := bySourceType[sourceType]; ok {
		if p, ok := byMIME[canonical]; ok {
			return p, nil
		}
	}
	return nil, ErrUnsupportedFormat
}

// countWords returns a simple whitespace-delimited word count.
func countWords(text string) int {
	count := 0
	inWord := false
	for _, r := range text {
		isSpace := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if isSpace {
			inWord = false
			continue
		}
		if !inWord {
			count++
			inWord = true
		}
	}
	return count
}

// summarize fills PageCount/CharCount/WordCount from Pages.
func summarize(pages []Page) (pageCount, charCount, wordCount int) {
	pageCount = len(pages)
	for _, p := range pages {
		charCount += len(p.Text)
		wordCount += countWords(p.Text)
	}
	return
}
