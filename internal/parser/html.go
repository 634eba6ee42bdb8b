package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const htmlCharsPerPage = 5000

// removableSelectors strips navigational/interactive chrome before
// text extraction.
const removableSelectors = "script, style, noscript, iframe, svg, nav, footer, header, aside, form, input, button, " +
	`[role="banner"], [role="navigation"], [role="contentinfo"]`

// ParseHTML extracts readable text from an HTML document, preferring
// the main content region, and paginates on ~5000-character logical
// pages aligned to paragraph boundaries.
func ParseHTML(data []byte) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(data)))
	if err != nil {
		return nil, err
	}

	title := extractTitle(doc)

	doc.Find(removableSelectors).Remove()

	root := selectContentRoot(doc)
	paragraphs := extractParagraphs(root)

	if len(paragraphs) == 0 {
		return &Result{
			Pages:      []Page{},
			Metadata:   map[string]interface{}{"title": title},
			ParserName: "html",
		}, nil
	}

	pages := paginateParagraphs(paragraphs, htmlCharsPerPage)
	pageCount, charCount, wordCount := summarize(pages)

	return &Result{
		Pages:      pages,
		PageCount:  pageCount,
		CharCount:  charCount,
		WordCount:  wordCount,
		Metadata:   map[string]interface{}{"title": title},
		ParserName: "html",
	}, nil
}

func extractTitle(doc *goquery.Document) string {
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// selectContentRoot prefers <main>, then <article>, then [role=main],
// falling back to <body>.
func selectContentRoot(doc *goquery.Document) *goquery.Selection {
	for _, sel := range []string{"main", "article", `[role="main"]`} {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s
		}
	}
	return doc.Find("body")
}

// extractParagraphs collects block-level text nodes in document
// order, normalizing inner whitespace while preserving paragraph
// boundaries between blocks.
func extractParagraphs(root *goquery.Selection) []string {
	blocks := root.Find("p, h1, h2, h3, h4, h5, h6, li, blockquote, td, th")
	var paragraphs []string
	if blocks.Length() == 0 {
		if text := normalizeWhitespace(root.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
		return paragraphs
	}

	blocks.Each(func(_ int, s *goquery.Selection) {
		text := normalizeWhitespace(s.Text())
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return paragraphs
}

func normalizeWhitespace(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

// paginateParagraphs packs paragraphs into ~maxChars pages, preferring
// to break on a paragraph boundary when that boundary falls within the
// final 30% of the page. Implemented as an explicit two-pointer scan
// over the paragraph list, rather than
// mutating a loop counter mid-iteration.
func paginateParagraphs(paragraphs []string, maxChars int) []Page {
	var pages []Page
	pageNum := 1
	lo := 0

	for lo < len(paragraphs) {
		hi := lo
		total := 0
		lastGoodBreak := -1
		minBreakLen := int(float64(maxChars) * 0.7)

		for hi < len(paragraphs) {
			next := len(paragraphs[hi])
			if hi > lo {
				next += 2 // account for the "\n\n" join
			}
			if total+next > maxChars && hi > lo {
				break
			}
			total += next
			if total >= minBreakLen {
				lastGoodBreak = hi
			}
			hi++
		}

		// If a paragraph boundary exists within the final 30% of the
		// page and we still have remaining paragraphs, cut there;
		// otherwise take everything accumulated in this pass.
		cut := hi
		if lastGoodBreak >= 0 && lastGoodBreak+1 < hi {
			cut = lastGoodBreak + 1
		}
		if cut <= lo {
			cut = lo + 1
		}

		pages = append(pages, Page{
			PageNumber: pageNum,
			Text:       strings.Join(paragraphs[lo:cut], "\n\n"),
		})
		pageNum++
		lo = cut
	}

	return pages
}
