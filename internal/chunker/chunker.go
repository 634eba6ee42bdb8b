// Package chunker implements the semantic sentence-aware chunker
//: it packs page text into overlapping, size-budgeted
// chunks while tracking page provenance.
package chunker

import (
	"regexp"
	"strings"

	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
)

// Config is the chunk-size budget. Fields are used as given; zero
// values are not replaced by defaults (DefaultConfig returns the
// standard budget).
type Config struct {
	MaxChunkSize int
	MinChunkSize int
	OverlapSize  int
}

// DefaultConfig returns the standard budget: 1000/200/100.
func DefaultConfig() Config {
	return Config{MaxChunkSize: 1000, MinChunkSize: 200, OverlapSize: 100}
}

// collapseNewlinesRe collapses 3+ consecutive newlines down to 2.
var collapseNewlinesRe = regexp.MustCompile(`\n{3,}`)

// sentenceBoundaryRe matches a sentence-ending punctuation mark
// followed by whitespace and an uppercase letter (including Ä Ö Ü),
// or a paragraph break (a run of 2+ newlines).
var sentenceBoundaryRe = regexp.MustCompile(`([.!?])\s+([A-ZÄÖÜ])|\n{2,}`)

type sentence struct {
	text string
	page int
}

// Chunk splits the given pages into sentence-aware, overlapping
// chunks bound by cfg, tagging each chunk with TenantID/DocVersionID
// and contiguous 0-based ordinals.
func Chunk(tenantID, docVersionID string, pages []model.DocumentPage, cfg Config) []model.DocumentChunk {
	var sentences []sentence
	for _, p := range pages {
		for _, s := range splitSentences(normalizePage(p.Text)) {
			sentences = append(sentences, sentence{text: s, page: p.PageNumber})
		}
	}
	if len(sentences) == 0 {
		return nil
	}

	var chunks []model.DocumentChunk
	ordinal := 0

	var current []sentence
	currentLen := 0

	emit := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, buildChunk(tenantID, docVersionID, ordinal, current))
		ordinal++
	}

	for _, s := range sentences {
		sep := 0
		if currentLen > 0 {
			sep = 1
		}
		prospective := currentLen + sep + len(s.text)

		if currentLen > 0 && prospective > cfg.MaxChunkSize {
			if currentLen >= cfg.MinChunkSize {
				emit()
				current = seedOverlap(current, cfg.OverlapSize)
				currentLen = sumLen(current)
			}
			// Below minChunkSize: no clean emit point, keep growing
			// past the soft budget rather than dropping content.
		}

		if currentLen > 0 {
			currentLen++
		}
		current = append(current, s)
		currentLen += len(s.text)
	}

	if len(current) > 0 {
		if currentLen >= cfg.MinChunkSize || len(chunks) == 0 {
			emit()
		}
	}

	return chunks
}

func normalizePage(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return collapseNewlinesRe.ReplaceAllString(text, "\n\n")
}

// splitSentences applies sentenceBoundaryRe, keeping the punctuation
// and trailing uppercase letter attached to their respective
// sentences and discarding paragraph-break newlines outright.
func splitSentences(text string) []string {
	matches := sentenceBoundaryRe.FindAllStringSubmatchIndex(text, -1)
	var out []string
	last := 0

	for _, m := range matches {
		if m[2] != -1 {
			// Punctuation + whitespace + uppercase: split right before
			// the uppercase letter (m[4]).
			splitAt := m[4]
			out = append(out, text[last:splitAt])
			last = splitAt
		} else {
			// Paragraph break: split and discard the newlines.
			out = append(out, text[last:m[0]])
			last = m[1]
		}
	}
	out = append(out, text[last:])

	var trimmed []string
	for _, s := range out {
		s = strings.TrimSpace(s)
		if s != "" {
			trimmed = append(trimmed, s)
		}
	}
	return trimmed
}

func sumLen(sentences []sentence) int {
	total := 0
	for i, s := range sentences {
		if i > 0 {
			total++
		}
		total += len(s.text)
	}
	return total
}

// seedOverlap returns the trailing sentences of chunk, taken from the
// end, whose cumulative length is <= overlapSize.
func seedOverlap(chunk []sentence, overlapSize int) []sentence {
	if overlapSize <= 0 || len(chunk) == 0 {
		return nil
	}
	total := 0
	start := len(chunk)
	for i := len(chunk) - 1; i >= 0; i-- {
		add := len(chunk[i].text)
		if start < len(chunk) {
			add++
		}
		if total+add > overlapSize {
			break
		}
		total += add
		start = i
	}
	out := make([]sentence, len(chunk[start:]))
	copy(out, chunk[start:])
	return out
}

func buildChunk(tenantID, docVersionID string, ordinal int, sentences []sentence) model.DocumentChunk {
	texts := make([]string, len(sentences))
	for i, s := range sentences {
		texts[i] = s.text
	}
	// pageStart is the chunk's first page; pageEnd is the last page
	// whose sentence was appended.
	pageStart := sentences[0].page
	pageEnd := sentences[len(sentences)-1].page

	return model.DocumentChunk{
		TenantID:     tenantID,
		DocVersionID: docVersionID,
		Ordinal:      ordinal,
		Text:         strings.Join(texts, " "),
		PageStart:    pageStart,
		PageEnd:      pageEnd,
		Sentences:    texts,
		TokenCount:   estimateTokens(texts),
	}
}

// estimateTokens uses a coarse chars/4 heuristic; exact tokenization
// is the embedding provider's concern, not the chunker's.
func estimateTokens(sentences []string) int {
	total := 0
	for _, s := range sentences {
		total += len(s)
	}
	return total / 4
}
