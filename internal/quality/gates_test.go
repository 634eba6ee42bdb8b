package quality

import (
	"strings"
	"testing"

	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
)

func pagesOf(texts ...string) []Page {
	var pages []Page
	for _, t := range texts {
		pages = append(pages, Page{Text: t})
	}
	return pages
}

func TestEvaluateEmptyExtraction(t *testing.T) {
	v := Evaluate(pagesOf("", ""))
	if v.Pass {
		t.Fatal("expected fail for zero total chars")
	}
	if v.ErrorCode != model.ErrExtractionEmpty {
		t.Errorf("expected extraction_empty, got %s", v.ErrorCode)
	}
}

func TestEvaluateNeedsOCR(t *testing.T) {
	pages := pagesOf(strings.Repeat("x", 5), strings.Repeat("x", 5), "", "", "")
	v := Evaluate(pages)
	if v.Pass {
		t.Fatal("expected fail for scanned document")
	}
	if v.ErrorCode != model.ErrNeedsOCR {
		t.Errorf("expected needs_ocr, got %s", v.ErrorCode)
	}
}

func TestEvaluateLowQualityRequiresTwoIssues(t *testing.T) {
	// 8 pages, mostly empty: trips rule 3 (below minimum total chars),
	// rule 4 (nonEmptyRatio < 0.5), and rule 5 (avgCharsPerPage < 20),
	// while staying clear of the needs_ocr rule (nonEmptyRatio >= 0.3).
	pages := pagesOf(
		strings.Repeat("x", 20),
		strings.Repeat("x", 20),
		strings.Repeat("x", 20),
		"", "", "", "", "",
	)
	v := Evaluate(pages)
	if v.Pass {
		t.Fatal("expected fail with >= 2 issues")
	}
	if v.ErrorCode != model.ErrExtractionLowQuality {
		t.Errorf("expected extraction_low_quality, got %s", v.ErrorCode)
	}
}

func TestEvaluatePassesGoodExtraction(t *testing.T) {
	good := strings.Repeat("word ", 100)
	pages := pagesOf(good, good, good)
	v := Evaluate(pages)
	if !v.Pass {
		t.Errorf("expected pass, got fail with code %s", v.ErrorCode)
	}
}

func TestEvaluateSingleIssueStillPasses(t *testing.T) {
	// Single page below the 20-char minimum trips rule 3 alone; one
	// issue is not enough to fail extraction_low_quality (needs >= 2).
	v := Evaluate(pagesOf(strings.Repeat("x", 15)))
	if !v.Pass {
		t.Errorf("expected pass with a single issue, got fail with code %s", v.ErrorCode)
	}
	if v.Issues != 1 {
		t.Errorf("expected 1 issue recorded, got %d", v.Issues)
	}
}

func TestClassifyOrderedSubstringMatch(t *testing.T) {
	cases := []struct {
		raw  string
		want model.ErrorCode
	}{
		{"HTTP 429 rate limit exceeded", model.ErrProviderRateLimited},
		{"context deadline exceeded: timed out", model.ErrTimeout},
		{"invalid pdf structure, bad xref table", model.ErrFileCorrupted},
		{"unsupported media type", model.ErrUnsupportedFormat},
		{"file too large for memory", model.ErrFileTooLarge},
		{"something unexpected happened", model.ErrParseFailed},
	}
	for _, c := range cases {
		if got := Classify(c.raw); got != c.want {
			t.Errorf("Classify(%q) = %s, want %s", c.raw, got, c.want)
		}
	}
}
