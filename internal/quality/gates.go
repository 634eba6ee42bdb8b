// Package quality implements the page-count-aware extraction quality
// gate and the raw-error-to-ErrorCode classifier.
package quality

import "github.com/jharjadi/pro-rag/core-api-go/internal/model"

// Page is the minimal page shape the gate needs from a parser Result.
type Page struct {
	Text string
}

// Verdict is the gate's decision for one extracted document.
type Verdict struct {
	Pass            bool
	ErrorCode       model.ErrorCode
	TotalChars      int
	PageCount       int
	NonEmptyPages   int
	NonEmptyRatio   float64
	AvgCharsPerPage float64
	Issues          int
}

const nonEmptyPageThreshold = 10

// Evaluate scores extracted pages against the ordered rule set and
// returns a pass/fail verdict with an ErrorCode set only on failure.
func Evaluate(pages []Page) Verdict {
	pageCount := len(pages)

	totalChars := 0
	nonEmpty := 0
	for _, p := range pages {
		n := len(p.Text)
		totalChars += n
		if n > nonEmptyPageThreshold {
			nonEmpty++
		}
	}

	var nonEmptyRatio float64
	var avgCharsPerPage float64
	if pageCount > 0 {
		nonEmptyRatio = float64(nonEmpty) / float64(pageCount)
		avgCharsPerPage = float64(totalChars) / float64(pageCount)
	}

	v := Verdict{
		TotalChars:      totalChars,
		PageCount:       pageCount,
		NonEmptyPages:   nonEmpty,
		NonEmptyRatio:   nonEmptyRatio,
		AvgCharsPerPage: avgCharsPerPage,
	}

	// Rule 1.
	if totalChars == 0 {
		v.ErrorCode = model.ErrExtractionEmpty
		return v
	}

	// Rule 2.
	if pageCount > 1 && totalChars < 100 && nonEmptyRatio < 0.3 {
		v.ErrorCode = model.ErrNeedsOCR
		return v
	}

	issues := 0

	// Rule 3.
	minTotalChars := 20
	if pageCount > 1 {
		minTotalChars = 50 * pageCount
	}
	if totalChars < minTotalChars {
		issues++
	}

	// Rule 4.
	if pageCount > 3 && nonEmptyRatio < 0.5 {
		issues++
	}

	// Rule 5.
	if pageCount > 5 && avgCharsPerPage < 20 {
		issues++
	}

	v.Issues = issues
	if issues >= 2 {
		v.ErrorCode = model.ErrExtractionLowQuality
		return v
	}

	v.Pass = true
	return v
}
