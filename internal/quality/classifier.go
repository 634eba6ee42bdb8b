package quality

import (
	"strings"

	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
)

// classifierRule maps a set of substrings (any match) to an ErrorCode.
// Rules are checked in order; the first match wins.
type classifierRule struct {
	substrings []string
	code       model.ErrorCode
}

var classifierRules = []classifierRule{
	{[]string{"rate limit", "429", "too many"}, model.ErrProviderRateLimited},
	{[]string{"timeout", "timed out", "aborted"}, model.ErrTimeout},
	{[]string{"invalid pdf", "corrupt", "bad xref"}, model.ErrFileCorrupted},
	{[]string{"unsupported", "unknown format", "not supported"}, model.ErrUnsupportedFormat},
	{[]string{"too large", "size limit", "memory"}, model.ErrFileTooLarge},
}

// Classify translates a raw error string into a closed ErrorCode by
// ordered substring match, defaulting to parse_failed.
func Classify(raw string) model.ErrorCode {
	lower := strings.ToLower(raw)
	for _, rule := range classifierRules {
		for _, s := range rule.substrings {
			if strings.Contains(lower, s) {
				return rule.code
			}
		}
	}
	return model.ErrParseFailed
}
