package service

import (
	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
)

// SelectContextChunks packs ranked chunks into the LLM context budget.
// The budget is maxTokens minus overhead reserved for the system
// prompt and question. TokenCount on each chunk is the ingestion-time
// chars/4 estimate stamped by the chunker, so packing is conservative
// rather than exact. Selection walks the ranked order and stops at the
// first chunk that would overflow; skipping ahead to a smaller chunk
// would reorder evidence under the citations.
func SelectContextChunks(chunks []model.ChunkResult, maxTokens, overhead, maxChunks int) ([]model.ChunkResult, int) {
	budget := maxTokens - overhead
	if budget <= 0 || len(chunks) == 0 {
		return nil, 0
	}

	var selected []model.ChunkResult
	used := 0
	for _, c := range chunks {
		if len(selected) >= maxChunks || used+c.TokenCount > budget {
			break
		}
		selected = append(selected, c)
		used += c.TokenCount
	}

	return selected, used
}
