package service

import (
	"fmt"

	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
)

const abstainMessage = "I don't have enough information in the ingested documents to answer that."

// AbstainResult is the outcome of one abstain check. The query
// pipeline abstains rather than generate an answer from weak evidence;
// Reason is logged, never shown to the user.
type AbstainResult struct {
	ShouldAbstain bool
	Reason        string
}

// CheckAbstainZeroCandidates abstains when neither vector nor FTS
// search found any chunk for the tenant's active document versions,
// before RRF or reranking run.
func CheckAbstainZeroCandidates(vecCount, ftsCount int) *AbstainResult {
	if vecCount == 0 && ftsCount == 0 {
		return &AbstainResult{
			ShouldAbstain: true,
			Reason:        "zero candidates from both vector and FTS search",
		}
	}
	return &AbstainResult{ShouldAbstain: false}
}

// CheckAbstainPostRerank gates on the top rerank score. Only called
// when the reranker actually ran (not skipped via fail-open).
func CheckAbstainPostRerank(chunks []model.ChunkResult, threshold float64) *AbstainResult {
	return checkTopScore(chunks, threshold, "rerank", func(c model.ChunkResult) float64 {
		return c.RerankScore
	})
}

// CheckAbstainPostRRF gates on the top fused RRF score, used when the
// reranker was skipped or failed open.
func CheckAbstainPostRRF(chunks []model.ChunkResult, threshold float64) *AbstainResult {
	return checkTopScore(chunks, threshold, "RRF", func(c model.ChunkResult) float64 {
		return c.RRFScore
	})
}

// checkTopScore abstains when no chunks survived the stage or when the
// best-scoring chunk falls below threshold. The chunks are already
// sorted best-first by the stage that produced them.
func checkTopScore(chunks []model.ChunkResult, threshold float64, stage string, score func(model.ChunkResult) float64) *AbstainResult {
	if len(chunks) == 0 {
		return &AbstainResult{
			ShouldAbstain: true,
			Reason:        fmt.Sprintf("no chunks after %s", stage),
		}
	}
	if top := score(chunks[0]); top < threshold {
		return &AbstainResult{
			ShouldAbstain: true,
			Reason:        fmt.Sprintf("top %s score %.4f below threshold %.4f", stage, top, threshold),
		}
	}
	return &AbstainResult{ShouldAbstain: false}
}

// AbstainResponse builds the QueryResponse returned for every abstain,
// regardless of which check fired.
func AbstainResponse() *model.QueryResponse {
	return &model.QueryResponse{
		Answer:    abstainMessage,
		Citations: []model.Citation{},
		Abstained: true,
	}
}
