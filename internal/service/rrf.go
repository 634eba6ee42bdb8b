package service

import (
	"sort"

	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
)

// MergeRRF fuses the vector and full-text candidate lists with
// Reciprocal Rank Fusion: each list contributes 1/(k + rank) per
// chunk, ranks 1-based, and a chunk surfaced by both lists sums both
// contributions. Ties are broken by doc version ID, then chunk
// ordinal, so the fused ranking is stable across runs.
func MergeRRF(vecResults, ftsResults []model.ChunkResult, rrfK int) []model.ChunkResult {
	merged := make(map[string]*model.ChunkResult, len(vecResults)+len(ftsResults))

	fuse := func(list []model.ChunkResult, stamp func(dst *model.ChunkResult, src model.ChunkResult, rank int)) {
		for i := range list {
			rank := i + 1
			entry, ok := merged[list[i].ChunkID]
			if !ok {
				cr := list[i]
				cr.RRFScore = 0
				entry = &cr
				merged[cr.ChunkID] = entry
			}
			entry.RRFScore += 1.0 / float64(rrfK+rank)
			stamp(entry, list[i], rank)
		}
	}

	fuse(vecResults, func(dst *model.ChunkResult, src model.ChunkResult, rank int) {
		dst.VecScore = src.VecScore
		dst.VecRank = rank
	})
	fuse(ftsResults, func(dst *model.ChunkResult, src model.ChunkResult, rank int) {
		dst.FTSScore = src.FTSScore
		dst.FTSRank = rank
	})

	results := make([]model.ChunkResult, 0, len(merged))
	for _, cr := range merged {
		results = append(results, *cr)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].RRFScore != results[j].RRFScore {
			return results[i].RRFScore > results[j].RRFScore
		}
		if results[i].DocVersionID != results[j].DocVersionID {
			return results[i].DocVersionID < results[j].DocVersionID
		}
		return results[i].Ordinal < results[j].Ordinal
	})

	return results
}
