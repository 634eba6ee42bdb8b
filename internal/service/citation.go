package service

import (
	"log/slog"
	"regexp"

	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
)

// citationRegex matches the [chunk:<CHUNK_ID>] markers the system
// prompt instructs the model to emit. Chunk IDs are the UUIDs minted
// when chunks are persisted at ingestion time.
var citationRegex = regexp.MustCompile(`\[chunk:([0-9a-fA-F-]{36})\]`)

// ParseCitations extracts the citation markers from the answer text
// and resolves each against the context chunks that were actually sent
// to the model, carrying the chunk's page provenance into the citation
// so the caller can point back at source pages. Markers referencing a
// chunk outside the sent context are hallucinations and are dropped
// with a warning log; duplicates are collapsed to their first mention.
func ParseCitations(responseText string, contextChunks []model.ChunkResult) []model.Citation {
	chunkMap := make(map[string]model.ChunkResult, len(contextChunks))
	for _, c := range contextChunks {
		chunkMap[c.ChunkID] = c
	}

	matches := citationRegex.FindAllStringSubmatch(responseText, -1)
	if len(matches) == 0 {
		return []model.Citation{}
	}

	seen := make(map[string]bool)
	citations := []model.Citation{}

	for _, match := range matches {
		chunkID := match[1]
		if seen[chunkID] {
			continue
		}
		seen[chunkID] = true

		chunk, ok := chunkMap[chunkID]
		if !ok {
			slog.Warn("hallucinated citation dropped",
				"chunk_id", chunkID,
				"context_chunk_count", len(contextChunks),
			)
			continue
		}

		citations = append(citations, model.Citation{
			DocID:        chunk.DocID,
			DocVersionID: chunk.DocVersionID,
			ChunkID:      chunk.ChunkID,
			Title:        chunk.Title,
			VersionLabel: chunk.VersionLabel,
			PageStart:    chunk.PageStart,
			PageEnd:      chunk.PageEnd,
		})
	}

	return citations
}
