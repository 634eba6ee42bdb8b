package service

import (
	"fmt"
	"strings"

	"github.com/jharjadi/pro-rag/core-api-go/internal/model"
)

// SystemPrompt is the hardcoded V1 system prompt.
// Hardcoded as a named constant; prompt iteration is high-frequency and
// a constant makes it easy to find and change. Template files add
// indirection without benefit at this scale.
const SystemPrompt = `You are a careful assistant answering questions using ONLY the provided context.
Rules:
1) If the answer is not clearly supported by the context, say you don't know and ask a clarifying question.
2) Do NOT use outside knowledge. Do NOT guess.
3) Every factual claim must include citations like [chunk:<CHUNK_ID>].
4) If the user asks for something outside scope, explain what's missing.

Example of abstaining:
User: What is our parental leave policy in Germany?
Assistant: I don't have enough information in the current documents to answer this specifically for Germany. The available documents cover US policy only. Could you clarify which document should contain this, or check whether the Germany-specific policy has been uploaded?`

// FormatContext formats chunks into the context block for the LLM
// prompt. The Pages line carries the chunk's source-page provenance so
// an answer can point a reader back into the original document. Each
// chunk is rendered as:
//
//	Title: <title>
//	Version: <version_label>
//	Pages: <page_start>-<page_end>
//	ChunkID: <chunk_id>
//	Text: <chunk text>
func FormatContext(chunks []model.ChunkResult) string {
	var sb strings.Builder
	for i, c := range chunks {
		if i > 0 {
			sb.WriteString("\n---\n")
		}
		sb.WriteString(fmt.Sprintf("Title: %s\n", c.Title))
		sb.WriteString(fmt.Sprintf("Version: %s\n", c.VersionLabel))
		sb.WriteString(fmt.Sprintf("Pages: %s\n", formatPageRange(c.PageStart, c.PageEnd)))
		sb.WriteString(fmt.Sprintf("ChunkID: %s\n", c.ChunkID))
		sb.WriteString(fmt.Sprintf("Text: %s\n", c.Text))
	}
	return sb.String()
}

func formatPageRange(start, end int) string {
	if start == end {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d-%d", start, end)
}

// BuildUserMessage builds the user message with context + question.
func BuildUserMessage(contextBlock, question string) string {
	return fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextBlock, question)
}
