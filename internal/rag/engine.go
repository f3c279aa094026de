package rag

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/wavetotxt/wavetotxt/internal/core"
	"github.com/wavetotxt/wavetotxt/internal/models"
)

const answerSystemPrompt = "You are a helpful assistant that answers questions about transcripts and documents. " +
	"Answer the question based ONLY on the provided context. " +
	"If the context does not contain enough information to answer the question, say " +
	"\"I don't have enough information in the provided context to answer this question.\" " +
	"Be concise and accurate. When the context includes speaker labels, attribute statements to the correct speakers."

const noResultsAnswer = "I don't have any relevant information to answer this question. " +
	"Please ensure your transcript or documents have been processed."

const sourcePreviewLen = 150

// Engine answers questions over one collection: embed the question, retrieve
// the nearest chunks, and generate a grounded answer with citations.
//
// Ask reports failures in-band on the result rather than as errors, so a
// degraded retrieval layer degrades the chat surface instead of breaking it.
type Engine struct {
	chunks   ChunkStore
	embedder core.EmbeddingProvider
	llm      core.LLMProvider
	topK     int
}

func NewEngine(chunks ChunkStore, embedder core.EmbeddingProvider, llm core.LLMProvider, topK int) *Engine {
	if topK <= 0 {
		topK = 5
	}
	return &Engine{chunks: chunks, embedder: embedder, llm: llm, topK: topK}
}

func (e *Engine) Ask(ctx context.Context, collection, question string, topK int) *models.ChatResult {
	if topK <= 0 {
		topK = e.topK
	}
	if e.embedder == nil || e.llm == nil || e.chunks == nil {
		return askFailure("The assistant is not configured on this deployment.")
	}

	vectors, err := e.embedder.EmbedTexts(ctx, []string{question})
	if err != nil || len(vectors) == 0 {
		log.Printf("question embedding failed for %s: %v", collection, err)
		return askFailure("Could not process the question. Please try again.")
	}

	retrieved, err := e.chunks.Search(ctx, collection, vectors[0], topK)
	if err != nil {
		log.Printf("retrieval failed for %s: %v", collection, err)
		return askFailure("Could not search the knowledge base. Please try again.")
	}
	if len(retrieved) == 0 {
		return &models.ChatResult{Answer: noResultsAnswer, Sources: []models.Source{}, Success: true}
	}

	contextText := formatContext(retrieved)
	prompt := fmt.Sprintf("Context:\n%s\n\nQuestion: %s\n\nAnswer:", contextText, question)

	answer, err := e.llm.Generate(ctx, answerSystemPrompt, prompt)
	if err != nil {
		log.Printf("answer generation failed for %s: %v", collection, err)
		return askFailure("Could not generate an answer. Please try again.")
	}

	return &models.ChatResult{
		Answer:      strings.TrimSpace(answer),
		Sources:     buildSources(retrieved),
		ContextUsed: contextText,
		Success:     true,
	}
}

// SuggestedQuestions returns starter questions for a fresh session.
func (e *Engine) SuggestedQuestions() []string {
	return []string{
		"What are the main topics discussed?",
		"What were the key decisions made?",
		"Who were the main participants?",
		"What action items were mentioned?",
		"Can you summarize the main points?",
	}
}

func formatContext(chunks []models.Chunk) string {
	var b strings.Builder
	for i, c := range chunks {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(contextLabel(c))
		b.WriteString("\n")
		b.WriteString(c.Text)
	}
	return b.String()
}

func contextLabel(c models.Chunk) string {
	if c.SourceType == models.SourceUploaded {
		if c.PageNumber >= 0 {
			return fmt.Sprintf("[Document: %s, Page %d]", c.FileName, c.PageNumber)
		}
		return fmt.Sprintf("[Document: %s]", c.FileName)
	}
	speaker := c.Speaker
	if speaker == "" {
		speaker = "Unknown Speaker"
	}
	return fmt.Sprintf("[Transcript - Speaker: %s, Part %d]", speaker, c.UtteranceIndex+1)
}

func buildSources(chunks []models.Chunk) []models.Source {
	out := make([]models.Source, 0, len(chunks))
	for _, c := range chunks {
		src := models.Source{
			Type:           c.SourceType,
			ContentPreview: preview(c.Text),
		}
		if c.SourceType == models.SourceUploaded {
			src.FileName = c.FileName
			src.FileType = c.FileType
			if c.PageNumber >= 0 {
				page := c.PageNumber
				src.PageNumber = &page
			}
		} else {
			src.Speaker = c.Speaker
			if c.UtteranceIndex >= 0 {
				idx := c.UtteranceIndex
				src.UtteranceIndex = &idx
			}
		}
		out = append(out, src)
	}
	return out
}

func preview(text string) string {
	if len(text) <= sourcePreviewLen {
		return text
	}
	return text[:sourcePreviewLen] + "..."
}

func askFailure(message string) *models.ChatResult {
	return &models.ChatResult{Sources: []models.Source{}, Success: false, Error: message}
}
