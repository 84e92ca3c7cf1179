package retrieval

import (
	"context"
	"fmt"
	"strings"

	"mindvault/internal/contextutil"
	"mindvault/internal/llm"
	"mindvault/internal/memory"
)

const (
	defaultTopK = 5

	noInformationAnswer = "I couldn't find relevant information in your files. Try ingesting some files first."

	verificationCaveat = "\n\n⚠️ Note: This answer may not be fully grounded in your files. Please verify the information."
)

// QueryRequest is one question against the user's stored files.
type QueryRequest struct {
	Question string                 `json:"question"`
	TopK     int                    `json:"top_k,omitempty"`
	History  []llm.ConversationTurn `json:"history,omitempty"`
	UserID   string                 `json:"-"`
}

// SourceFile identifies a document that grounded the answer.
type SourceFile struct {
	DocID    string  `json:"doc_id"`
	FileName string  `json:"file_name"`
	FilePath string  `json:"file_path"`
	Category string  `json:"category"`
	Distance float64 `json:"distance"`
}

// QueryResponse carries the answer, its grounding documents, and whether the
// model confirmed the answer is supported by them.
type QueryResponse struct {
	Answer   string       `json:"answer"`
	Sources  []SourceFile `json:"sources"`
	Verified bool         `json:"verified"`
}

// Searcher finds stored documents relevant to a question.
type Searcher interface {
	Query(ctx context.Context, question string, topK int, userID string) ([]memory.QueryHit, error)
}

// Answerer generates and verifies answers from retrieved context.
type Answerer interface {
	Answer(ctx context.Context, question, fileContext string, history []llm.ConversationTurn) (string, error)
	Verify(ctx context.Context, question, fileContext, answer string) bool
}

// Engine answers questions over the memory store with a two-stage relevance
// filter: hits beyond the absolute ceiling are discarded outright, and of the
// rest only those within the band of the best hit are kept.
type Engine struct {
	memories Searcher
	analyzer Answerer
	ceiling  float64
	band     float64
}

func NewEngine(memories Searcher, analyzer Answerer, ceiling, band float64) *Engine {
	return &Engine{
		memories: memories,
		analyzer: analyzer,
		ceiling:  ceiling,
		band:     band,
	}
}

// Query retrieves relevant documents and asks the model to answer from them.
// When nothing relevant is stored, the response is a fixed no-information
// answer with no sources, reported as verified.
func (e *Engine) Query(ctx context.Context, req QueryRequest) (QueryResponse, error) {
	logger := contextutil.LoggerFromContext(ctx)

	topK := req.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	hits, err := e.memories.Query(ctx, req.Question, topK, req.UserID)
	if err != nil {
		return QueryResponse{}, fmt.Errorf("failed to search memories: %w", err)
	}
	if len(hits) == 0 {
		return QueryResponse{Answer: noInformationAnswer, Sources: []SourceFile{}, Verified: true}, nil
	}

	best := hits[0].Distance
	for _, hit := range hits[1:] {
		if hit.Distance < best {
			best = hit.Distance
		}
	}
	if best > e.ceiling {
		logger.InfoContext(ctx, "best hit beyond relevance ceiling", "distance", best, "ceiling", e.ceiling)
		return QueryResponse{Answer: noInformationAnswer, Sources: []SourceFile{}, Verified: true}, nil
	}

	var relevant []memory.QueryHit
	for _, hit := range hits {
		if hit.Distance <= best+e.band {
			relevant = append(relevant, hit)
		}
	}

	fileContext := buildContext(relevant)
	answer, err := e.analyzer.Answer(ctx, req.Question, fileContext, req.History)
	if err != nil {
		return QueryResponse{}, fmt.Errorf("failed to generate answer: %w", err)
	}

	verified := e.analyzer.Verify(ctx, req.Question, fileContext, answer)
	if !verified {
		logger.WarnContext(ctx, "answer failed verification", "question", req.Question)
		answer += verificationCaveat
	}

	sources := make([]SourceFile, 0, len(relevant))
	for _, hit := range relevant {
		sources = append(sources, SourceFile{
			DocID:    hit.DocID,
			FileName: hit.FileName,
			FilePath: hit.FilePath,
			Category: hit.Category,
			Distance: hit.Distance,
		})
	}

	return QueryResponse{Answer: answer, Sources: sources, Verified: verified}, nil
}

// buildContext renders the retrieved documents into the prompt context the
// model answers from.
func buildContext(hits []memory.QueryHit) string {
	blocks := make([]string, 0, len(hits))
	for _, hit := range hits {
		blocks = append(blocks, fmt.Sprintf("File: %s\nDescription: %s\nContent: %s",
			hit.FileName, hit.Description, hit.ContentSnippet))
	}
	return strings.Join(blocks, "\n\n---\n\n")
}
