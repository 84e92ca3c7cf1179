package ingest

import (
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"sync"

	"mindvault/internal/contextutil"
	"mindvault/internal/extract"
	"mindvault/internal/llm"
	"mindvault/internal/memory"
	"mindvault/internal/modality"
)

// Request is one file submitted for ingestion. Content arrives base64
// encoded so binary modalities survive JSON transport.
type Request struct {
	FilePath      string `json:"file_path"`
	ContentBase64 string `json:"content_base64"`
	Filename      string `json:"filename,omitempty"`
	UserID        string `json:"-"`
}

// Result reports the outcome of ingesting one file.
type Result struct {
	Success     bool   `json:"success"`
	FilePath    string `json:"file_path"`
	DocID       string `json:"doc_id,omitempty"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	HasEvents   bool   `json:"has_events"`
	Error       string `json:"error,omitempty"`
}

// BatchResult aggregates per-file outcomes of a batch ingestion.
type BatchResult struct {
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Results   []Result `json:"results"`
}

// Analyzer produces the structured analysis the pipeline stores.
type Analyzer interface {
	Describe(ctx context.Context, filename, content string) llm.Description
	ExtractEvents(ctx context.Context, content string) llm.EventExtraction
}

// MemoryWriter persists document records into the vector store.
type MemoryWriter interface {
	Store(ctx context.Context, rec memory.DocumentRecord) (string, error)
}

// EventWriter persists extracted events.
type EventWriter interface {
	Store(ctx context.Context, candidates []llm.ExtractedEvent, sourceFile, sourcePath, userID string) (int, error)
}

// Pipeline runs a file through modality detection, content extraction, model
// analysis, and storage.
type Pipeline struct {
	registry *extract.Registry
	analyzer Analyzer
	memories MemoryWriter
	events   EventWriter
}

func NewPipeline(registry *extract.Registry, analyzer Analyzer, memories MemoryWriter, events EventWriter) *Pipeline {
	return &Pipeline{
		registry: registry,
		analyzer: analyzer,
		memories: memories,
		events:   events,
	}
}

// Ingest processes a single file end to end. Extraction and storage failures
// are reported in the result rather than returned, so batch callers can
// aggregate them.
func (p *Pipeline) Ingest(ctx context.Context, req Request) Result {
	logger := contextutil.LoggerFromContext(ctx)

	filename := req.Filename
	if filename == "" {
		filename = filepath.Base(req.FilePath)
	}
	result := Result{FilePath: req.FilePath}

	data, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		result.Error = fmt.Sprintf("invalid base64 content: %v", err)
		return result
	}

	mod := modality.Detect(filename)
	extractor, ok := p.registry.ForModality(mod)
	if !ok {
		result.Error = fmt.Sprintf("no extractor available for %s files", mod)
		return result
	}

	content, err := extractor.Extract(ctx, data, filename)
	if err != nil {
		logger.WarnContext(ctx, "extraction failed", "file", filename, "error", err)
		result.Error = fmt.Sprintf("extraction failed: %v", err)
		return result
	}
	if content == "" {
		result.Error = "Could not extract any content from file"
		return result
	}

	description := p.analyzer.Describe(ctx, filename, content)
	extraction := p.analyzer.ExtractEvents(ctx, content)

	docID, err := p.memories.Store(ctx, memory.DocumentRecord{
		FilePath:       req.FilePath,
		FileName:       filename,
		Modality:       mod,
		Description:    description.Description,
		Category:       description.Category,
		Summary:        description.Summary,
		ContentSnippet: content,
		HasEvents:      extraction.HasEvents,
		UserID:         req.UserID,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to store memory", "file", filename, "error", err)
		result.Error = fmt.Sprintf("failed to store memory: %v", err)
		return result
	}

	if extraction.HasEvents && len(extraction.Events) > 0 {
		inserted, err := p.events.Store(ctx, extraction.Events, filename, req.FilePath, req.UserID)
		if err != nil {
			logger.WarnContext(ctx, "failed to store events", "file", filename, "error", err)
		} else if inserted > 0 {
			logger.InfoContext(ctx, "stored extracted events", "file", filename, "count", inserted)
		}
	}

	result.Success = true
	result.DocID = docID
	result.Description = description.Description
	result.Category = description.Category
	result.HasEvents = extraction.HasEvents
	return result
}

// IngestBatch processes files concurrently. Each file is isolated: a panic
// or failure in one never affects the others.
func (p *Pipeline) IngestBatch(ctx context.Context, reqs []Request) BatchResult {
	logger := contextutil.LoggerFromContext(ctx)

	results := make([]Result, len(reqs))
	var wg sync.WaitGroup
	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req Request) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.ErrorContext(ctx, "ingestion panicked", "file", req.FilePath, "panic", r)
					results[i] = Result{
						FilePath: req.FilePath,
						Error:    fmt.Sprintf("internal error: %v", r),
					}
				}
			}()
			results[i] = p.Ingest(ctx, req)
		}(i, req)
	}
	wg.Wait()

	batch := BatchResult{Total: len(reqs), Results: results}
	for _, r := range results {
		if r.Success {
			batch.Succeeded++
		}
	}
	return batch
}
