package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"mindvault/internal/contextutil"
	"mindvault/internal/vectorindex"
)

// Embedder turns text into a fixed-dimension vector.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Store is the sole source of truth for semantic search over ingested files.
// The description is what gets embedded, not the raw file content: extracted
// content is often noisy (OCR artifacts, transcription errors) while the
// model-authored description is a clean semantic anchor. The raw-content
// snippet rides along purely for answer grounding.
type Store struct {
	index    vectorindex.VectorIndex
	embedder Embedder
}

// NewStore creates a memory store over a vector index and an embedder.
func NewStore(index vectorindex.VectorIndex, embedder Embedder) *Store {
	return &Store{
		index:    index,
		embedder: embedder,
	}
}

// Store embeds the record's description and upserts it keyed by the
// deterministic document id. Re-ingesting the same file path fully replaces
// the previous record: last write wins, no merge.
func (s *Store) Store(ctx context.Context, rec DocumentRecord) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if rec.FilePath == "" {
		return "", fmt.Errorf("file path is required")
	}
	rec.DocID = DocID(rec.FilePath)
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	rec.ContentSnippet = capSnippet(rec.ContentSnippet)

	embedding, err := s.embedder.EmbedText(ctx, rec.Description)
	if err != nil {
		return "", fmt.Errorf("failed to embed description: %w", err)
	}

	err = s.index.Upsert(ctx, []vectorindex.Point{{
		ID:      rec.DocID,
		Vector:  embedding,
		Payload: payloadFromRecord(rec),
	}})
	if err != nil {
		return "", fmt.Errorf("failed to store document: %w", err)
	}

	logger.InfoContext(ctx, "document stored", "doc_id", rec.DocID, "file", rec.FileName, "category", rec.Category)
	return rec.DocID, nil
}

// Query embeds the question and returns the topK nearest documents in the
// user's partition, annotated with cosine distance. An empty index yields an
// empty result, not an error.
func (s *Store) Query(ctx context.Context, question string, topK int, userID string) ([]QueryHit, error) {
	if topK < 1 {
		topK = 1
	}

	count, err := s.index.Count(ctx, vectorindex.Filter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}
	if count == 0 {
		return nil, nil
	}

	vector, err := s.embedder.EmbedText(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("failed to embed question: %w", err)
	}

	hits, err := s.index.Query(ctx, vector, topK, vectorindex.Filter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	results := make([]QueryHit, 0, len(hits))
	for _, hit := range hits {
		rec := recordFromPayload(hit.PointID, hit.Payload)
		results = append(results, QueryHit{
			DocumentRecord: rec,
			// The index reports cosine similarity; this design's convention
			// is distance = 1 - similarity.
			Distance: 1 - float64(hit.Score),
		})
	}
	return results, nil
}

// Get returns the record for docID, or nil when it is absent or belongs to a
// different user.
func (s *Store) Get(ctx context.Context, docID, userID string) (*DocumentRecord, error) {
	points, err := s.index.Retrieve(ctx, []string{docID}, false)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve document: %w", err)
	}
	if len(points) == 0 {
		return nil, nil
	}
	rec := recordFromPayload(points[0].PointID, points[0].Payload)
	if userID != "" && rec.UserID != userID {
		return nil, nil
	}
	return &rec, nil
}

// Delete removes the record if it exists and belongs to the caller's
// partition. Returns whether a deletion occurred.
func (s *Store) Delete(ctx context.Context, docID, userID string) (bool, error) {
	rec, err := s.Get(ctx, docID, userID)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	if err := s.index.Delete(ctx, []string{docID}); err != nil {
		return false, fmt.Errorf("failed to delete document: %w", err)
	}
	return true, nil
}

// List returns the user's records, optionally filtered by category and
// modality, newest first, capped at limit.
func (s *Store) List(ctx context.Context, category, modalityFilter string, limit int, userID string) ([]DocumentRecord, error) {
	points, err := s.index.Scroll(ctx, vectorindex.Filter{
		UserID:   userID,
		Category: category,
		Modality: modalityFilter,
	}, 0, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	records := make([]DocumentRecord, 0, len(points))
	for _, point := range points {
		records = append(records, recordFromPayload(point.PointID, point.Payload))
	}
	sortNewestFirst(records)
	return capRecords(records, limit), nil
}

// SearchText is a case-insensitive substring match over file name and
// description. The index has no native full-text capability, so this scans
// the user's records in memory.
func (s *Store) SearchText(ctx context.Context, query, category string, limit int, userID string) ([]DocumentRecord, error) {
	points, err := s.index.Scroll(ctx, vectorindex.Filter{
		UserID:   userID,
		Category: category,
	}, 0, false)
	if err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	needle := strings.ToLower(query)
	var records []DocumentRecord
	for _, point := range points {
		rec := recordFromPayload(point.PointID, point.Payload)
		if strings.Contains(strings.ToLower(rec.FileName), needle) ||
			strings.Contains(strings.ToLower(rec.Description), needle) {
			records = append(records, rec)
		}
	}
	sortNewestFirst(records)
	return capRecords(records, limit), nil
}

// Related returns the topK nearest neighbors of the given document, excluding
// the document itself.
func (s *Store) Related(ctx context.Context, docID string, topK int, userID string) ([]QueryHit, error) {
	if topK < 1 {
		topK = 1
	}

	points, err := s.index.Retrieve(ctx, []string{docID}, true)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve document: %w", err)
	}
	if len(points) == 0 || len(points[0].Vector) == 0 {
		return nil, nil
	}
	target := recordFromPayload(points[0].PointID, points[0].Payload)
	if userID != "" && target.UserID != userID {
		return nil, nil
	}

	// topK+1 because the document itself will be among its own neighbors
	hits, err := s.index.Query(ctx, points[0].Vector, topK+1, vectorindex.Filter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	related := make([]QueryHit, 0, len(hits))
	for _, hit := range hits {
		if hit.PointID == docID {
			continue
		}
		related = append(related, QueryHit{
			DocumentRecord: recordFromPayload(hit.PointID, hit.Payload),
			Distance:       1 - float64(hit.Score),
		})
	}
	if len(related) > topK {
		related = related[:topK]
	}
	return related, nil
}

// AllWithEmbeddings bulk-exports all of a user's records including their
// embeddings. Used by the graph builder.
func (s *Store) AllWithEmbeddings(ctx context.Context, userID string) ([]DocumentRecord, error) {
	points, err := s.index.Scroll(ctx, vectorindex.Filter{UserID: userID}, 0, true)
	if err != nil {
		return nil, fmt.Errorf("failed to export documents: %w", err)
	}

	records := make([]DocumentRecord, 0, len(points))
	for _, point := range points {
		rec := recordFromPayload(point.PointID, point.Payload)
		rec.Embedding = point.Vector
		records = append(records, rec)
	}
	return records, nil
}

// HealthCheck reports whether the backing index is reachable.
func (s *Store) HealthCheck(ctx context.Context) bool {
	return s.index.HealthCheck(ctx)
}

func sortNewestFirst(records []DocumentRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
}

func capRecords(records []DocumentRecord, limit int) []DocumentRecord {
	if limit > 0 && len(records) > limit {
		return records[:limit]
	}
	return records
}
