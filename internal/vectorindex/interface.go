package vectorindex

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_index.go -package=mocks mindvault/internal/vectorindex VectorIndex

import "context"

// Point represents a vector point with its payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// SearchHit represents one nearest-neighbor result. Score is the cosine
// similarity reported by the index (higher is closer).
type SearchHit struct {
	PointID string
	Score   float32
	Payload map[string]any
}

// StoredPoint is a point fetched by id or scroll, with its vector when
// requested.
type StoredPoint struct {
	PointID string
	Vector  []float32
	Payload map[string]any
}

// Filter narrows index operations to one user's partition, optionally further
// restricted by category and modality payload fields.
type Filter struct {
	UserID   string
	Category string
	Modality string
}

// VectorIndex defines the interface for vector index operations.
type VectorIndex interface {
	// EnsureCollection creates the collection if needed and validates its
	// vector size.
	EnsureCollection(ctx context.Context, vectorSize int) error

	// Upsert inserts or fully replaces points by id.
	Upsert(ctx context.Context, points []Point) error

	// Query returns the k nearest points to the query vector matching the
	// filter.
	Query(ctx context.Context, vector []float32, k int, filter Filter) ([]SearchHit, error)

	// Retrieve fetches points by id, with vectors when withVectors is set.
	Retrieve(ctx context.Context, ids []string, withVectors bool) ([]StoredPoint, error)

	// Scroll lists points matching the filter, with vectors when withVectors
	// is set. A limit of 0 returns every matching point.
	Scroll(ctx context.Context, filter Filter, limit int, withVectors bool) ([]StoredPoint, error)

	// Delete removes points by their ids.
	Delete(ctx context.Context, ids []string) error

	// Count returns the number of points matching the filter.
	Count(ctx context.Context, filter Filter) (int, error)

	// HealthCheck reports whether the index is reachable.
	HealthCheck(ctx context.Context) bool
}
