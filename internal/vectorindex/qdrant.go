package vectorindex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/qdrant/go-client/qdrant"

	"mindvault/internal/contextutil"
)

// QdrantIndex implements VectorIndex using Qdrant.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantIndex creates a new Qdrant-backed index for one collection.
// urlStr should be in the format "http://host:port" (e.g., "http://localhost:6333").
// The gRPC port (typically 6334) is derived from the HTTP port.
func NewQdrantIndex(urlStr, collection string) (*QdrantIndex, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	host := parsedURL.Hostname()
	if host == "" {
		host = "localhost"
	}

	port := 6334 // Default gRPC port
	if parsedURL.Port() != "" {
		httpPort, err := strconv.Atoi(parsedURL.Port())
		if err == nil {
			// gRPC port is typically HTTP port + 1
			port = httpPort + 1
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant client: %w", err)
	}

	return &QdrantIndex{
		client:     client,
		collection: collection,
	}, nil
}

// EnsureCollection creates the collection with cosine distance if it does not
// exist, and otherwise validates that the stored vector size matches.
func (s *QdrantIndex) EnsureCollection(ctx context.Context, vectorSize int) error {
	logger := contextutil.LoggerFromContext(ctx)

	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection existence: %w", err)
	}

	if !exists {
		logger.InfoContext(ctx, "creating collection", "collection", s.collection, "vector_size", vectorSize)
		err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: s.collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(vectorSize),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}
		return nil
	}

	info, err := s.client.GetCollectionInfo(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}

	config := info.Config
	if config == nil || config.Params == nil {
		return fmt.Errorf("collection config is invalid")
	}
	vectorsConfig := config.Params.GetVectorsConfig()
	if vectorsConfig == nil {
		return fmt.Errorf("collection vectors config is invalid")
	}
	params := vectorsConfig.GetParams()
	if params == nil {
		return fmt.Errorf("collection vector params are invalid")
	}
	if int(params.Size) != vectorSize {
		return fmt.Errorf("collection vector size mismatch: expected %d, got %d", vectorSize, params.Size)
	}

	logger.InfoContext(ctx, "collection validated", "collection", s.collection, "vector_size", vectorSize)
	return nil
}

// Upsert inserts or fully replaces points by id.
func (s *QdrantIndex) Upsert(ctx context.Context, points []Point) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, 0, len(points))
	for _, point := range points {
		qdrantPoint := &qdrant.PointStruct{
			Id:      qdrant.NewID(point.ID),
			Vectors: qdrant.NewVectors(point.Vector...),
		}
		if len(point.Payload) > 0 {
			qdrantPoint.Payload = qdrant.NewValueMap(point.Payload)
		}
		qdrantPoints = append(qdrantPoints, qdrantPoint)
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         qdrantPoints,
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to upsert points", "collection", s.collection, "count", len(points), "error", err)
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	logger.InfoContext(ctx, "upserted points", "collection", s.collection, "count", len(points))
	return nil
}

// Query returns the k nearest points to the query vector matching the filter.
func (s *QdrantIndex) Query(ctx context.Context, vector []float32, k int, filter Filter) ([]SearchHit, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	limit := uint64(k)
	queryReq := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	}
	if qf := buildFilter(filter); qf != nil {
		queryReq.Filter = qf
	}

	scoredPoints, err := s.client.Query(ctx, queryReq)
	if err != nil {
		logger.ErrorContext(ctx, "failed to query points", "collection", s.collection, "k", k, "error", err)
		return nil, fmt.Errorf("failed to query points: %w", err)
	}

	hits := make([]SearchHit, 0, len(scoredPoints))
	for _, point := range scoredPoints {
		pointID := ""
		if point.Id != nil {
			pointID = point.Id.GetUuid()
		}
		payload := make(map[string]any)
		if point.Payload != nil {
			payload = convertPayloadToMap(point.Payload)
		}
		hits = append(hits, SearchHit{
			PointID: pointID,
			Score:   point.Score,
			Payload: payload,
		})
	}

	logger.DebugContext(ctx, "query completed", "collection", s.collection, "k", k, "hits", len(hits))
	return hits, nil
}

// Retrieve fetches points by id.
func (s *QdrantIndex) Retrieve(ctx context.Context, ids []string, withVectors bool) ([]StoredPoint, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	qdrantIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		qdrantIDs = append(qdrantIDs, qdrant.NewID(id))
	}

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            qdrantIDs,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(withVectors),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve points: %w", err)
	}

	return convertRetrieved(points), nil
}

// scrollPageSize bounds a single scroll RPC. The server returns one page per
// call, so bulk reads must follow next_page_offset until exhaustion.
const scrollPageSize = 256

// pointScroller is the slice of the Qdrant client that scrollAll needs.
type pointScroller interface {
	ScrollAndOffset(ctx context.Context, request *qdrant.ScrollPoints) ([]*qdrant.RetrievedPoint, *qdrant.PointId, error)
}

// Scroll lists points matching the filter. A limit of 0 returns every
// matching point; the index is paged through either way.
func (s *QdrantIndex) Scroll(ctx context.Context, filter Filter, limit int, withVectors bool) ([]StoredPoint, error) {
	scrollReq := &qdrant.ScrollPoints{
		CollectionName: s.collection,
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(withVectors),
	}
	if qf := buildFilter(filter); qf != nil {
		scrollReq.Filter = qf
	}

	points, err := scrollAll(ctx, s.client, scrollReq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to scroll points: %w", err)
	}

	return convertRetrieved(points), nil
}

// scrollAll pages through the collection until the index reports no further
// offset, or limit points have been collected when limit is positive.
func scrollAll(ctx context.Context, client pointScroller, req *qdrant.ScrollPoints, limit int) ([]*qdrant.RetrievedPoint, error) {
	pageSize := uint32(scrollPageSize)
	if limit > 0 && limit < scrollPageSize {
		pageSize = uint32(limit)
	}
	req.Limit = &pageSize

	var all []*qdrant.RetrievedPoint
	for {
		page, next, err := client.ScrollAndOffset(ctx, req)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if limit > 0 && len(all) >= limit {
			return all[:limit], nil
		}
		if next == nil || len(page) == 0 {
			return all, nil
		}
		req.Offset = next
	}
}

// Delete removes points by their ids.
func (s *QdrantIndex) Delete(ctx context.Context, ids []string) error {
	logger := contextutil.LoggerFromContext(ctx)

	if len(ids) == 0 {
		return nil
	}

	qdrantIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		qdrantIDs = append(qdrantIDs, qdrant.NewID(id))
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points:         qdrant.NewPointsSelector(qdrantIDs...),
	})
	if err != nil {
		logger.ErrorContext(ctx, "failed to delete points", "collection", s.collection, "count", len(ids), "error", err)
		return fmt.Errorf("failed to delete points: %w", err)
	}

	logger.InfoContext(ctx, "deleted points", "collection", s.collection, "count", len(ids))
	return nil
}

// Count returns the number of points matching the filter.
func (s *QdrantIndex) Count(ctx context.Context, filter Filter) (int, error) {
	countReq := &qdrant.CountPoints{
		CollectionName: s.collection,
	}
	if qf := buildFilter(filter); qf != nil {
		countReq.Filter = qf
	}

	count, err := s.client.Count(ctx, countReq)
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return int(count), nil
}

// HealthCheck reports whether the index is reachable.
func (s *QdrantIndex) HealthCheck(ctx context.Context) bool {
	_, err := s.client.HealthCheck(ctx)
	return err == nil
}

// buildFilter converts a Filter into Qdrant match conditions. Returns nil
// when the filter is empty.
func buildFilter(filter Filter) *qdrant.Filter {
	var must []*qdrant.Condition
	if filter.UserID != "" {
		must = append(must, qdrant.NewMatch("user_id", filter.UserID))
	}
	if filter.Category != "" {
		must = append(must, qdrant.NewMatch("category", filter.Category))
	}
	if filter.Modality != "" {
		must = append(must, qdrant.NewMatch("modality", filter.Modality))
	}
	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

func convertRetrieved(points []*qdrant.RetrievedPoint) []StoredPoint {
	result := make([]StoredPoint, 0, len(points))
	for _, point := range points {
		pointID := ""
		if point.Id != nil {
			pointID = point.Id.GetUuid()
		}
		payload := make(map[string]any)
		if point.Payload != nil {
			payload = convertPayloadToMap(point.Payload)
		}
		var vector []float32
		if vectors := point.GetVectors(); vectors != nil {
			if v := vectors.GetVector(); v != nil {
				vector = v.GetData()
			}
		}
		result = append(result, StoredPoint{
			PointID: pointID,
			Vector:  vector,
			Payload: payload,
		})
	}
	return result
}

// convertPayloadToMap converts a Qdrant payload to map[string]any.
func convertPayloadToMap(payload map[string]*qdrant.Value) map[string]any {
	result := make(map[string]any, len(payload))
	for k, v := range payload {
		if v == nil {
			continue
		}
		result[k] = convertValue(v)
	}
	return result
}

// convertValue converts a Qdrant Value to a Go any type.
func convertValue(v *qdrant.Value) any {
	switch val := v.Kind.(type) {
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_ListValue:
		list := make([]any, len(val.ListValue.Values))
		for i, item := range val.ListValue.Values {
			list[i] = convertValue(item)
		}
		return list
	case *qdrant.Value_StructValue:
		return convertPayloadToMap(val.StructValue.Fields)
	default:
		return nil
	}
}
