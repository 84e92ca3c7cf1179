package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"mindvault/internal/events"
	"mindvault/internal/graph"
	"mindvault/internal/memory"
	"mindvault/internal/retrieval"
)

type fakeMemoryStore struct {
	records []memory.DocumentRecord
	getErr  error
	deleted []string
	listErr error
}

func (f *fakeMemoryStore) Get(_ context.Context, docID, userID string) (*memory.DocumentRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, rec := range f.records {
		if rec.DocID == docID && rec.UserID == userID {
			r := rec
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeMemoryStore) Delete(_ context.Context, docID, userID string) (bool, error) {
	for _, rec := range f.records {
		if rec.DocID == docID && rec.UserID == userID {
			f.deleted = append(f.deleted, docID)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMemoryStore) List(_ context.Context, _, _ string, _ int, userID string) ([]memory.DocumentRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []memory.DocumentRecord
	for _, rec := range f.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeMemoryStore) SearchText(_ context.Context, query, _ string, _ int, userID string) ([]memory.DocumentRecord, error) {
	var out []memory.DocumentRecord
	for _, rec := range f.records {
		if rec.UserID == userID && strings.Contains(strings.ToLower(rec.FileName), strings.ToLower(query)) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeMemoryStore) AllWithEmbeddings(_ context.Context, userID string) ([]memory.DocumentRecord, error) {
	return f.List(context.Background(), "", "", 0, userID)
}

type fakeEventStore struct {
	upcoming       []events.Event
	removedSources []string
	pastRemoved    int
	deletedIDs     []int64
}

func (f *fakeEventStore) Upcoming(_ context.Context, _ string) ([]events.Event, error) {
	return f.upcoming, nil
}

func (f *fakeEventStore) DeleteByID(_ context.Context, id int64, _ string) (bool, error) {
	for _, e := range f.upcoming {
		if e.ID == id {
			f.deletedIDs = append(f.deletedIDs, id)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEventStore) DeletePast(_ context.Context, _ string) (int, error) {
	return f.pastRemoved, nil
}

func (f *fakeEventStore) DeleteBySource(_ context.Context, sourcePath, _ string) (int, error) {
	f.removedSources = append(f.removedSources, sourcePath)
	return 2, nil
}

type fakeRetriever struct {
	resp    retrieval.QueryResponse
	err     error
	gotUser string
}

func (f *fakeRetriever) Query(_ context.Context, req retrieval.QueryRequest) (retrieval.QueryResponse, error) {
	f.gotUser = req.UserID
	return f.resp, f.err
}

func doRequest(t *testing.T, router http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func TestMemoriesDeleteCascadesToEvents(t *testing.T) {
	memories := &fakeMemoryStore{records: []memory.DocumentRecord{
		{DocID: "doc-1", FilePath: "/files/a.txt", UserID: "alice"},
	}}
	eventStore := &fakeEventStore{}
	handler := NewMemoriesHandler(memories, eventStore)

	router := chi.NewRouter()
	router.Delete("/memories/{id}", handler.Delete)

	rr := doRequest(t, router, http.MethodDelete, "/memories/doc-1", "", map[string]string{"X-User-ID": "alice"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}

	var resp DeleteResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.Deleted || resp.EventsRemoved != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if len(eventStore.removedSources) != 1 || eventStore.removedSources[0] != "/files/a.txt" {
		t.Fatalf("removedSources = %v", eventStore.removedSources)
	}
}

func TestMemoriesDeleteMissingReturns404(t *testing.T) {
	handler := NewMemoriesHandler(&fakeMemoryStore{}, &fakeEventStore{})
	router := chi.NewRouter()
	router.Delete("/memories/{id}", handler.Delete)

	rr := doRequest(t, router, http.MethodDelete, "/memories/missing", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestMemoriesDeleteIsUserScoped(t *testing.T) {
	memories := &fakeMemoryStore{records: []memory.DocumentRecord{
		{DocID: "doc-1", FilePath: "/files/a.txt", UserID: "alice"},
	}}
	handler := NewMemoriesHandler(memories, &fakeEventStore{})
	router := chi.NewRouter()
	router.Delete("/memories/{id}", handler.Delete)

	rr := doRequest(t, router, http.MethodDelete, "/memories/doc-1", "", map[string]string{"X-User-ID": "bob"})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for other user", rr.Code)
	}
}

func TestMemoriesListDefaultsUser(t *testing.T) {
	memories := &fakeMemoryStore{records: []memory.DocumentRecord{
		{DocID: "doc-1", FileName: "a.txt", UserID: "default"},
		{DocID: "doc-2", FileName: "b.txt", UserID: "alice"},
	}}
	handler := NewMemoriesHandler(memories, &fakeEventStore{})
	router := chi.NewRouter()
	router.Get("/memories", handler.List)

	rr := doRequest(t, router, http.MethodGet, "/memories", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp MemoriesResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Count != 1 || resp.Memories[0].DocID != "doc-1" {
		t.Fatalf("resp = %+v, want only the default user's record", resp)
	}
}

func TestMemoriesSearchRequiresQuery(t *testing.T) {
	handler := NewMemoriesHandler(&fakeMemoryStore{}, &fakeEventStore{})
	router := chi.NewRouter()
	router.Get("/memories/search", handler.Search)

	rr := doRequest(t, router, http.MethodGet, "/memories/search", "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestQueryHandlerValidation(t *testing.T) {
	retriever := &fakeRetriever{resp: retrieval.QueryResponse{Answer: "hi", Verified: true}}
	handler := NewQueryHandler(retriever)
	router := chi.NewRouter()
	router.Post("/query", handler.Query)

	rr := doRequest(t, router, http.MethodPost, "/query", "{not json", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for bad body", rr.Code)
	}

	rr = doRequest(t, router, http.MethodPost, "/query", `{"question":""}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for empty question", rr.Code)
	}

	rr = doRequest(t, router, http.MethodPost, "/query", `{"question":"what?"}`, map[string]string{"X-User-ID": "alice"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
	}
	if retriever.gotUser != "alice" {
		t.Fatalf("user = %q, want alice", retriever.gotUser)
	}
}

func TestQueryHandlerErrorResponse(t *testing.T) {
	handler := NewQueryHandler(&fakeRetriever{err: errors.New("engine down")})
	router := chi.NewRouter()
	router.Post("/query", handler.Query)

	rr := doRequest(t, router, http.MethodPost, "/query", `{"question":"q"}`, nil)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
}

func TestScanFiltersPaths(t *testing.T) {
	handler := NewIngestHandler(nil)
	router := chi.NewRouter()
	router.Post("/scan", handler.Scan)

	body := `{"paths":["/a/notes.txt","/a/photo.png","/a/binary.exe"]}`
	rr := doRequest(t, router, http.MethodPost, "/scan", body, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var resp ScanResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Count != 2 {
		t.Fatalf("count = %d, want 2: %+v", resp.Count, resp.Files)
	}
}

func TestEventsEndpoints(t *testing.T) {
	store := &fakeEventStore{
		upcoming:    []events.Event{{ID: 7, Title: "Dentist"}},
		pastRemoved: 3,
	}
	handler := NewEventsHandler(store)
	router := chi.NewRouter()
	router.Get("/notifications", handler.Notifications)
	router.Delete("/events/{id}", handler.Delete)
	router.Post("/events/cleanup", handler.Cleanup)

	rr := doRequest(t, router, http.MethodGet, "/notifications", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var notifications NotificationsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &notifications); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if notifications.Count != 1 || notifications.Events[0].Title != "Dentist" {
		t.Fatalf("notifications = %+v", notifications)
	}

	rr = doRequest(t, router, http.MethodDelete, "/events/abc", "", nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for non-numeric id", rr.Code)
	}

	rr = doRequest(t, router, http.MethodDelete, "/events/7", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	rr = doRequest(t, router, http.MethodDelete, "/events/99", "", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}

	rr = doRequest(t, router, http.MethodPost, "/events/cleanup", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var cleanup CleanupResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &cleanup); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if cleanup.Removed != 3 {
		t.Fatalf("removed = %d, want 3", cleanup.Removed)
	}
}

func TestGraphEndpoints(t *testing.T) {
	memories := &fakeMemoryStore{records: []memory.DocumentRecord{
		{DocID: "a", FileName: "a.txt", Category: "work", UserID: "default", Embedding: []float32{1, 0}},
		{DocID: "b", FileName: "b.txt", Category: "work", UserID: "default", Embedding: []float32{1, 0.1}},
	}}
	handler := NewGraphHandler(memories)
	router := chi.NewRouter()
	router.Get("/graph", handler.Graph)
	router.Get("/graph/stats", handler.Stats)
	router.Get("/graph/related/{id}", handler.Related)
	router.Get("/graph/category/{name}", handler.Category)

	rr := doRequest(t, router, http.MethodGet, "/graph", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var g graph.Graph
	if err := json.Unmarshal(rr.Body.Bytes(), &g); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	// 2 file nodes + 1 category node.
	if len(g.Nodes) != 3 {
		t.Fatalf("nodes = %d, want 3", len(g.Nodes))
	}

	rr = doRequest(t, router, http.MethodGet, "/graph/stats", "", nil)
	var stats graph.Stats
	if err := json.Unmarshal(rr.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if stats.FileCount != 2 || stats.SimilarPairs != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	rr = doRequest(t, router, http.MethodGet, "/graph/related/a", "", nil)
	var related RelatedResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &related); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(related.Edges) != 1 {
		t.Fatalf("related = %+v", related)
	}

	rr = doRequest(t, router, http.MethodGet, "/graph/category/work", "", nil)
	var category CategoryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &category); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if len(category.Nodes) != 2 {
		t.Fatalf("category = %+v", category)
	}
}

func TestIngestHandlerValidation(t *testing.T) {
	handler := NewIngestHandler(nil)
	router := chi.NewRouter()
	router.Post("/ingest", handler.Ingest)

	rr := doRequest(t, router, http.MethodPost, "/ingest", `{"content_base64":"`+base64.StdEncoding.EncodeToString([]byte("x"))+`"}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 without file_path", rr.Code)
	}
}
