package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mindvault/internal/llm"
	"mindvault/internal/memory"
)

type fakeSearcher struct {
	hits []memory.QueryHit
	err  error
}

func (f *fakeSearcher) Query(_ context.Context, _ string, _ int, _ string) ([]memory.QueryHit, error) {
	return f.hits, f.err
}

type fakeAnswerer struct {
	answer      string
	answerErr   error
	verified    bool
	gotContext  string
	gotHistory  []llm.ConversationTurn
	verifyCalls int
}

func (f *fakeAnswerer) Answer(_ context.Context, _, fileContext string, history []llm.ConversationTurn) (string, error) {
	f.gotContext = fileContext
	f.gotHistory = history
	return f.answer, f.answerErr
}

func (f *fakeAnswerer) Verify(_ context.Context, _, _, _ string) bool {
	f.verifyCalls++
	return f.verified
}

func hit(docID string, distance float64) memory.QueryHit {
	return memory.QueryHit{
		DocumentRecord: memory.DocumentRecord{
			DocID:          docID,
			FileName:       docID + ".txt",
			FilePath:       "/files/" + docID + ".txt",
			Description:    "about " + docID,
			Category:       "work",
			ContentSnippet: "content of " + docID,
		},
		Distance: distance,
	}
}

func TestQueryEmptyIndexReturnsNoInformation(t *testing.T) {
	answerer := &fakeAnswerer{}
	engine := NewEngine(&fakeSearcher{}, answerer, 1.0, 0.15)

	resp, err := engine.Query(context.Background(), QueryRequest{Question: "anything", UserID: "alice"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if resp.Answer != noInformationAnswer {
		t.Fatalf("answer = %q", resp.Answer)
	}
	if !resp.Verified || len(resp.Sources) != 0 {
		t.Fatalf("resp = %+v, want verified with no sources", resp)
	}
	if answerer.verifyCalls != 0 {
		t.Fatal("model should not be consulted for an empty index")
	}
}

func TestQueryBestHitBeyondCeiling(t *testing.T) {
	searcher := &fakeSearcher{hits: []memory.QueryHit{hit("a", 1.3), hit("b", 1.5)}}
	engine := NewEngine(searcher, &fakeAnswerer{}, 1.0, 0.15)

	resp, err := engine.Query(context.Background(), QueryRequest{Question: "q", UserID: "alice"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if resp.Answer != noInformationAnswer || len(resp.Sources) != 0 {
		t.Fatalf("resp = %+v, want no-information answer", resp)
	}
}

func TestQueryBandFilterKeepsNearBest(t *testing.T) {
	searcher := &fakeSearcher{hits: []memory.QueryHit{hit("a", 0.2), hit("b", 0.3), hit("c", 0.5)}}
	answerer := &fakeAnswerer{answer: "the answer", verified: true}
	engine := NewEngine(searcher, answerer, 1.0, 0.25)

	resp, err := engine.Query(context.Background(), QueryRequest{Question: "q", UserID: "alice"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(resp.Sources) != 2 {
		t.Fatalf("sources = %+v, want the two hits within the band", resp.Sources)
	}
	if resp.Sources[0].DocID != "a" || resp.Sources[1].DocID != "b" {
		t.Fatalf("sources = %+v", resp.Sources)
	}
	if strings.Contains(answerer.gotContext, "content of c") {
		t.Fatal("filtered hit leaked into the context")
	}
	if !strings.Contains(answerer.gotContext, "File: a.txt\nDescription: about a\nContent: content of a") {
		t.Fatalf("context = %q", answerer.gotContext)
	}
	if !strings.Contains(answerer.gotContext, "\n\n---\n\n") {
		t.Fatalf("context = %q, want block separator", answerer.gotContext)
	}
}

func TestQueryKeepsAllEquallyCloseHits(t *testing.T) {
	searcher := &fakeSearcher{hits: []memory.QueryHit{hit("a", 0.05), hit("b", 0.05), hit("c", 0.05)}}
	answerer := &fakeAnswerer{answer: "ok", verified: true}
	engine := NewEngine(searcher, answerer, 1.0, 0.15)

	resp, err := engine.Query(context.Background(), QueryRequest{Question: "q", UserID: "alice"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(resp.Sources) != 3 {
		t.Fatalf("sources = %d, want 3", len(resp.Sources))
	}
}

func TestQueryAppendsCaveatWhenUnverified(t *testing.T) {
	searcher := &fakeSearcher{hits: []memory.QueryHit{hit("a", 0.1)}}
	answerer := &fakeAnswerer{answer: "maybe", verified: false}
	engine := NewEngine(searcher, answerer, 1.0, 0.15)

	resp, err := engine.Query(context.Background(), QueryRequest{Question: "q", UserID: "alice"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if resp.Verified {
		t.Fatal("expected unverified response")
	}
	if !strings.HasPrefix(resp.Answer, "maybe") || !strings.Contains(resp.Answer, "may not be fully grounded") {
		t.Fatalf("answer = %q", resp.Answer)
	}
	if len(resp.Sources) != 1 {
		t.Fatalf("sources = %+v", resp.Sources)
	}
}

func TestQueryPassesHistoryThrough(t *testing.T) {
	searcher := &fakeSearcher{hits: []memory.QueryHit{hit("a", 0.1)}}
	answerer := &fakeAnswerer{answer: "ok", verified: true}
	engine := NewEngine(searcher, answerer, 1.0, 0.15)

	history := []llm.ConversationTurn{{Question: "before", Answer: "prior"}}
	_, err := engine.Query(context.Background(), QueryRequest{Question: "q", History: history, UserID: "alice"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(answerer.gotHistory) != 1 || answerer.gotHistory[0].Question != "before" {
		t.Fatalf("history = %+v", answerer.gotHistory)
	}
}

func TestQueryPropagatesSearchErrors(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("index down")}
	engine := NewEngine(searcher, &fakeAnswerer{}, 1.0, 0.15)

	if _, err := engine.Query(context.Background(), QueryRequest{Question: "q", UserID: "alice"}); err == nil {
		t.Fatal("expected error when the search fails")
	}
}
