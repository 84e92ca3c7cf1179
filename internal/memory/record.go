package memory

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"mindvault/internal/modality"
)

// snippetLimit bounds the stored content excerpt. The snippet is only used
// for answer grounding at query time; it is never embedded.
const snippetLimit = 1500

// capSnippet cuts s to at most snippetLimit bytes without splitting a rune.
func capSnippet(s string) string {
	if len(s) <= snippetLimit {
		return s
	}
	cut := snippetLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// docNamespace is the UUIDv5 namespace for deriving document ids from file
// paths. Changing it would orphan every stored record.
var docNamespace = uuid.MustParse("9f2c1af4-3a5e-4b86-9d0b-5a4c8f1e2d73")

// DocID derives the stable document id for a logical file path. The same
// path always yields the same id, so re-ingestion replaces rather than
// duplicates.
func DocID(filePath string) string {
	return uuid.NewSHA1(docNamespace, []byte(filePath)).String()
}

// DocumentRecord is the stored form of one ingested file.
type DocumentRecord struct {
	DocID          string            `json:"doc_id"`
	FilePath       string            `json:"file_path"`
	FileName       string            `json:"file_name"`
	Modality       modality.Modality `json:"modality"`
	Description    string            `json:"description"`
	Category       string            `json:"category"`
	Summary        string            `json:"summary"`
	ContentSnippet string            `json:"content_snippet,omitempty"`
	HasEvents      bool              `json:"has_events"`
	UserID         string            `json:"user_id"`
	Timestamp      time.Time         `json:"timestamp"`

	// Embedding is populated only by AllWithEmbeddings.
	Embedding []float32 `json:"-"`
}

// QueryHit is a document returned from semantic search, annotated with its
// cosine distance to the query (smaller is closer).
type QueryHit struct {
	DocumentRecord
	Distance float64 `json:"distance"`
}

func payloadFromRecord(rec DocumentRecord) map[string]any {
	return map[string]any{
		"file_path":       rec.FilePath,
		"file_name":       rec.FileName,
		"modality":        string(rec.Modality),
		"description":     rec.Description,
		"category":        rec.Category,
		"summary":         rec.Summary,
		"content_snippet": rec.ContentSnippet,
		"has_events":      rec.HasEvents,
		"user_id":         rec.UserID,
		"timestamp":       rec.Timestamp.UTC().Format(time.RFC3339),
	}
}

func recordFromPayload(docID string, payload map[string]any) DocumentRecord {
	rec := DocumentRecord{
		DocID:          docID,
		FilePath:       stringField(payload, "file_path"),
		FileName:       stringField(payload, "file_name"),
		Modality:       modality.Modality(stringField(payload, "modality")),
		Description:    stringField(payload, "description"),
		Category:       stringField(payload, "category"),
		Summary:        stringField(payload, "summary"),
		ContentSnippet: stringField(payload, "content_snippet"),
		UserID:         stringField(payload, "user_id"),
	}
	if v, ok := payload["has_events"].(bool); ok {
		rec.HasEvents = v
	}
	if raw := stringField(payload, "timestamp"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			rec.Timestamp = ts
		}
	}
	return rec
}

func stringField(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}
