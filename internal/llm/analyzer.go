package llm

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"mindvault/internal/contextutil"
)

const (
	// analysisInputLimit bounds how much extracted content is sent to the
	// model for description and event extraction.
	analysisInputLimit = 2000
	// verifyContextLimit bounds the context echoed back for verification.
	verifyContextLimit = 1500
	// historyWindow is how many prior conversation turns are included when
	// answering, and historyAnswerLimit truncates each prior answer.
	historyWindow      = 3
	historyAnswerLimit = 200
)

// ValidCategories is the closed set of document categories. Anything the
// model produces outside this set is coerced to "other".
var ValidCategories = map[string]bool{
	"work":     true,
	"study":    true,
	"personal": true,
	"medical":  true,
	"finance":  true,
	"other":    true,
}

// Description is the structured analysis of one file's content.
type Description struct {
	Description string `json:"description"`
	Category    string `json:"category"`
	Summary     string `json:"summary"`
}

// ExtractedEvent is a candidate calendar event found in file content.
type ExtractedEvent struct {
	Title       string `json:"title"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

// EventExtraction is the result of scanning content for date-bearing events.
type EventExtraction struct {
	HasEvents bool             `json:"has_events"`
	Events    []ExtractedEvent `json:"events"`
}

// ConversationTurn is one prior question/answer pair from the client.
type ConversationTurn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Analyzer wraps the model client with the structured operations the
// pipeline needs. Describe and ExtractEvents never fail on malformed model
// output; they substitute deterministic fallbacks instead.
type Analyzer struct {
	client *Client
}

// NewAnalyzer creates an analyzer on top of an Ollama client.
func NewAnalyzer(client *Client) *Analyzer {
	return &Analyzer{client: client}
}

// Describe asks the model for a searchable description, category, and summary
// of the file content. A model or parse failure yields a fallback derived
// from the file name, never an error.
func (a *Analyzer) Describe(ctx context.Context, filename, content string) Description {
	logger := contextutil.LoggerFromContext(ctx)

	prompt := fmt.Sprintf(`You are analyzing a file to create a searchable description.
File name: %s
Content: %s

Generate a JSON response with these fields:
- description: 2-3 sentences describing the main topic and content of this file
- category: one of [work, study, personal, medical, finance, other]
- summary: one short sentence (max 12 words) for display

Respond ONLY with valid JSON, no markdown, no explanation.`, filename, truncate(content, analysisInputLimit))

	fallback := Description{
		Description: "File: " + filename,
		Category:    "other",
		Summary:     filename,
	}

	raw, err := a.client.Generate(ctx, prompt, 0.3)
	if err != nil {
		logger.WarnContext(ctx, "description generation failed, using fallback", "file", filename, "error", err)
		return fallback
	}

	result := fallback
	if !ParseObject(raw, &result) {
		logger.WarnContext(ctx, "failed to parse description output", "file", filename, "raw_prefix", truncate(raw, 200))
		return fallback
	}

	if result.Description == "" {
		result.Description = fallback.Description
	}
	if result.Summary == "" {
		result.Summary = fallback.Summary
	}
	if !ValidCategories[result.Category] {
		result.Category = "other"
	}
	return result
}

// ExtractEvents asks the model for dates, deadlines, and appointments in the
// content. Malformed model output yields an empty extraction, never an error.
func (a *Analyzer) ExtractEvents(ctx context.Context, content string) EventExtraction {
	logger := contextutil.LoggerFromContext(ctx)

	prompt := fmt.Sprintf(`Analyze this content and extract any dates, deadlines, appointments, or reminders.
Content: %s

Respond with JSON:
- has_events: true or false
- events: array of objects with fields: title (string), date (ISO string or null), description (string)

If no events found, return has_events: false and empty events array.
Respond ONLY with valid JSON.`, truncate(content, analysisInputLimit))

	raw, err := a.client.Generate(ctx, prompt, 0.3)
	if err != nil {
		logger.WarnContext(ctx, "event extraction failed, assuming no events", "error", err)
		return EventExtraction{}
	}

	var result EventExtraction
	if !ParseObject(raw, &result) {
		logger.WarnContext(ctx, "failed to parse event extraction output", "raw_prefix", truncate(raw, 200))
		return EventExtraction{}
	}
	if !result.HasEvents {
		result.Events = nil
	}
	return result
}

// Answer generates an answer to the question grounded in the retrieved file
// context. A bounded window of recent conversation turns is included to keep
// prompt growth in check.
func (a *Analyzer) Answer(ctx context.Context, question, fileContext string, history []ConversationTurn) (string, error) {
	var convContext string
	if len(history) > 0 {
		recent := history
		if len(recent) > historyWindow {
			recent = recent[len(recent)-historyWindow:]
		}
		parts := make([]string, 0, len(recent))
		for _, turn := range recent {
			parts = append(parts, fmt.Sprintf("User: %s\nAssistant: %s", turn.Question, truncate(turn.Answer, historyAnswerLimit)))
		}
		convContext = strings.Join(parts, "\n\n")
	}

	var prompt strings.Builder
	prompt.WriteString(`You are a helpful personal assistant that helps users find and understand their files.
Read the file descriptions and content below, then answer the question.
Use the information from the files to give a helpful answer. Mention which file(s) the answer comes from.
For images, describe what is in the photo based on the description provided.
For documents, summarize the relevant content.
Always try to give a useful answer based on the files provided.

--- FILES START ---
`)
	prompt.WriteString(fileContext)
	prompt.WriteString("\n--- FILES END ---\n")

	if convContext != "" {
		prompt.WriteString("\n--- PREVIOUS CONVERSATION ---\n")
		prompt.WriteString(convContext)
		prompt.WriteString("\n--- END PREVIOUS CONVERSATION ---\n")
	}

	prompt.WriteString(fmt.Sprintf("\nQuestion: %s\n\nAnswer:", question))

	answer, err := a.client.Generate(ctx, prompt.String(), 0.3)
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}
	return strings.TrimSpace(answer), nil
}

// Verify asks the model whether its own answer is grounded in the provided
// context. Anything that does not start with YES counts as unverified; call
// failures also count as unverified rather than erroring.
func (a *Analyzer) Verify(ctx context.Context, question, fileContext, answer string) bool {
	prompt := fmt.Sprintf(`Does the answer below use information from the provided files? Reply YES or NO only.

Files:
%s

Answer: %s

Reply YES or NO:`, truncate(fileContext, verifyContextLimit), answer)

	raw, err := a.client.Generate(ctx, prompt, 0.1)
	if err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "verification call failed", "error", err)
		return false
	}
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(raw)), "YES")
}

// CheckAvailability reports whether the underlying model service is reachable.
func (a *Analyzer) CheckAvailability(ctx context.Context) bool {
	return a.client.CheckAvailability(ctx)
}

// truncate cuts s to at most limit bytes without splitting a rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
