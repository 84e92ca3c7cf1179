package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// generateTimeout bounds a single generation call. Small local models can
	// be slow on long prompts, so this is generous.
	generateTimeout = 120 * time.Second
	// availabilityTimeout bounds the lightweight health probe.
	availabilityTimeout = 10 * time.Second

	defaultNumPredict = 1024
)

// Client is a client for the Ollama generate API.
type Client struct {
	BaseURL string
	Model   string
	client  *http.Client
}

// NewClient creates a new Ollama client.
func NewClient(baseURL, model string) *Client {
	return &Client{
		BaseURL: baseURL,
		Model:   model,
		client:  &http.Client{Timeout: generateTimeout},
	}
}

// GenerateRequest represents the request payload for the generate API.
type GenerateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options GenerateOptions `json:"options"`
}

// GenerateOptions holds model options for a generation call.
type GenerateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

// GenerateResponse represents the response from the generate API.
type GenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate sends a non-streaming generation request and returns the model's text.
func (c *Client) Generate(ctx context.Context, prompt string, temperature float64) (string, error) {
	url := fmt.Sprintf("%s/api/generate", c.BaseURL)

	payload := GenerateRequest{
		Model:  c.Model,
		Prompt: prompt,
		Stream: false,
		Options: GenerateOptions{
			Temperature: temperature,
			NumPredict:  defaultNumPredict,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var genResp GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return genResp.Response, nil
}

// tagsResponse represents the response from the tags API.
type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// CheckAvailability verifies the model service is running and the configured
// model (or a variant tag of it) is present.
func (c *Client) CheckAvailability(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, availabilityTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/api/tags", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false
	}

	base := strings.SplitN(c.Model, ":", 2)[0]
	for _, m := range tags.Models {
		if strings.Contains(m.Name, base) {
			return true
		}
	}
	return false
}
