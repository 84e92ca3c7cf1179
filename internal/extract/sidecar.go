package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mindvault/internal/modality"
)

// Sidecar extracts content from modalities that need out-of-process models
// (PDF text, image captioning, audio transcription) by posting the file to an
// extraction service.
type Sidecar struct {
	BaseURL string
	client  *http.Client
}

// NewSidecar creates a client for the extraction sidecar service.
func NewSidecar(baseURL string) *Sidecar {
	return &Sidecar{
		BaseURL: baseURL,
		// Transcription of long audio is slow; match the generation timeout.
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

type sidecarRequest struct {
	Filename      string `json:"filename"`
	Modality      string `json:"modality"`
	ContentBase64 string `json:"content_base64"`
}

type sidecarResponse struct {
	Text string `json:"text"`
}

// Extract posts the file bytes to the sidecar and returns the extracted text.
func (s *Sidecar) Extract(ctx context.Context, data []byte, filename string) (string, error) {
	payload := sidecarRequest{
		Filename:      filename,
		Modality:      string(modality.Detect(filename)),
		ContentBase64: base64.StdEncoding.EncodeToString(data),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/extract", s.BaseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
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

	var extracted sidecarResponse
	if err := json.NewDecoder(resp.Body).Decode(&extracted); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return extracted.Text, nil
}
