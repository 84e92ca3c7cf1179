package extract

import (
	"context"

	"mindvault/internal/modality"
)

// Extractor turns raw file bytes into text describing the content.
// Implementations return an empty string (not an error) when the file holds no
// usable text; errors are reserved for failures of the extraction machinery
// itself.
type Extractor interface {
	Extract(ctx context.Context, data []byte, filename string) (string, error)
}

// Registry routes a modality to its extractor.
type Registry struct {
	extractors map[modality.Modality]Extractor
}

// NewRegistry builds the default extractor routing. The sidecar handles the
// modalities that need out-of-process models (OCR, captioning, transcription);
// pass nil to run without one, in which case those modalities are unsupported.
func NewRegistry(sidecar Extractor) *Registry {
	extractors := map[modality.Modality]Extractor{
		modality.Text:     NewTextExtractor(),
		modality.Calendar: NewCalendarExtractor(),
	}
	if sidecar != nil {
		extractors[modality.PDF] = sidecar
		extractors[modality.Image] = sidecar
		extractors[modality.Audio] = sidecar
	}
	return &Registry{extractors: extractors}
}

// ForModality returns the extractor registered for the given modality, and
// whether one was registered at all.
func (r *Registry) ForModality(m modality.Modality) (Extractor, bool) {
	e, ok := r.extractors[m]
	return e, ok
}
