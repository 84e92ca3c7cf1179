package modality

import (
	"path/filepath"
	"strings"
)

// Modality is the coarse content-type classification of an ingested file.
// It selects which extractor turns the raw bytes into text.
type Modality string

const (
	PDF      Modality = "pdf"
	Image    Modality = "image"
	Audio    Modality = "audio"
	Calendar Modality = "calendar"
	Text     Modality = "text"
)

// extensionMap maps file extensions to modalities. Anything not listed is
// treated as plain text.
var extensionMap = map[string]Modality{
	".pdf":  PDF,
	".jpg":  Image,
	".jpeg": Image,
	".png":  Image,
	".mp3":  Audio,
	".m4a":  Audio,
	".wav":  Audio,
	".ics":  Calendar,
	".txt":  Text,
	".md":   Text,
	".docx": Text,
	".eml":  Text,
}

// Detect determines the modality of a file from its extension.
func Detect(filename string) Modality {
	ext := strings.ToLower(filepath.Ext(filename))
	if m, ok := extensionMap[ext]; ok {
		return m
	}
	return Text
}

// AllowedExtensions returns the set of extensions the pipeline can process.
func AllowedExtensions() map[string]bool {
	allowed := make(map[string]bool, len(extensionMap))
	for ext := range extensionMap {
		allowed[ext] = true
	}
	return allowed
}

// ScannedFile describes one admissible file from a scan request.
type ScannedFile struct {
	FilePath  string `json:"file_path"`
	FileName  string `json:"file_name"`
	Extension string `json:"extension"`
}

// FilterScannable filters candidate paths down to those with processable
// extensions. If extensions is non-empty it overrides the default allow set.
func FilterScannable(paths []string, extensions []string) []ScannedFile {
	allowed := AllowedExtensions()
	if len(extensions) > 0 {
		allowed = make(map[string]bool, len(extensions))
		for _, ext := range extensions {
			allowed[strings.ToLower(ext)] = true
		}
	}

	files := make([]ScannedFile, 0, len(paths))
	for _, path := range paths {
		ext := strings.ToLower(filepath.Ext(path))
		if !allowed[ext] {
			continue
		}
		files = append(files, ScannedFile{
			FilePath:  path,
			FileName:  filepath.Base(path),
			Extension: ext,
		})
	}
	return files
}
