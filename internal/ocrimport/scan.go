// Package ocrimport turns OCR scan results of a floor plan into sign
// instances for the mapping editor. Scans run multiple passes over the same
// page, so the same word is usually reported several times with slightly
// different positions and spellings.
package ocrimport

import (
	"encoding/json"
	"fmt"
	"os"
)

// Text is one word or phrase recognised on the page.
type Text struct {
	Text       string  `json:"text"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
	Scan       string  `json:"scan,omitempty"`
}

// Scan is a scan result file.
type Scan struct {
	Source string `json:"source,omitempty"`
	Texts  []Text `json:"texts"`
}

// LoadScan reads a scan result file.
func LoadScan(path string) (Scan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scan{}, fmt.Errorf("ocrimport: read %s: %w", path, err)
	}
	return ParseScan(data)
}

// ParseScan decodes a scan result document. A bare array of texts is also
// accepted.
func ParseScan(data []byte) (Scan, error) {
	var scan Scan
	if err := json.Unmarshal(data, &scan); err == nil {
		return scan, nil
	}
	var texts []Text
	if err := json.Unmarshal(data, &texts); err != nil {
		return Scan{}, fmt.Errorf("ocrimport: parse scan: %w", err)
	}
	return Scan{Texts: texts}, nil
}
