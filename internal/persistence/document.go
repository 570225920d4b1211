package persistence

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/kingrea/slayer-suite/internal/module"
)

const (
	// DocumentType identifies a suite project document.
	DocumentType = "slayer_suite_project"
	// DocumentVersion is written into every saved document.
	DocumentVersion = "1.0.0"
)

// AppEntry is one module's slot in a project document.
type AppEntry struct {
	Version string      `json:"version"`
	Active  bool        `json:"active"`
	Data    module.Data `json:"data"`
	Error   string      `json:"error,omitempty"`
}

// Document is the persisted project format.
type Document struct {
	Type        string              `json:"type"`
	Version     string              `json:"version"`
	Saved       time.Time           `json:"saved"`
	ProjectName string              `json:"projectName"`
	Apps        map[string]AppEntry `json:"apps"`
}

// AppNames lists the document's module names, sorted.
func (d Document) AppNames() []string {
	names := make([]string, 0, len(d.Apps))
	for name := range d.Apps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CompatibleType reports whether t names a document this suite can load.
// Older saves used per-editor names such as "slayer_mapping_project", and
// some wrote no type at all.
func CompatibleType(t string) bool {
	t = strings.TrimSpace(t)
	if t == "" || t == DocumentType {
		return true
	}
	return strings.HasPrefix(t, "slayer") && strings.HasSuffix(t, "_project")
}

// EncodeDocument renders doc as JSON.
func EncodeDocument(doc Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("persistence: encode document: %w", err)
	}
	return data, nil
}

// DecodeDocument parses a project document. It accepts the direct shape and
// the legacy shape with the same fields nested under "project".
func DecodeDocument(data []byte) (Document, error) {
	if !gjson.ValidBytes(data) {
		return Document{}, fmt.Errorf("%w: not valid JSON", ErrUnsupportedDocument)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return Document{}, fmt.Errorf("%w: top level is not an object", ErrUnsupportedDocument)
	}
	body := root
	if project := root.Get("project"); project.IsObject() && !root.Get("apps").Exists() {
		body = project
	}
	if !body.Get("apps").IsObject() {
		return Document{}, fmt.Errorf("%w: missing apps", ErrUnsupportedDocument)
	}
	if t := body.Get("type"); t.Exists() && !CompatibleType(t.String()) {
		return Document{}, fmt.Errorf("%w: type %q", ErrUnsupportedDocument, t.String())
	}
	var doc Document
	if err := json.Unmarshal([]byte(body.Raw), &doc); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrUnsupportedDocument, err)
	}
	if doc.Apps == nil {
		doc.Apps = map[string]AppEntry{}
	}
	return doc, nil
}
