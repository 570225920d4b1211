package plugins

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleCatalog = `name: wayfinding
description: Exit and room identification signs
sign_types:
  - code: EX
    name: Exit
    color: "#C8102E"
    textColor: "#FFFFFF"
    arrowEnabled: true
    textFields: [message1]
  - code: RM
    name: Room ID
    textFields:
      - name: roomName
        maxLength: 24
      - roomNumber
`

const goCatalogSource = `package main

import "strings"

func SignTypes() ([]map[string]any, error) {
	return []map[string]any{
		{
			"code": strings.ToUpper("rr"),
			"name": "Restroom",
			"textFields": []string{"message1", "message2"},
		},
	}, nil
}`

func writePlugin(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestParseDefinitionYAML(t *testing.T) {
	def, err := ParseDefinitionYAML([]byte(sampleCatalog))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if def.Name != "wayfinding" || len(def.SignTypes) != 2 {
		t.Fatalf("unexpected definition: %+v", def)
	}
	descs, err := def.Descriptors()
	if err != nil {
		t.Fatalf("descriptors: %v", err)
	}
	room := descs[1]
	if len(room.TextFields) != 2 || room.TextFields[0].MaxLength != 24 || room.TextFields[1].Name != "roomNumber" {
		t.Fatalf("unexpected room fields: %+v", room.TextFields)
	}
}

func TestParseDefinitionYAMLErrors(t *testing.T) {
	for name, payload := range map[string]string{
		"empty":     "",
		"malformed": "sign_types: [",
		"no types":  "name: nothing\n",
	} {
		if _, err := ParseDefinitionYAML([]byte(payload)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadDirReadsYAMLAndGo(t *testing.T) {
	dir := t.TempDir()
	yamlPath := writePlugin(t, dir, "wayfinding.yaml", sampleCatalog)
	goPath := writePlugin(t, dir, "restrooms.go", goCatalogSource)
	writePlugin(t, dir, "README.md", "ignored")
	if err := os.Mkdir(filepath.Join(dir, "nested.yaml"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	defs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	if defs[0].Path != goPath || defs[1].Path != yamlPath {
		t.Fatalf("expected path order, got %s, %s", defs[0].Path, defs[1].Path)
	}
	goDef := defs[0].Definition
	if goDef.Name != "restrooms" {
		t.Fatalf("expected go catalog named after file, got %q", goDef.Name)
	}
	descs, err := goDef.Descriptors()
	if err != nil {
		t.Fatalf("descriptors: %v", err)
	}
	if len(descs) != 1 || descs[0].Code != "RR" || len(descs[0].TextFields) != 2 {
		t.Fatalf("unexpected go descriptors: %+v", descs)
	}
}

func TestLoadDirMissing(t *testing.T) {
	defs, err := LoadDir(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("missing dir should not error: %v", err)
	}
	if defs != nil {
		t.Fatalf("expected nil slice for missing dir, got %v", defs)
	}
}

func TestLoadGoFileMissingFunc(t *testing.T) {
	path := writePlugin(t, t.TempDir(), "broken.go", "package main\n")
	if _, err := LoadGoFile(path); err == nil {
		t.Fatalf("expected error for missing SignTypes function")
	}
}

func TestLoadGoFileReturnedError(t *testing.T) {
	path := writePlugin(t, t.TempDir(), "failing.go", `package main

import "errors"

func SignTypes() ([]map[string]any, error) {
	return nil, errors.New("catalog offline")
}`)
	if _, err := LoadGoFile(path); err == nil {
		t.Fatalf("expected error returned by SignTypes to propagate")
	}
}

func TestLoadYAMLFileNamesFromPath(t *testing.T) {
	path := writePlugin(t, t.TempDir(), "parking.yml", "sign_types:\n  - code: PK\n")
	file, err := LoadYAMLFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if file.Definition.Name != "parking" {
		t.Fatalf("expected name from file, got %q", file.Definition.Name)
	}
}
