package plugins

import (
	"strings"
	"testing"

	"github.com/kingrea/slayer-suite/internal/domain"
)

func TestCatalogDefinitionNormalized(t *testing.T) {
	def := CatalogDefinition{
		Name: "  wayfinding ",
		SignTypes: []map[string]any{
			{" code ": " ex ", "name": "Exit", "": "dropped"},
		},
	}
	got := def.Normalized()
	if got.Name != "wayfinding" {
		t.Fatalf("expected trimmed name, got %q", got.Name)
	}
	record := got.SignTypes[0]
	if record["code"] != "EX" {
		t.Fatalf("expected upper-cased code, got %v", record["code"])
	}
	if _, ok := record[""]; ok {
		t.Fatalf("expected blank key to be dropped: %v", record)
	}
	if def.SignTypes[0][" code "] != " ex " {
		t.Fatalf("normalize must not modify the receiver")
	}
}

func TestCatalogDefinitionValidateFailures(t *testing.T) {
	tests := []struct {
		name string
		def  CatalogDefinition
		msg  string
	}{
		{
			name: "no sign types",
			def:  CatalogDefinition{Name: "empty"},
			msg:  "sign_types is required",
		},
		{
			name: "missing code",
			def:  CatalogDefinition{SignTypes: []map[string]any{{"name": "Exit"}}},
			msg:  "sign_types[0]: code is required",
		},
		{
			name: "non-string code",
			def:  CatalogDefinition{SignTypes: []map[string]any{{"code": 12}}},
			msg:  "code is required",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.def.Validate(); err == nil || !strings.Contains(err.Error(), tc.msg) {
				t.Fatalf("expected error containing %q, got %v", tc.msg, err)
			}
		})
	}
}

func TestCatalogDefinitionDescriptors(t *testing.T) {
	def := CatalogDefinition{SignTypes: []map[string]any{
		{"code": "EX", "name": "Exit", "color": "#C8102E", "textFields": []any{"message1"}},
		{"code": "bad code", "name": "Broken"},
		{"code": "RM", "color": "not-a-color"},
		{"code": "RR", "arrowEnabled": true},
	}}
	descs, err := def.Descriptors()
	if err == nil {
		t.Fatalf("expected invalid entries to be reported")
	}
	if !strings.Contains(err.Error(), "sign_types[1]") || !strings.Contains(err.Error(), "sign_types[2]") {
		t.Fatalf("expected both invalid entries in error, got %v", err)
	}
	if len(descs) != 2 {
		t.Fatalf("expected 2 valid descriptors, got %d", len(descs))
	}
	if descs[0].Code != "EX" || descs[0].PrimaryColor != "#C8102E" {
		t.Fatalf("unexpected descriptor: %+v", descs[0])
	}
	if got := descs[0].FieldNames(); len(got) != 1 || got[0] != domain.FieldMessage1 {
		t.Fatalf("unexpected fields: %v", got)
	}
	if descs[1].Name != "RR" || !descs[1].ArrowCapable {
		t.Fatalf("expected name to default to code: %+v", descs[1])
	}
}
